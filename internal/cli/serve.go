package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"parcelhop/internal/app"
	router "parcelhop/internal/http"
	"parcelhop/internal/payments"
	"parcelhop/internal/utils"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Runs the HTTP API. Unpaid transactions are not expired by the server;
schedule "parcelhop expire-pending" for that.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	env, err := loadEnv()
	if err != nil {
		return err
	}
	if env.GinMode != "" {
		gin.SetMode(env.GinMode)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	be, err := openBackend(ctx, env)
	if err != nil {
		return err
	}
	defer be.Close()

	opts := app.OptionsFromEnv(env)
	utils.LogWarn(ctx, "cli", "serve", "payment processor not configured; using the sandbox provider")
	opts.Provider = payments.NewSandbox()
	a := app.New(be.Repos, opts)

	srv := &http.Server{
		Addr:              env.AppAddr,
		Handler:           router.NewRouter(env, a.API(be.Ready)),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       20 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		utils.LogEvent(ctx, "cli", "serve", "listening", "addr", env.AppAddr, "storage", env.Storage)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	utils.LogEvent(context.Background(), "cli", "serve", "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	utils.LogEvent(context.Background(), "cli", "serve", "server stopped")
	return nil
}
