package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"parcelhop/internal/app"
	"parcelhop/internal/utils"
)

var expireCmd = &cobra.Command{
	Use:   "expire-pending",
	Short: "Cancel PENDING transactions older than PENDING_PAYMENT_TTL",
	Long: `Cancels unpaid transactions whose payment window has passed and returns
their reserved capacity. Meant to be run by an external scheduler.`,
	RunE: runExpire,
}

func runExpire(cmd *cobra.Command, _ []string) error {
	env, err := loadEnv()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	be, err := openBackend(ctx, env)
	if err != nil {
		return err
	}
	defer be.Close()

	a := app.New(be.Repos, app.OptionsFromEnv(env))
	n, err := a.Escrow.ExpirePending(ctx, env.PendingPaymentTTL)
	if err != nil {
		return err
	}
	utils.LogEvent(ctx, "cli", "expire", "expiry sweep finished", "cancelled", n, "ttl", env.PendingPaymentTTL.String())
	fmt.Fprintf(cmd.OutOrStdout(), "cancelled %d pending transaction(s)\n", n)
	return nil
}
