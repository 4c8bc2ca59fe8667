package cli

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"parcelhop/internal/domain"
	"parcelhop/internal/http/middleware"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Sign a bearer token for local testing",
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().String("user", "", "User id (UUID); required unless --role=system")
	tokenCmd.Flags().String("role", domain.RoleUser, "Role: user, admin or system")
	tokenCmd.Flags().Duration("ttl", time.Hour, "Token lifetime")
}

func runToken(cmd *cobra.Command, _ []string) error {
	env, err := loadEnv()
	if err != nil {
		return err
	}
	rawUser, _ := cmd.Flags().GetString("user")
	role, _ := cmd.Flags().GetString("role")
	ttl, _ := cmd.Flags().GetDuration("ttl")

	var id domain.ID
	if rawUser != "" || role != domain.RoleSystem {
		id, err = uuid.Parse(rawUser)
		if err != nil {
			return fmt.Errorf("--user must be a UUID: %w", err)
		}
	}
	switch role {
	case domain.RoleUser, domain.RoleAdmin, domain.RoleSystem:
	default:
		return fmt.Errorf("unknown role %q", role)
	}
	tok, err := middleware.IssueToken([]byte(env.JWTSecret), id, role, ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), tok)
	return nil
}
