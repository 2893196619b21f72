package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Spok95/coffee-club/internal/auth"
	"github.com/Spok95/coffee-club/internal/domain/users"
)

type StaffOptions struct {
	*RootOptions
	Role       string
	TelegramID int64
}

func NewStaffCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StaffOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "staff",
		Short: "Manage staff capability",
	}

	grant := &cobra.Command{
		Use:   "grant <user_id>",
		Short: "Grant staff or admin role",
		Example: `  coffee staff grant barista-1
  coffee staff grant owner --role admin --telegram-id 123456789`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			role := users.Role(opts.Role)
			if !role.Valid() {
				return fmt.Errorf("invalid role %q: must be staff or admin", opts.Role)
			}
			a, err := openApp(cmd.Context(), opts.RootOptions)
			if err != nil {
				return err
			}
			defer a.Close()

			var tg *int64
			if opts.TelegramID != 0 {
				tg = &opts.TelegramID
			}
			u, err := a.staff.Grant(cmd.Context(), args[0], role, tg)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", u.UserID, u.Role)
			return err
		},
	}
	grant.Flags().StringVar(&opts.Role, "role", string(users.RoleStaff), "role: staff|admin")
	grant.Flags().Int64Var(&opts.TelegramID, "telegram-id", 0, "link a Telegram account for the staff console")

	revoke := &cobra.Command{
		Use:   "revoke <user_id>",
		Short: "Revoke staff capability",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts.RootOptions)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.staff.Revoke(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s revoked\n", args[0])
			return err
		},
	}

	cmd.AddCommand(grant, revoke, newTokenCommand())
	return cmd
}

// newTokenCommand выпускает bearer-токен секретом из COFFEE_AUTH_HMAC_SECRET.
// Хранилище не нужно.
func newTokenCommand() *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token <user_id>",
		Short: "Issue a bearer token for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := auth.LoadConfigFromEnv(nil)
			if err != nil {
				return err
			}
			if ttl > 0 {
				cfg.TTL = ttl
			}
			gate, err := auth.NewGate(cfg)
			if err != nil {
				return err
			}
			tok, err := gate.Issue(args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return err
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default COFFEE_AUTH_TOKEN_TTL)")
	return cmd
}
