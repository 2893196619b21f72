package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Spok95/coffee-club/internal/domain/subscriptions"
)

// NewResetCommand: разовый сброс квоты для внешнего cron.
func NewResetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Restore the daily quota of subscriptions last reset more than 24h ago",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			svc := subscriptions.NewService(a.subs, nil, a.log, nil)
			n, err := svc.ResetDailyDrinks(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "reset %d subscription(s)\n", n)
			return err
		},
	}
}
