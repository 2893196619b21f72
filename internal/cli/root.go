// Package cli содержит команды coffee-club: сервер, миграции, сброс квоты и
// управление сотрудниками.
package cli

import (
	"github.com/spf13/cobra"
)

// RootOptions: общие флаги всех команд.
type RootOptions struct {
	ConfigPath string
}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "coffee",
		Short: "coffee-club — подписка на кофе с погашением по QR-коду",
		Long: `coffee-club хранит подписки клиентов, выдаёт не более трёх напитков в сутки
и даёт бариста подтвердить погашение после сканирования QR-кода.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "config/example.yaml", "path to YAML config")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewResetCommand(opts))
	cmd.AddCommand(NewStaffCommand(opts))

	return cmd
}
