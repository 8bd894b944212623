// Пакет cli — команды qrtrack: serve, migrate, format, version.
package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd создаёт корневую команду.
func NewRootCmd(version, buildDate string) *cobra.Command {
	root := &cobra.Command{
		Use:           "qrtrack",
		Short:         "Сервис tracking QR-кодов и аналитики сканирований",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newFormatCmd())
	root.AddCommand(newVersionCmd(version, buildDate))
	return root
}
