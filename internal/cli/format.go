package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bigkaa/qrtrack/internal/domain/model"
	"github.com/bigkaa/qrtrack/internal/payload"
)

// newFormatCmd — offline-предпросмотр содержимого QR-кода.
// Составные поля разделяются двоеточием: qrtrack format wifi 'Home:secret:WPA'.
func newFormatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "format <type> <value>",
		Short: "Показать строку, которая будет закодирована в QR-код",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t := model.ParseContentType(args[0])
			value := strings.Join(args[1:], " ")
			if strings.TrimSpace(value) == "" {
				return fmt.Errorf("пустое значение")
			}
			fmt.Fprintln(cmd.OutOrStdout(), payload.Format(t, value))
			return nil
		},
	}
}
