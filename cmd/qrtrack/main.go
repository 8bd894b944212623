// Точка входа qrtrack — сервиса tracking QR-кодов и аналитики сканирований.
package main

import (
	"log/slog"
	"os"

	"github.com/bigkaa/qrtrack/internal/cli"
	"github.com/bigkaa/qrtrack/internal/config"
)

// buildDate задаётся через -ldflags при сборке.
var buildDate = "unknown"

func main() {
	if err := cli.NewRootCmd(config.Version, buildDate).Execute(); err != nil {
		slog.Error("qrtrack завершился с ошибкой", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
