// Command sinfonia is the ambient-audio engine daemon's entry point.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/sinfonia-audio/sinfonia/cmd"
	"github.com/sinfonia-audio/sinfonia/internal/conf"
	"github.com/sinfonia-audio/sinfonia/internal/logging"
)

func main() {
	settings, err := conf.Load(pflag.CommandLine)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading configuration: %v\n", err)
		os.Exit(1)
	}

	logging.Init(logging.Config{
		FilePath:   settings.Logging.Path,
		MaxSizeMB:  settings.Logging.MaxSizeMB,
		MaxBackups: settings.Logging.MaxBackups,
		MaxAgeDays: settings.Logging.MaxAgeDays,
		Console:    settings.Logging.Console,
		Level:      settings.LogLevel(),
	})

	rootCmd := cmd.RootCommand(settings)
	if err := rootCmd.Execute(); err != nil {
		logging.Logger().Error("command failed", "error", err)
		os.Exit(1)
	}
}
