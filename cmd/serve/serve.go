// Package serve implements the daemon's only run mode: load the
// sample library, bring up the audio backend, start the controller's
// tick loop, and serve the HTTP façade until a shutdown signal, then
// send Quit to the controller and exit cleanly. Grounded on the teacher's internal/api/server.go
// (signal.Notify(SIGINT, SIGTERM) + context-based graceful shutdown
// idiom) and cmd/realtime/realtime.go (the Command(settings) flag
// wiring shape).
package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sinfonia-audio/sinfonia/internal/audiobackend/ebitenbackend"
	"github.com/sinfonia-audio/sinfonia/internal/conf"
	"github.com/sinfonia-audio/sinfonia/internal/engine"
	"github.com/sinfonia-audio/sinfonia/internal/facade"
	"github.com/sinfonia-audio/sinfonia/internal/logging"
	"github.com/sinfonia-audio/sinfonia/internal/soundlib"
)

// Command builds the `serve` subcommand (spec §6 CLI: --host, --port,
// --access-token, --threads, --sound-library).
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the ambient-audio engine daemon",
		Long:  "Load the sample library, start the audio controller, and serve the HTTP façade until a termination signal.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run(settings)
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		fmt.Fprintf(os.Stderr, "error setting up serve flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().StringVar(&settings.Server.Host, "host", viper.GetString("server.host"), "Address to bind the HTTP façade to")
	cmd.Flags().IntVar(&settings.Server.Port, "port", viper.GetInt("server.port"), "Port to bind the HTTP façade to")
	cmd.Flags().StringVar(&settings.Server.AccessToken, "access-token", viper.GetString("server.accesstoken"), "Bearer token required on every façade request")
	cmd.Flags().IntVar(&settings.Audio.Threads, "threads", viper.GetInt("audio.threads"), "Number of worker threads available to the backend")
	cmd.Flags().StringVar(&settings.SoundLibrary.Path, "sound-library", viper.GetString("soundlibrary.path"), "Base directory the sample library indexes")

	return viper.BindPFlags(cmd.Flags())
}

// Run brings the whole daemon up and blocks until SIGINT/SIGTERM or a
// façade server error. On a signal it shuts the façade down, sends
// Quit to the controller, waits for its tick loop to end, and returns
// nil, so the process exits 0 (spec §6 "Exit 0 on clean Quit"). On a
// façade error it returns that error without sending Quit.
func Run(settings *conf.Settings) error {
	log := logging.ForComponent("serve")

	library := soundlib.NewGormLibrary(settings.SoundLibrary.Path, filepath.Join(settings.SoundLibrary.Path, "library.db"))
	if err := library.Open(); err != nil {
		return fmt.Errorf("opening sample library: %w", err)
	}
	defer library.Close()

	backend, err := ebitenbackend.Init()
	if err != nil {
		return fmt.Errorf("initializing audio backend: %w", err)
	}
	defer backend.Close()

	if settings.Audio.OutputDevice != "" {
		for _, d := range backend.OutputDevices() {
			if d.Name == settings.Audio.OutputDevice {
				if err := backend.SetOutputDevice(d.ID); err != nil {
					log.Warn("failed to select configured output device", "device", d.Name, "error", err)
				}
				break
			}
		}
	}

	commands := make(chan engine.Command)
	responses := make(chan engine.Response)

	rng := engine.NewRand(uint64(time.Now().UnixNano()), uint64(os.Getpid()))
	controller := engine.NewController(backend, library, commands, responses, rng)

	controllerDone := make(chan struct{})
	go func() {
		defer close(controllerDone)
		controller.Run()
	}()

	server := facade.NewServer(commands, responses, settings.Server.AccessToken)
	addr := fmt.Sprintf("%s:%d", settings.Server.Host, settings.Server.Port)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start(addr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			log.Error("façade server exited unexpectedly", "error", err)
			return err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Warn("façade shutdown did not complete cleanly", "error", err)
	}

	commands <- engine.QuitCommand{}
	<-controllerDone

	log.Info("daemon stopped cleanly")
	return nil
}
