// Package conf holds the engine's Settings struct and the viper-backed
// loader that layers defaults, an optional config.yaml, environment
// variables, and command-line flags — the same precedence order the
// teacher's internal/conf package uses.
package conf

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// LogConfig controls the logging subsystem.
type LogConfig struct {
	Path       string
	Console    bool
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Level      string
}

// Settings is the engine's full runtime configuration.
type Settings struct {
	Debug bool

	SoundLibrary struct {
		Path string // base directory the sample library walks and indexes
	}

	Server struct {
		Host        string
		Port        int
		AccessToken string
	}

	Audio struct {
		Threads      int
		OutputDevice string
	}

	Logging LogConfig
}

func setDefaults() {
	viper.SetDefault("debug", false)

	viper.SetDefault("soundlibrary.path", "./sounds")

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.accesstoken", "")

	viper.SetDefault("audio.threads", 4)
	viper.SetDefault("audio.outputdevice", "")

	viper.SetDefault("logging.path", "logs/sinfonia.log")
	viper.SetDefault("logging.console", true)
	viper.SetDefault("logging.maxsizemb", 100)
	viper.SetDefault("logging.maxbackups", 10)
	viper.SetDefault("logging.maxagedays", 30)
	viper.SetDefault("logging.level", "info")
}

// Load builds Settings from defaults, an optional config.yaml on the
// search path, SINFONIA_-prefixed environment variables, and any flags
// already registered on flags (flags take precedence).
func Load(flags *pflag.FlagSet) (*Settings, error) {
	setDefaults()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.sinfonia")
	viper.AddConfigPath("/etc/sinfonia")

	viper.SetEnvPrefix("sinfonia")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	if flags != nil {
		if err := viper.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("binding flags: %w", err)
		}
	}

	settings := &Settings{}
	settings.Debug = viper.GetBool("debug")
	settings.SoundLibrary.Path = viper.GetString("soundlibrary.path")
	settings.Server.Host = viper.GetString("server.host")
	settings.Server.Port = viper.GetInt("server.port")
	settings.Server.AccessToken = viper.GetString("server.accesstoken")
	settings.Audio.Threads = viper.GetInt("audio.threads")
	settings.Audio.OutputDevice = viper.GetString("audio.outputdevice")
	settings.Logging.Path = viper.GetString("logging.path")
	settings.Logging.Console = viper.GetBool("logging.console")
	settings.Logging.MaxSizeMB = viper.GetInt("logging.maxsizemb")
	settings.Logging.MaxBackups = viper.GetInt("logging.maxbackups")
	settings.Logging.MaxAgeDays = viper.GetInt("logging.maxagedays")
	settings.Logging.Level = viper.GetString("logging.level")

	return settings, nil
}

// LogLevel parses the configured log level, defaulting to Info on a
// bad value rather than failing startup.
func (s *Settings) LogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s.Logging.Level)); err != nil {
		fmt.Fprintf(os.Stderr, "invalid logging.level %q, defaulting to info\n", s.Logging.Level)
		return slog.LevelInfo
	}
	return level
}
