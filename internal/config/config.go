package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"
)

type Config struct {
	TimeoutMs          int    `mapstructure:"timeout_ms"`
	CaptureSourceIndex int    `mapstructure:"capture_source_index"`
	Frames             int    `mapstructure:"frames"`
	IntervalMs         int    `mapstructure:"interval_ms"`
	LogLevel           string `mapstructure:"log_level"`
	LogFormat          string `mapstructure:"log_format"`
	LogFile            string `mapstructure:"log_file"`
	LogMaxSizeMB       int    `mapstructure:"log_max_size_mb"`
	LogMaxBackups      int    `mapstructure:"log_max_backups"`
}

func Default() *Config {
	return &Config{
		TimeoutMs:     200,
		Frames:        10,
		LogLevel:      "info",
		LogFormat:     "text",
		LogMaxSizeMB:  20,
		LogMaxBackups: 2,
	}
}

// Load reads cfgFile (or screendup.yaml from the config dir or the working
// directory) on top of the defaults. SCREENDUP_* environment variables win
// over the file. A missing config file is not an error.
func Load(cfgFile string) (*Config, error) {
	return load(viper.New(), cfgFile)
}

func load(v *viper.Viper, cfgFile string) (*Config, error) {
	cfg := Default()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("screendup")
		v.SetConfigType("yaml")
		v.AddConfigPath(configDir())
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("SCREENDUP")
	v.AutomaticEnv()
	// AutomaticEnv only applies to keys viper already knows about.
	for key, value := range defaults(cfg) {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaults(cfg *Config) map[string]any {
	return map[string]any{
		"timeout_ms":           cfg.TimeoutMs,
		"capture_source_index": cfg.CaptureSourceIndex,
		"frames":               cfg.Frames,
		"interval_ms":          cfg.IntervalMs,
		"log_level":            cfg.LogLevel,
		"log_format":           cfg.LogFormat,
		"log_file":             cfg.LogFile,
		"log_max_size_mb":      cfg.LogMaxSizeMB,
		"log_max_backups":      cfg.LogMaxBackups,
	}
}

func configDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("ProgramData"), "ScreenDup")
	case "darwin":
		return "/Library/Application Support/ScreenDup"
	default:
		return "/etc/screendup"
	}
}
