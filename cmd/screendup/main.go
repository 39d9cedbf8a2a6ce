package main

import (
	"fmt"
	"io"
	"os"

	"github.com/breeze-rmm/screendup/internal/config"
	"github.com/breeze-rmm/screendup/internal/logging"
	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
	cfgFile string

	flagTimeoutMs   int
	flagSourceIndex int
	flagLogLevel    string
)

var log = logging.L("cli")

var rootCmd = &cobra.Command{
	Use:   "screendup",
	Short: "Desktop duplication capture tool",
	Long:  `screendup - capture frames from a display output through DXGI desktop duplication`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_, err := setup(cmd)
		return err
	},
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "screendup v%s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is screendup.yaml in the config dir or .)")
	rootCmd.PersistentFlags().IntVar(&flagTimeoutMs, "timeout", 0, "frame acquisition timeout in milliseconds")
	rootCmd.PersistentFlags().IntVar(&flagSourceIndex, "source", 0, "capture source index (0 = primary output)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(captureCmd)
	rootCmd.AddCommand(outputsCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	loadedCfg *config.Config
	logCloser io.Closer
)

// setup loads the config once, applies flag overrides and initializes logging.
func setup(cmd *cobra.Command) (*config.Config, error) {
	if loadedCfg != nil {
		return loadedCfg, nil
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	applyFlags(cmd, cfg)

	result := cfg.ValidateTiered()
	if result.HasFatals() {
		return nil, fmt.Errorf("invalid config: %v", result.Fatals[0])
	}

	var out io.Writer = os.Stderr
	if cfg.LogFile != "" {
		fw, err := logging.OpenFileWriter(cfg.LogFile, cfg.LogMaxSizeMB, cfg.LogMaxBackups)
		if err != nil {
			return nil, err
		}
		out = io.MultiWriter(os.Stderr, fw)
		logCloser = fw
	}
	logging.Init(cfg.LogFormat, cfg.LogLevel, out)

	for _, w := range result.Warnings {
		log.Warn("config validation", logging.KeyError, w)
	}

	loadedCfg = cfg
	return cfg, nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("timeout") {
		cfg.TimeoutMs = flagTimeoutMs
	}
	if flags.Changed("source") {
		cfg.CaptureSourceIndex = flagSourceIndex
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = flagLogLevel
	}
	if flags.Changed("frames") {
		cfg.Frames = flagFrames
	}
	if flags.Changed("interval") {
		cfg.IntervalMs = flagIntervalMs
	}
}

func closeLog() {
	if logCloser != nil {
		logCloser.Close()
	}
}
