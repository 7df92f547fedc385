package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"jp2kd/internal/config"
)

// options collects persistent flags. Empty values leave the config file and
// environment in charge.
type options struct {
	configPath   string
	engineModule string
	logLevel     string
	logFile      string

	cfg    config.Config
	closer io.Closer
}

// newRootCmd builds the command tree. The caller closes opts once Execute
// returns; cobra skips post-run hooks when a command fails.
func newRootCmd(opts *options) *cobra.Command {
	root := &cobra.Command{
		Use:           "jp2kd",
		Short:         "Sandboxed JPEG 2000 decoding service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "Config file (.yaml, .json or .toml)")
	pf.StringVar(&opts.engineModule, "engine-module", "", "Path to the decoder WASM module (defaults JP2KD_ENGINE_MODULE)")
	pf.StringVar(&opts.logLevel, "log-level", "", "Log level: off|error|warn|info|debug (defaults JP2KD_LOG_LEVEL or info)")
	pf.StringVar(&opts.logFile, "log-file", "", "Write logs to a rotating file instead of stderr")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// completion does not need the engine.
		if cmd.Name() == "completion" || (cmd.Parent() != nil && cmd.Parent().Name() == "completion") {
			return nil
		}
		return opts.load()
	}

	root.AddCommand(newServeCmd(opts), newDecodeCmd(opts), newSizeCmd(opts), newUsageCmd(opts))
	return root
}

// load resolves the configuration (file, then env, then flags) and installs
// the loggers.
func (o *options) load() error {
	var cfg config.Config
	if o.configPath != "" {
		c, err := config.Load(o.configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c
	}
	cfg = cfg.ApplyEnv()
	if o.engineModule != "" {
		cfg.EngineModule = o.engineModule
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if o.logFile != "" {
		cfg.LogFile = o.logFile
	}
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}
	o.cfg = cfg
	closer, err := setupLogging(cfg, os.Stderr)
	if err != nil {
		return err
	}
	o.closer = closer
	return nil
}

// close releases the log file, if one was opened.
func (o *options) close() error {
	if o.closer == nil {
		return nil
	}
	err := o.closer.Close()
	o.closer = nil
	return err
}

// splitCSV splits a comma-separated flag value, dropping empty items.
func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
