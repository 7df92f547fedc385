package main

import (
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"jp2kd/internal/common/fsutil"
	"jp2kd/internal/config"
	"jp2kd/internal/engine"
	"jp2kd/internal/httpapi"
)

// setupLogging installs the process loggers: zerolog for the service and
// HTTP layer, zap for the engine's guest console. Both write to stderr or,
// when cfg.LogFile is set, to one rotating file. The returned closer is nil
// when nothing needs closing.
func setupLogging(cfg config.Config, stderr io.Writer) (io.Closer, error) {
	var (
		out    = stderr
		closer io.Closer
	)
	if cfg.LogFile != "" {
		path, err := fsutil.ExpandHome(cfg.LogFile)
		if err != nil {
			return nil, err
		}
		lj := &lumberjack.Logger{Filename: path, MaxSize: 50, MaxBackups: 3, MaxAge: 28, Compress: true}
		out, closer = lj, lj
	}

	lvl := serviceLevel(cfg.LogLevel)
	zerolog.SetGlobalLevel(lvl)
	var w io.Writer = out
	if cfg.LogFile == "" {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}
	logger := zerolog.New(w).With().Timestamp().Logger()
	log.Logger = logger
	httpapi.SetLogger(logger)
	httpapi.SetDefaultLogLevel(httpLevel(lvl))

	engine.SetLogger(zap.New(zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(out),
		zapLevel(lvl),
	)).Named("engine"))
	return closer, nil
}

// serviceLevel maps log_level onto zerolog. "off" silences everything.
func serviceLevel(s string) zerolog.Level {
	switch s = strings.ToLower(strings.TrimSpace(s)); s {
	case "off", "disabled", "none":
		return zerolog.Disabled
	}
	lvl, err := zerolog.ParseLevel(s)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

func httpLevel(l zerolog.Level) string {
	switch {
	case l == zerolog.Disabled:
		return "off"
	case l <= zerolog.DebugLevel:
		return "debug"
	case l <= zerolog.InfoLevel:
		return "info"
	default:
		return "error"
	}
}

func zapLevel(l zerolog.Level) zapcore.Level {
	switch {
	case l == zerolog.Disabled:
		return zapcore.FatalLevel + 1
	case l <= zerolog.DebugLevel:
		return zapcore.DebugLevel
	case l <= zerolog.InfoLevel:
		return zapcore.InfoLevel
	case l == zerolog.WarnLevel:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}
