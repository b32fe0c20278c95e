package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// levelAliases maps level names accepted in LOG_LEVEL to zap levels.
var levelAliases = map[string]zapcore.Level{
	"DEBUG":    zapcore.DebugLevel,
	"INFO":     zapcore.InfoLevel,
	"WARN":     zapcore.WarnLevel,
	"WARNING":  zapcore.WarnLevel,
	"ERROR":    zapcore.ErrorLevel,
	"CRITICAL": zapcore.FatalLevel,
	"FATAL":    zapcore.FatalLevel,
}

// Options configures New.
type Options struct {
	Level string
	// File enables a rotating JSON log file next to the console output.
	File   string
	Output io.Writer
}

// ParseLevel converts a level name such as INFO or warning into a zap level.
// An empty name means INFO.
func ParseLevel(name string) (zapcore.Level, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" {
		return zapcore.InfoLevel, nil
	}
	if lvl, ok := levelAliases[name]; ok {
		return lvl, nil
	}
	return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", name)
}

// New builds a sugared logger writing human readable lines to Output (stderr by default).
func New(opts Options) (*zap.SugaredLogger, error) {
	lvl, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	atom := zap.NewAtomicLevelAt(lvl)
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(out), atom),
	}
	if opts.File != "" {
		w := zapcore.AddSync(&lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
		})
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), w, atom))
	}
	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()).Sugar(), nil
}

// NewNop returns a logger that discards everything.
func NewNop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
