package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options controls where and how verbosely logs are written
type Options struct {
	Dir          string
	ConsoleLevel zapcore.Level
	FileLevel    zapcore.Level
	Now          func() time.Time
}

// DefaultOptions writes Info to the console and Debug to logs/
func DefaultOptions() Options {
	return Options{
		Dir:          "logs",
		ConsoleLevel: zapcore.InfoLevel,
		FileLevel:    zapcore.DebugLevel,
		Now:          time.Now,
	}
}

// InitLogger initializes a zap logger with console and file outputs.
// env prefixes the log file name. LOG_LEVEL overrides the console level.
func InitLogger(env string) (*zap.Logger, error) {
	opts := DefaultOptions()
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		parsed, err := zapcore.ParseLevel(lvl)
		if err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", lvl, err)
		}
		opts.ConsoleLevel = parsed
	}
	return New(env, opts)
}

// New builds a logger that tees a coloured console encoder and a JSON file
// encoder under opts.Dir/<env>_<timestamp>.log
func New(env string, opts Options) (*zap.Logger, error) {
	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logFileName := filepath.Join(opts.Dir, fmt.Sprintf("%s_%s.log", env, now().Format("2006-01-02_15-04-05")))
	logFile, err := os.OpenFile(logFileName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	consoleEncoderConfig := zap.NewDevelopmentEncoderConfig()
	consoleEncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	consoleEncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	fileEncoderConfig := zap.NewProductionEncoderConfig()
	fileEncoderConfig.TimeKey = "timestamp"
	fileEncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEncoderConfig), zapcore.AddSync(os.Stdout), opts.ConsoleLevel),
		zapcore.NewCore(zapcore.NewJSONEncoder(fileEncoderConfig), zapcore.AddSync(logFile), opts.FileLevel),
	)

	logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)).
		With(zap.String("env", env))

	return logger, nil
}
