package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	LevelNone   = "none"
	LevelNormal = "normal"
	LevelDebug  = "debug"
)

type ConsoleLoggerConfig struct {
	Level string `yaml:"level"`
}

type FileLoggerConfig struct {
	Level       string `yaml:"level"`
	Destination string `yaml:"destination,omitempty"`
	MaxSizeMB   int    `yaml:"max_size_mb,omitempty"`
	MaxBackups  int    `yaml:"max_backups,omitempty"`
	MaxAgeDays  int    `yaml:"max_age_days,omitempty"`
}

type LoggingConfig struct {
	ConsoleLogger ConsoleLoggerConfig `yaml:"console"`
	FileLogger    FileLoggerConfig    `yaml:"file"`
}

func validLevel(l string) bool {
	switch l {
	case "", LevelNone, LevelNormal, LevelDebug:
		return true
	}
	return false
}

func (conf *LoggingConfig) validate() error {
	if !validLevel(conf.ConsoleLogger.Level) {
		return fmt.Errorf("logging.console.level: unsupported value %q", conf.ConsoleLogger.Level)
	}
	if !validLevel(conf.FileLogger.Level) {
		return fmt.Errorf("logging.file.level: unsupported value %q", conf.FileLogger.Level)
	}
	if lvl := conf.FileLogger.Level; lvl != "" && lvl != LevelNone && conf.FileLogger.Destination == "" {
		return fmt.Errorf("logging.file.destination is required when file logging is on")
	}
	return nil
}

// Prepare returns the configured program logger. Console output is split:
// errors go to stderr, everything below to stdout. The optional file log
// rotates.
func (conf *LoggingConfig) Prepare() (*zap.Logger, func() error, error) {
	ec := zap.NewDevelopmentEncoderConfig()
	ec.EncodeCaller = nil
	ec.EncodeLevel = zapcore.CapitalLevelEncoder
	consoleEncoderLP := zapcore.NewConsoleEncoder(ec)
	consoleEncoderHP := newEncoder(ec)

	highPriority := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= zapcore.ErrorLevel
	})

	var consoleCoreHP, consoleCoreLP zapcore.Core
	switch conf.ConsoleLogger.Level {
	case LevelNormal, "":
		consoleCoreLP = zapcore.NewCore(consoleEncoderLP, zapcore.Lock(os.Stdout),
			zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
				return zapcore.InfoLevel <= lvl && lvl < zapcore.ErrorLevel
			}))
		consoleCoreHP = zapcore.NewCore(consoleEncoderHP, zapcore.Lock(os.Stderr), highPriority)
	case LevelDebug:
		consoleCoreLP = zapcore.NewCore(consoleEncoderLP, zapcore.Lock(os.Stdout),
			zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
				return zapcore.DebugLevel <= lvl && lvl < zapcore.ErrorLevel
			}))
		consoleCoreHP = zapcore.NewCore(consoleEncoderHP, zapcore.Lock(os.Stderr), highPriority)
	default:
		consoleCoreLP = zapcore.NewNopCore()
		consoleCoreHP = zapcore.NewNopCore()
	}

	fileCore := zapcore.NewNopCore()
	closer := func() error { return nil }
	var level zapcore.Level
	switch conf.FileLogger.Level {
	case LevelDebug:
		level = zapcore.DebugLevel
	case LevelNormal:
		level = zapcore.InfoLevel
	default:
		level = zapcore.InvalidLevel
	}
	if level != zapcore.InvalidLevel {
		if err := os.MkdirAll(filepath.Dir(conf.FileLogger.Destination), 0o755); err != nil {
			return nil, nil, fmt.Errorf("unable to access file log destination (%s): %w", conf.FileLogger.Destination, err)
		}
		rot := &lumberjack.Logger{
			Filename:   conf.FileLogger.Destination,
			MaxSize:    conf.FileLogger.MaxSizeMB,
			MaxBackups: conf.FileLogger.MaxBackups,
			MaxAge:     conf.FileLogger.MaxAgeDays,
		}
		fileCore = zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(rot),
			zap.NewAtomicLevelAt(level))
		closer = rot.Close
	}

	logger := zap.New(zapcore.NewTee(consoleCoreHP, consoleCoreLP, fileCore), zap.AddCaller())
	return logger.Named("profilecard"), closer, nil
}

// When logging errors to the console only the short message is printed.

type consoleEnc struct {
	zapcore.Encoder
}

func newEncoder(cfg zapcore.EncoderConfig) zapcore.Encoder {
	return consoleEnc{zapcore.NewConsoleEncoder(cfg)}
}

func (c consoleEnc) Clone() zapcore.Encoder {
	return consoleEnc{c.Encoder.Clone()}
}

func (c consoleEnc) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	newFields := make([]zapcore.Field, 0, len(fields))
	for _, f := range fields {
		if f.Type == zapcore.ErrorType {
			if e, ok := f.Interface.(error); ok {
				f.Interface = errors.New(e.Error())
			}
		}
		newFields = append(newFields, f)
	}
	return c.Encoder.EncodeEntry(ent, newFields)
}
