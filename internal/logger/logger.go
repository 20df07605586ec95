// internal/logger/logger.go
package logger

import (
	"errors"
	"os"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config описывает параметры логирования и ротации файла.
type Config struct {
	Dir        string
	File       string
	MaxSize    int  // мегабайты
	MaxAge     int  // дни
	MaxBackups int  // количество файлов
	Compress   bool // сжимать ротированные файлы
	Debug      bool
	Pretty     bool // цветной консольный вывод вместо стандартного
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() Config {
	return Config{
		Dir:        "logs",
		File:       "launchpad.log",
		MaxSize:    100,
		MaxAge:     7,
		MaxBackups: 3,
		Compress:   true,
	}
}

func (c Config) path() string {
	return filepath.Join(c.Dir, c.File)
}

func (c Config) level() zapcore.Level {
	if c.Debug {
		return zapcore.DebugLevel
	}
	return zapcore.InfoLevel
}

func (c Config) rotator() *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   c.path(),
		MaxSize:    c.MaxSize,
		MaxBackups: c.MaxBackups,
		MaxAge:     c.MaxAge,
		Compress:   c.Compress,
	}
}

func fileEncoder() zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	encoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	return zapcore.NewJSONEncoder(encoderConfig)
}

// New создает логгер: консоль (stdout) плюс JSON-файл с ротацией через lumberjack.
func New(cfg Config) (*zap.Logger, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, err
	}

	var console zapcore.Encoder
	if cfg.Pretty {
		console = PrettyEncoder()
	} else {
		encoderConfig := zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		console = zapcore.NewConsoleEncoder(encoderConfig)
	}

	core := zapcore.NewTee(
		zapcore.NewCore(console, zapcore.Lock(os.Stdout), cfg.level()),
		zapcore.NewCore(fileEncoder(), zapcore.AddSync(cfg.rotator()), cfg.level()),
	)

	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

// NewTUI создает логгер для TUI: в консоль ничего не пишется, записи идут в буфер и файл.
func NewTUI(cfg Config, buffer *LogBuffer) (*zap.Logger, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, err
	}

	core := zapcore.NewTee(
		zapcore.NewCore(fileEncoder(), zapcore.AddSync(buffer), cfg.level()),
		zapcore.NewCore(fileEncoder(), zapcore.AddSync(cfg.rotator()), cfg.level()),
	)
	return zap.New(core), nil
}

// Sync сбрасывает буферы логгера, игнорируя ошибки sync для терминала.
func Sync(l *zap.Logger) error {
	err := l.Sync()
	if errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY) {
		return nil
	}
	return err
}
