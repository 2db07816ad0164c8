package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Config - параметры корневого логгера.
type Config struct {
	Level       string
	Environment string
	ServiceName string
}

// New создает корневой логгер. Вне production вывод человекочитаемый.
func New(cfg Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	var out io.Writer = os.Stdout
	if cfg.Environment != "production" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("service", cfg.ServiceName).
		Logger()
}
