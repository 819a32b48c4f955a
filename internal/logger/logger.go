package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New creates the structured logger used across services.
func New() zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(output).With().Timestamp().Logger()
}
