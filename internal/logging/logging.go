// Package logging configures zerolog for the process.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures zerolog on stderr. Pretty selects the human readable
// console writer; otherwise each line is a JSON object.
func Setup(level string, pretty bool) (zerolog.Logger, error) {
	return SetupWithWriter(level, pretty, os.Stderr)
}

// SetupWithWriter is Setup with an explicit destination.
func SetupWithWriter(level string, pretty bool, w io.Writer) (zerolog.Logger, error) {
	lvl := zerolog.InfoLevel
	if level != "" {
		parsed, err := zerolog.ParseLevel(level)
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("log level: %w", err)
		}
		lvl = parsed
	}

	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}

	logger := zerolog.New(w).With().Timestamp().Logger().Level(lvl)
	log.Logger = logger
	return logger, nil
}
