// Package logging builds the shared logrus logger.
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Options control logger construction from CLI flags.
type Options struct {
	Level   string
	NoColor bool
	Output  io.Writer
}

// New returns a configured logger. An unknown level falls back to info.
func New(opts Options) *logrus.Logger {
	log := logrus.New()

	if opts.Output != nil {
		log.SetOutput(opts.Output)
	} else {
		log.SetOutput(os.Stderr)
	}

	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	log.SetFormatter(&logrus.TextFormatter{
		DisableColors:   opts.NoColor,
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000",
	})
	return log
}
