package logger

import (
	"fmt"
	"os"
	"sync"

	"github.com/anoideaopen/proxymanager/core/config"
	"github.com/sirupsen/logrus"
)

var (
	lg   *logrus.Logger
	once sync.Once
)

// Logger returns the process wide logger configured from the
// PROXYMANAGER_LOGGING_LEVEL and PROXYMANAGER_LOGGING_FORMAT variables.
func Logger() *logrus.Logger {
	once.Do(func() {
		levelStr := os.Getenv(config.EnvLoggingLevel)
		if levelStr == "" {
			levelStr = "warning"
		}

		// An unknown format falls back to text, an unknown level is fatal.
		format := os.Getenv(config.EnvLoggingFormat)
		if format != config.FormatJSON {
			format = config.FormatText
		}

		var err error
		lg, err = New(config.LoggingConfig{Level: levelStr, Format: format})
		if err != nil {
			panic(err)
		}
	})

	return lg
}

// New creates a logger writing to stderr.
func New(cfg config.LoggingConfig) (*logrus.Logger, error) {
	l := logrus.New()
	l.SetOutput(os.Stderr)

	level := logrus.WarnLevel
	if cfg.Level != "" {
		var err error
		if level, err = logrus.ParseLevel(cfg.Level); err != nil {
			return nil, fmt.Errorf("parsing logging level: %w", err)
		}
	}
	l.SetLevel(level)

	switch cfg.Format {
	case config.FormatJSON:
		l.SetFormatter(&logrus.JSONFormatter{})
	case config.FormatText, "":
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05.000 MST",
		})
	default:
		return nil, fmt.Errorf("%w: '%s'", config.ErrUnknownLogFormat, cfg.Format)
	}

	return l, nil
}
