// Package logger builds the engine's structured, redacted logrus logger.
// Every line — including anything callers pass as a field value — is
// scrubbed by the Redactor before it reaches stderr or the log file, per
// spec.md §5.
package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"reconforge/pkg/redactor"
)

// redactingWriter wraps an io.Writer so every write is passed through
// redactor.Redact first. logrus serializes all Fire calls through its own
// mutex, so this writer never needs one of its own.
type redactingWriter struct {
	w io.Writer
}

func (r redactingWriter) Write(p []byte) (int, error) {
	scrubbed := redactor.Redact(string(p))
	if _, err := r.w.Write([]byte(scrubbed)); err != nil {
		return 0, err
	}
	return len(p), nil
}

// New builds a logrus.Logger that writes JSON lines to stderr and,
// if logFile is non-empty, tees to that file as well. verbose raises the
// level to Debug; otherwise Info.
func New(logFile string, verbose bool) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05Z07:00"})
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}

	var out io.Writer = os.Stderr
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, err
		}
		out = io.MultiWriter(os.Stderr, f)
	}
	log.SetOutput(redactingWriter{w: out})
	return log, nil
}
