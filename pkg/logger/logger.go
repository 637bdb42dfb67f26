package logger

import (
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

const timestampFormat = "2006-01-02 15:04:05,000"

type Logger struct {
	*logrus.Logger
}

func NewLogger(verbose bool) *Logger {
	return New(os.Stdout, os.Stderr, verbose)
}

// New builds a logger writing entries to out. Warnings and errors are also
// echoed to errOut so they stay visible when out is a file.
func New(out, errOut io.Writer, verbose bool) *Logger {
	log := logrus.New()
	log.SetOutput(out)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: timestampFormat,
		DisableColors:   out != os.Stdout,
	})

	if verbose {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}

	if errOut != nil && errOut != out {
		log.AddHook(&consoleHook{out: errOut})
	}

	return &Logger{Logger: log}
}

// Discard returns a logger that drops every entry.
func Discard() *Logger {
	return New(io.Discard, nil, false)
}

type consoleHook struct {
	out io.Writer
}

func (h *consoleHook) Levels() []logrus.Level {
	return []logrus.Level{logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel, logrus.WarnLevel}
}

func (h *consoleHook) Fire(entry *logrus.Entry) error {
	if entry.Level == logrus.WarnLevel {
		_, err := color.New(color.FgYellow).Fprintf(h.out, "WARNING: %s\n", entry.Message)
		return err
	}
	_, err := color.New(color.FgRed, color.Bold).Fprintf(h.out, "ERROR: %s\n", entry.Message)
	return err
}
