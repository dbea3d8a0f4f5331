package logging

import (
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

// New returns a logrus logger. "json" output uses the timestamp/severity/
// message field names log collectors expect; anything else is plain text.
func New(out io.Writer, level logrus.Level, format string) *logrus.Logger {
	log := logrus.New()
	log.Out = out
	log.Level = level
	if format == "json" {
		log.Formatter = &logrus.JSONFormatter{
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "severity",
				logrus.FieldKeyMsg:   "message",
			},
			TimestampFormat: time.RFC3339Nano,
		}
	} else {
		log.Formatter = &logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		}
	}
	return log
}
