package utils

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	log "github.com/sirupsen/logrus"
)

var Log = logrus.New()

func SetLogLevel(level string) {
	// We are not using logrus' trace and panic levels
	switch strings.ToLower(level) {
	case "debug":
		Log.SetLevel(log.DebugLevel)
	case "info":
		Log.SetLevel(log.InfoLevel)
	case "warning", "warn":
		Log.SetLevel(log.WarnLevel)
	case "error":
		Log.SetLevel(log.ErrorLevel)
	case "fatal":
		Log.SetLevel(log.FatalLevel)
	default:
		log.Fatal("Bad error level string")
	}
}

// RetryLogger adapts Log to retryablehttp.LeveledLogger. Retry chatter is
// only interesting when debugging, so everything below warn goes to debug.
type RetryLogger struct{}

func (RetryLogger) Error(msg string, keysAndValues ...interface{}) {
	Log.WithFields(fields(keysAndValues)).Error(msg)
}

func (RetryLogger) Warn(msg string, keysAndValues ...interface{}) {
	Log.WithFields(fields(keysAndValues)).Warn(msg)
}

func (RetryLogger) Info(msg string, keysAndValues ...interface{}) {
	Log.WithFields(fields(keysAndValues)).Debug(msg)
}

func (RetryLogger) Debug(msg string, keysAndValues ...interface{}) {
	Log.WithFields(fields(keysAndValues)).Debug(msg)
}

func fields(keysAndValues []interface{}) logrus.Fields {
	f := logrus.Fields{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		f[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return f
}
