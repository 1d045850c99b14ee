package logging

import (
	"io"
	"sync"

	"github.com/rs/zerolog"
	"github.com/sirupsen/logrus"
)

var bridgeMu sync.Mutex

// logrusHook forwards logrus entries from libOpenflow into zerolog.
type logrusHook struct {
	logger zerolog.Logger
}

func (h logrusHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h logrusHook) Fire(entry *logrus.Entry) error {
	event := h.logger.WithLevel(zerologLevel(entry.Level))
	for k, v := range entry.Data {
		event = event.Interface(k, v)
	}
	event.Msg(entry.Message)
	return nil
}

func bridgeLogrus(logger zerolog.Logger, lvl zerolog.Level) {
	bridgeMu.Lock()
	defer bridgeMu.Unlock()

	std := logrus.StandardLogger()
	std.SetOutput(io.Discard)
	std.ReplaceHooks(make(logrus.LevelHooks))
	std.AddHook(logrusHook{logger: logger.With().Str("component", "libopenflow").Logger()})
	std.SetLevel(logrusLevel(lvl))
}

func zerologLevel(lvl logrus.Level) zerolog.Level {
	switch lvl {
	case logrus.TraceLevel:
		return zerolog.TraceLevel
	case logrus.DebugLevel:
		return zerolog.DebugLevel
	case logrus.InfoLevel:
		return zerolog.InfoLevel
	case logrus.WarnLevel:
		return zerolog.WarnLevel
	case logrus.ErrorLevel:
		return zerolog.ErrorLevel
	case logrus.FatalLevel:
		return zerolog.FatalLevel
	default:
		return zerolog.PanicLevel
	}
}

// logrusLevel caps the wire library one step quieter than the controller:
// it logs every decoded message at debug.
func logrusLevel(lvl zerolog.Level) logrus.Level {
	switch {
	case lvl <= zerolog.DebugLevel:
		return logrus.InfoLevel
	case lvl == zerolog.InfoLevel:
		return logrus.WarnLevel
	case lvl == zerolog.WarnLevel:
		return logrus.WarnLevel
	case lvl == zerolog.ErrorLevel:
		return logrus.ErrorLevel
	default:
		return logrus.PanicLevel
	}
}
