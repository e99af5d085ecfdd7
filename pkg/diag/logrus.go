package diag

import (
	"github.com/sirupsen/logrus"
)

type logrusSink struct {
	log logrus.FieldLogger
}

// NewLogrus returns a sink writing events to the given logger. If l is nil
// the logrus standard logger is used
func NewLogrus(l logrus.FieldLogger) Sink {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return &logrusSink{log: l}
}

func (s *logrusSink) Emit(e Event) {
	fields := logrus.Fields{}
	if e.ID != "" {
		fields["event_id"] = e.ID
	}
	if e.Path != "" {
		fields["path"] = e.Path
	}
	if e.Symbol != "" {
		fields["symbol"] = e.Symbol
	}
	if e.Line > 0 {
		fields["line"] = e.Line
	}

	entry := s.log.WithFields(fields)
	if e.Err != nil {
		entry = entry.WithError(e.Err)
	}

	switch e.Kind {
	case KindOpenFailed:
		entry.Warnf("plugin: failed to open module")
	case KindSymbolMissing:
		entry.Warnf("plugin: failed to resolve entry point %s", e.Symbol)
	case KindUnrecognized:
		entry.Warnf("plugin: unrecognized configuration parameter %q", e.Text)
	case KindHandlerError:
		entry.Warnf("plugin: %s failed, returning %d", e.Symbol, e.Code)
	case KindInitResult:
		if e.Code != 0 {
			entry.Warnf("plugin: plugin_init returned %d", e.Code)
		} else {
			entry.Debugf("plugin: initialized")
		}
	case KindInitRejected:
		entry.Warnf("plugin: rejected, plugin_init returned %d", e.Code)
	case KindVeto:
		entry.Infof("plugin: execve of %s vetoed with %d", e.Text, e.Code)
	case KindAllow:
		entry.Debugf("plugin: execve of %s allowed", e.Text)
	case KindLoaded:
		entry.Debugf("plugin: loaded")
	case KindUnloaded:
		entry.Debugf("plugin: unloaded (plugin_uninit returned %d)", e.Code)
	case KindConfigMissing:
		entry.Debugf("plugin: no configuration file, no plugins loaded")
	default:
		entry.Debugf("plugin: %s", e.Kind)
	}
}
