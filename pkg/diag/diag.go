// Package diag carries plugin lifecycle diagnostics to optional sinks.
package diag

// Kind describes what happened to a plugin.
type Kind string

// Event kinds emitted by the plugin subsystem.
const (
	KindOpenFailed    Kind = "open_failed"
	KindSymbolMissing Kind = "symbol_missing"
	KindInitResult    Kind = "init_result"
	KindInitRejected  Kind = "init_rejected"
	KindLoaded        Kind = "loaded"
	KindUnloaded      Kind = "unloaded"
	KindConfigMissing Kind = "config_missing"
	KindUnrecognized  Kind = "config_unrecognized"
	KindHandlerError  Kind = "handler_error"
	KindVeto          Kind = "veto"
	KindAllow         Kind = "allow"
)

// Event is a single diagnostic record.
type Event struct {
	Kind   Kind   `json:"kind"`
	ID     string `json:"id,omitempty"`
	Path   string `json:"path,omitempty"`
	Symbol string `json:"symbol,omitempty"`
	Line   int    `json:"line,omitempty"`
	Text   string `json:"text,omitempty"`
	Code   int    `json:"code"`
	Err    error  `json:"-"`
}

// Message returns the error text of the event or an empty string
func (e Event) Message() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

// Sink receives diagnostic events. Implementations must not block the
// caller for long; the plugin subsystem calls Emit synchronously.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a plain function to the Sink interface
type SinkFunc func(Event)

// Emit implements Sink
func (f SinkFunc) Emit(e Event) {
	f(e)
}

type nop struct{}

func (nop) Emit(Event) {}

// Nop is a sink that drops every event
var Nop Sink = nop{}

type multi []Sink

func (m multi) Emit(e Event) {
	for _, s := range m {
		s.Emit(e)
	}
}

// Multi returns a sink that forwards every event to all non-nil sinks in order
func Multi(sinks ...Sink) Sink {
	var m multi
	for _, s := range sinks {
		if s != nil {
			m = append(m, s)
		}
	}

	switch len(m) {
	case 0:
		return Nop
	case 1:
		return m[0]
	}

	return m
}
