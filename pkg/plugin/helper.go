package plugin

import (
	"github.com/ppacher/shplug/pkg/diag"
)

// Option defines the type of function that serves as a manager option
type Option func(m *Manager)

// WithConfigPath configures the plugin configuration file to read
func WithConfigPath(path string) Option {
	return func(m *Manager) {
		m.configPath = path
	}
}

// WithSink configures the diagnostic sink. A nil sink disables diagnostics
func WithSink(s diag.Sink) Option {
	return func(m *Manager) {
		if s == nil {
			s = diag.Nop
		}
		m.sink = s
	}
}

// WithOpeners adds openers that are tried before the built-in script and
// native openers
func WithOpeners(o ...Opener) Option {
	return func(m *Manager) {
		m.openers = append(m.openers, o...)
	}
}

// WithLookupEnv replaces os.LookupEnv for reading the nesting level
func WithLookupEnv(fn func(string) (string, bool)) Option {
	return func(m *Manager) {
		m.lookupEnv = fn
	}
}

// WithLevelVariable configures the environment variable that holds the
// nesting level
func WithLevelVariable(name string) Option {
	return func(m *Manager) {
		m.levelVariable = name
	}
}

// WithStrictInit makes registration depend on plugin_init returning 0.
// By default the result of plugin_init is only reported
func WithStrictInit(strict bool) Option {
	return func(m *Manager) {
		m.strictInit = strict
	}
}
