package plugin

import (
	"os"

	"github.com/google/uuid"
	"github.com/ppacher/shplug/pkg/diag"
)

// DefaultConfigPath is the system-wide plugin configuration file
const DefaultConfigPath = "/etc/bash.plugin"

// DefaultLevelVariable is the environment variable holding the shell
// nesting level
const DefaultLevelVariable = "SHLVL"

// Manager is the entry point used by the host. It owns the registry of
// loaded modules; independent managers do not share any state.
//
// Module code runs in the host process without any isolation: a module that
// crashes or hangs takes the host with it
type Manager struct {
	configPath    string
	levelVariable string
	lookupEnv     func(string) (string, bool)
	sink          diag.Sink
	openers       []Opener
	strictInit    bool

	loader   *Loader
	registry *Registry

	// id of the dispatch in progress, empty otherwise
	dispatchID string
}

// New creates a new manager
func New(opts ...Option) *Manager {
	m := &Manager{
		configPath:    DefaultConfigPath,
		levelVariable: DefaultLevelVariable,
		lookupEnv:     os.LookupEnv,
		sink:          diag.Nop,
		registry:      NewRegistry(),
	}

	for _, opt := range opts {
		opt(m)
	}

	// events raised by modules during a dispatch carry the dispatch id
	stamped := diag.SinkFunc(func(e diag.Event) {
		if e.ID == "" {
			e.ID = m.dispatchID
		}
		m.sink.Emit(e)
	})

	openers := append([]Opener(nil), m.openers...)
	openers = append(openers, &ScriptOpener{Sink: stamped}, NativeOpener{})

	m.loader = NewLoader(stamped, openers...)
	m.loader.strictInit = m.strictInit

	return m
}

// LoadPlugins loads every module listed in the configuration file and
// appends it to the registry. Modules that fail to load are reported to the
// diagnostic sink and skipped
func (m *Manager) LoadPlugins() {
	ReadConfig(m.configPath, m.sink, func(path string) {
		h, err := m.loader.Load(path)
		if err != nil {
			// already reported by the loader
			return
		}
		m.registry.Add(h)
	})
}

// FreePlugins unloads all modules. It is safe to call FreePlugins multiple
// times
func (m *Manager) FreePlugins() {
	m.registry.Free(m.sink)
}

// InvokeOnShellExecve asks every loaded module whether cmd may be executed.
// A non-zero result means the execve must not happen
func (m *Manager) InvokeOnShellExecve(user, cmd string, argv []string) int {
	if m.registry.Len() == 0 {
		return 0
	}

	level := 0
	if v, ok := m.lookupEnv(m.levelVariable); ok {
		level = atoi(v)
	}

	m.dispatchID = uuid.NewString()
	defer func() { m.dispatchID = "" }()

	code, h := dispatch(m.registry, user, level, cmd, argv)

	e := diag.Event{
		Kind: diag.KindAllow,
		ID:   m.dispatchID,
		Text: cmd,
		Code: code,
	}
	if h != nil {
		e.Kind = diag.KindVeto
		e.Path = h.Path()
	}
	m.sink.Emit(e)

	return code
}

// Plugins returns all loaded modules in load order
func (m *Manager) Plugins() []*Handle {
	return m.registry.List()
}
