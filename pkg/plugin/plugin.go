package plugin

import "errors"

// Entry points every module must expose. The loader resolves them in the
// order they are declared here.
const (
	// SymbolOnShellExecve is called before the host replaces its process image
	SymbolOnShellExecve = "on_shell_execve"

	// SymbolUninit is called once before the module is unloaded
	SymbolUninit = "plugin_uninit"

	// SymbolInit is called once right after the module has been loaded
	SymbolInit = "plugin_init"
)

var (
	// ErrUnsupported is returned by openers that cannot load modules on the
	// current platform
	ErrUnsupported = errors.New("dynamic module loading is not supported on this platform")

	// ErrSymbolNotFound is returned when a module does not expose an entry point
	ErrSymbolNotFound = errors.New("symbol not found")

	// ErrNotAFunction is returned when an entry point exists but cannot be called
	ErrNotAFunction = errors.New("symbol is not a function")

	// ErrClosed is returned when a library is closed twice
	ErrClosed = errors.New("library already closed")
)

// ExecveFunc is the signature of the on_shell_execve entry point. A return
// value of 0 allows the execve, anything else vetoes it
type ExecveFunc func(user string, level int, cmd string, argv []string) int

// LifecycleFunc is the signature of plugin_init and plugin_uninit
type LifecycleFunc func() int

// Module describes a plugin implemented in Go. Values implementing Module can
// be registered with a Builtin opener or wrapped into a shared object using
// hacks/build-plugin.go
type Module interface {
	// OnShellExecve is called for every guarded execve
	OnShellExecve(user string, level int, cmd string, argv []string) int

	// Init is called exactly once when the module is loaded
	Init() int

	// Uninit is called exactly once before the module is unloaded
	Uninit() int
}

// Library is an opened module whose entry points can be resolved by name
type Library interface {
	// LookupExecve resolves an entry point with the ExecveFunc signature
	LookupExecve(name string) (ExecveFunc, error)

	// LookupLifecycle resolves an entry point with the LifecycleFunc signature
	LookupLifecycle(name string) (LifecycleFunc, error)

	// Close releases the library. Entry points resolved from it must not be
	// called afterwards
	Close() error
}

// Opener opens module files
type Opener interface {
	// Accepts reports whether the opener is responsible for path
	Accepts(path string) bool

	// Open opens the module at path
	Open(path string) (Library, error)
}
