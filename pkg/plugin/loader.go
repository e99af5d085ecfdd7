package plugin

import (
	"fmt"
	"path/filepath"

	"github.com/ppacher/shplug/pkg/diag"
)

// Loader opens modules and binds their entry points
type Loader struct {
	openers    []Opener
	sink       diag.Sink
	strictInit bool
}

// NewLoader returns a loader that tries openers in order and reports to
// sink. If no opener accepts a path the native opener is used
func NewLoader(sink diag.Sink, openers ...Opener) *Loader {
	if sink == nil {
		sink = diag.Nop
	}

	return &Loader{
		openers: openers,
		sink:    sink,
	}
}

func (l *Loader) opener(path string) Opener {
	for _, o := range l.openers {
		if o.Accepts(path) {
			return o
		}
	}

	return NativeOpener{}
}

// Load opens the module at path, resolves on_shell_execve, plugin_uninit
// and plugin_init (in that order) and calls plugin_init. Any failure is
// reported to the diagnostic sink and the module is released before Load
// returns.
//
// The result of plugin_init does not prevent the module from being returned
// unless the loader has been configured with strict init.
func (l *Loader) Load(path string) (h *Handle, err error) {
	lib, err := l.opener(path).Open(path)
	if err != nil {
		l.sink.Emit(diag.Event{Kind: diag.KindOpenFailed, Path: path, Err: err})
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	// the library is owned by the handle only if we return one
	defer func() {
		if h == nil {
			lib.Close()
		}
	}()

	onExecve, err := lib.LookupExecve(SymbolOnShellExecve)
	if err != nil {
		return nil, l.symbolMissing(path, SymbolOnShellExecve, err)
	}

	uninitFn, err := lib.LookupLifecycle(SymbolUninit)
	if err != nil {
		return nil, l.symbolMissing(path, SymbolUninit, err)
	}

	initFn, err := lib.LookupLifecycle(SymbolInit)
	if err != nil {
		return nil, l.symbolMissing(path, SymbolInit, err)
	}

	code := initFn()
	l.sink.Emit(diag.Event{Kind: diag.KindInitResult, Path: path, Symbol: SymbolInit, Code: code})

	if code != 0 && l.strictInit {
		l.sink.Emit(diag.Event{Kind: diag.KindInitRejected, Path: path, Symbol: SymbolInit, Code: code})
		return nil, fmt.Errorf("%s: %s returned %d", path, SymbolInit, code)
	}

	h = &Handle{
		name:     filepath.Base(path),
		path:     path,
		lib:      lib,
		onExecve: onExecve,
		uninit:   uninitFn,
	}

	l.sink.Emit(diag.Event{Kind: diag.KindLoaded, Path: path})

	return h, nil
}

func (l *Loader) symbolMissing(path, symbol string, err error) error {
	l.sink.Emit(diag.Event{Kind: diag.KindSymbolMissing, Path: path, Symbol: symbol, Err: err})
	return fmt.Errorf("%s: failed to resolve %s: %w", path, symbol, err)
}
