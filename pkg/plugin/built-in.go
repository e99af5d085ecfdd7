package plugin

import (
	"fmt"
	"sync"
)

// Symbols maps entry point names to functions. Values must be of type
// ExecveFunc, LifecycleFunc or the equivalent unnamed function types
type Symbols map[string]interface{}

// ModuleSymbols returns the entry points of m
func ModuleSymbols(m Module) Symbols {
	return Symbols{
		SymbolOnShellExecve: ExecveFunc(m.OnShellExecve),
		SymbolInit:          LifecycleFunc(m.Init),
		SymbolUninit:        LifecycleFunc(m.Uninit),
	}
}

// Builtin opens modules that are compiled into the host. Modules are
// registered under a path and are opened whenever that path is loaded
type Builtin struct {
	lock    sync.Mutex
	modules map[string]Symbols
	opened  map[string]int
}

// NewBuiltin returns an empty Builtin opener
func NewBuiltin() *Builtin {
	return &Builtin{
		modules: make(map[string]Symbols),
		opened:  make(map[string]int),
	}
}

// Register registers the symbols syms under path
func (b *Builtin) Register(path string, syms Symbols) {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.modules[path] = syms
}

// RegisterModule registers m under path
func (b *Builtin) RegisterModule(path string, m Module) {
	b.Register(path, ModuleSymbols(m))
}

// Opened returns how many libraries opened from path have not been closed
func (b *Builtin) Opened(path string) int {
	b.lock.Lock()
	defer b.lock.Unlock()

	return b.opened[path]
}

// Accepts implements Opener
func (b *Builtin) Accepts(path string) bool {
	b.lock.Lock()
	defer b.lock.Unlock()

	_, ok := b.modules[path]
	return ok
}

// Open implements Opener
func (b *Builtin) Open(path string) (Library, error) {
	b.lock.Lock()
	defer b.lock.Unlock()

	syms, ok := b.modules[path]
	if !ok {
		return nil, fmt.Errorf("no built-in module registered for %s", path)
	}
	b.opened[path]++

	return &builtinLibrary{owner: b, path: path, syms: syms}, nil
}

type builtinLibrary struct {
	owner  *Builtin
	path   string
	syms   Symbols
	closed bool
}

func (l *builtinLibrary) lookup(name string) (interface{}, error) {
	if l.closed {
		return nil, ErrClosed
	}

	sym, ok := l.syms[name]
	if !ok || sym == nil {
		return nil, fmt.Errorf("%w: %s", ErrSymbolNotFound, name)
	}
	return sym, nil
}

func (l *builtinLibrary) LookupExecve(name string) (ExecveFunc, error) {
	sym, err := l.lookup(name)
	if err != nil {
		return nil, err
	}

	switch fn := sym.(type) {
	case ExecveFunc:
		return fn, nil
	case func(string, int, string, []string) int:
		return fn, nil
	}
	return nil, fmt.Errorf("%w: %s has type %T", ErrNotAFunction, name, sym)
}

func (l *builtinLibrary) LookupLifecycle(name string) (LifecycleFunc, error) {
	sym, err := l.lookup(name)
	if err != nil {
		return nil, err
	}

	switch fn := sym.(type) {
	case LifecycleFunc:
		return fn, nil
	case func() int:
		return fn, nil
	}
	return nil, fmt.Errorf("%w: %s has type %T", ErrNotAFunction, name, sym)
}

func (l *builtinLibrary) Close() error {
	if l.closed {
		return ErrClosed
	}
	l.closed = true

	l.owner.lock.Lock()
	l.owner.opened[l.path]--
	l.owner.lock.Unlock()

	return nil
}

// compile time checks
var (
	_ Opener  = &Builtin{}
	_ Library = &builtinLibrary{}
)
