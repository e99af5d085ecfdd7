//go:build linux || darwin || freebsd

package plugin

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/ebitengine/purego"
)

// NativeOpener opens shared objects exposing the entry points with C
// linkage:
//
//	int on_shell_execve(char *user, int shell_level, char *cmd, char **argv);
//	int plugin_init(void);
//	int plugin_uninit(void);
//
// Symbols are bound lazily.
type NativeOpener struct{}

// Accepts implements Opener. The native opener accepts every path
func (NativeOpener) Accepts(string) bool {
	return true
}

// Open implements Opener
func (NativeOpener) Open(path string) (Library, error) {
	handle, err := purego.Dlopen(path, purego.RTLD_LAZY|purego.RTLD_LOCAL)
	if err != nil {
		return nil, err
	}

	return &nativeLibrary{handle: handle}, nil
}

type nativeLibrary struct {
	handle uintptr
}

func (n *nativeLibrary) symbol(name string) (uintptr, error) {
	if n.handle == 0 {
		return 0, ErrClosed
	}

	addr, err := purego.Dlsym(n.handle, name)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrSymbolNotFound, name, err)
	}
	if addr == 0 {
		return 0, fmt.Errorf("%w: %s resolves to NULL", ErrNotAFunction, name)
	}

	return addr, nil
}

func (n *nativeLibrary) LookupExecve(name string) (ExecveFunc, error) {
	addr, err := n.symbol(name)
	if err != nil {
		return nil, err
	}

	var fn func(user string, level int32, cmd string, argv unsafe.Pointer) int32
	purego.RegisterFunc(&fn, addr)

	return func(user string, level int, cmd string, argv []string) int {
		cargv, pinner := cStringArray(argv)
		defer pinner.Unpin()

		return int(fn(user, int32(level), cmd, cargv))
	}, nil
}

func (n *nativeLibrary) LookupLifecycle(name string) (LifecycleFunc, error) {
	addr, err := n.symbol(name)
	if err != nil {
		return nil, err
	}

	var fn func() int32
	purego.RegisterFunc(&fn, addr)

	return func() int {
		return int(fn())
	}, nil
}

func (n *nativeLibrary) Close() error {
	if n.handle == 0 {
		return ErrClosed
	}

	err := purego.Dlclose(n.handle)
	n.handle = 0

	return err
}

// cStringArray builds a NULL terminated char** from args. The memory stays
// pinned until the returned pinner is released
func cStringArray(args []string) (unsafe.Pointer, *runtime.Pinner) {
	pinner := new(runtime.Pinner)

	ptrs := make([]*byte, len(args)+1)
	for i, a := range args {
		b := make([]byte, len(a)+1)
		copy(b, a)

		pinner.Pin(&b[0])
		ptrs[i] = &b[0]
	}
	pinner.Pin(&ptrs[0])

	return unsafe.Pointer(&ptrs[0]), pinner
}

// compile time checks
var (
	_ Opener  = NativeOpener{}
	_ Library = &nativeLibrary{}
)
