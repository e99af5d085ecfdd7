package plugin

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/ppacher/shplug/pkg/diag"
	lua "github.com/yuin/gopher-lua"
	json "layeh.com/gopher-json"
	luar "layeh.com/gopher-luar"
)

// ScriptErrorCode is returned by a script entry point that raised an error
// or returned something other than a number or nil
const ScriptErrorCode = -1

// ScriptOpener opens Lua modules (*.lua). The entry points are global
// functions named like their native counterparts:
//
//	function on_shell_execve(user, level, cmd, argv) return 0 end
//	function plugin_init() return 0 end
//	function plugin_uninit() return 0 end
//
// argv is passed as a read-only 1-indexed sequence. The json module is
// available through require("json"). Every module gets its own Lua state.
type ScriptOpener struct {
	// Sink receives runtime errors raised by script entry points. May be nil
	Sink diag.Sink
}

// Accepts implements Opener
func (o *ScriptOpener) Accepts(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".lua")
}

// Open implements Opener
func (o *ScriptOpener) Open(path string) (Library, error) {
	L := lua.NewState()
	json.Preload(L)

	if err := L.DoFile(path); err != nil {
		L.Close()
		return nil, err
	}

	sink := o.Sink
	if sink == nil {
		sink = diag.Nop
	}

	return &scriptLibrary{L: L, path: path, sink: sink}, nil
}

type scriptLibrary struct {
	L    *lua.LState
	path string
	sink diag.Sink
}

func (s *scriptLibrary) function(name string) (*lua.LFunction, error) {
	if s.L == nil {
		return nil, ErrClosed
	}

	switch v := s.L.GetGlobal(name).(type) {
	case *lua.LFunction:
		return v, nil
	case *lua.LNilType:
		return nil, fmt.Errorf("%w: %s", ErrSymbolNotFound, name)
	default:
		return nil, fmt.Errorf("%w: %s is a %s", ErrNotAFunction, name, v.Type())
	}
}

// call invokes fn and converts its result into an int
func (s *scriptLibrary) call(name string, fn *lua.LFunction, args ...lua.LValue) int {
	if err := s.L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, args...); err != nil {
		s.fail(name, err)
		return ScriptErrorCode
	}

	ret := s.L.Get(-1)
	s.L.Pop(1)

	switch v := ret.(type) {
	case lua.LNumber:
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
			s.fail(name, fmt.Errorf("expected an integer but got %v", f))
			return ScriptErrorCode
		}
		return int(f)
	case *lua.LNilType:
		return 0
	default:
		s.fail(name, fmt.Errorf("expected a number but got a %s", v.Type()))
		return ScriptErrorCode
	}
}

func (s *scriptLibrary) fail(name string, err error) {
	s.sink.Emit(diag.Event{
		Kind:   diag.KindHandlerError,
		Path:   s.path,
		Symbol: name,
		Code:   ScriptErrorCode,
		Err:    err,
	})
}

func (s *scriptLibrary) LookupExecve(name string) (ExecveFunc, error) {
	fn, err := s.function(name)
	if err != nil {
		return nil, err
	}

	return func(user string, level int, cmd string, argv []string) int {
		return s.call(name, fn, lua.LString(user), lua.LNumber(level), lua.LString(cmd), luar.New(s.L, argv))
	}, nil
}

func (s *scriptLibrary) LookupLifecycle(name string) (LifecycleFunc, error) {
	fn, err := s.function(name)
	if err != nil {
		return nil, err
	}

	return func() int {
		return s.call(name, fn)
	}, nil
}

func (s *scriptLibrary) Close() error {
	if s.L == nil {
		return ErrClosed
	}

	s.L.Close()
	s.L = nil

	return nil
}

// compile time checks
var (
	_ Opener  = &ScriptOpener{}
	_ Library = &scriptLibrary{}
)
