package plugin

// Handle represents a loaded module. A Handle only exists if all entry points
// have been resolved, it is never partially valid
type Handle struct {
	name string
	path string

	lib      Library
	onExecve ExecveFunc
	uninit   LifecycleFunc
}

// Name returns the filename of the module
func (h *Handle) Name() string {
	return h.name
}

// Path returns the path the module has been loaded from
func (h *Handle) Path() string {
	return h.path
}

// OnShellExecve invokes the module's on_shell_execve entry point
func (h *Handle) OnShellExecve(user string, level int, cmd string, argv []string) int {
	return h.onExecve(user, level, cmd, argv)
}

// release calls plugin_uninit and closes the library afterwards
func (h *Handle) release() (int, error) {
	code := h.uninit()
	return code, h.lib.Close()
}
