package plugin

// Dispatch calls on_shell_execve of every registered module in load order.
// The first non-zero result stops the chain and is returned; modules after
// the vetoing one are not called. Dispatch returns 0 if all modules allowed
// the execve or the registry is empty
func Dispatch(r *Registry, user string, level int, cmd string, argv []string) int {
	code, _ := dispatch(r, user, level, cmd, argv)
	return code
}

// dispatch is like Dispatch but also returns the vetoing module
func dispatch(r *Registry, user string, level int, cmd string, argv []string) (int, *Handle) {
	for _, h := range r.handles {
		if code := h.OnShellExecve(user, level, cmd, argv); code != 0 {
			return code, h
		}
	}

	return 0, nil
}
