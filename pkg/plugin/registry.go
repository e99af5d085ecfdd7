package plugin

import (
	"github.com/ppacher/shplug/pkg/diag"
)

// Registry keeps loaded modules in load order. The same path may be
// registered more than once, each registration is an independent Handle.
// A Registry is not safe for concurrent use
type Registry struct {
	handles []*Handle
}

// NewRegistry returns an empty registry
func NewRegistry() *Registry {
	return &Registry{}
}

// Add appends h to the registry
func (r *Registry) Add(h *Handle) {
	r.handles = append(r.handles, h)
}

// Len returns the number of registered modules
func (r *Registry) Len() int {
	return len(r.handles)
}

// List returns a copy of all registered modules in load order
func (r *Registry) List() []*Handle {
	return append([]*Handle(nil), r.handles...)
}

// Free calls plugin_uninit on every module in load order and closes it.
// Afterwards the registry is empty. Calling Free on an empty registry does
// nothing
func (r *Registry) Free(sink diag.Sink) {
	if len(r.handles) == 0 {
		return
	}
	if sink == nil {
		sink = diag.Nop
	}

	handles := r.handles
	r.handles = nil

	for _, h := range handles {
		code, err := h.release()
		sink.Emit(diag.Event{
			Kind:   diag.KindUnloaded,
			Path:   h.path,
			Symbol: SymbolUninit,
			Code:   code,
			Err:    err,
		})
	}
}
