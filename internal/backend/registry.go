package backend

import (
	"sort"

	"github.com/tlagarde/chorus/internal/media"
)

// Factory builds a fresh adapter for one source. Adapters are single
// use, so the session asks the registry for a new one every time it
// attaches a source.
type Factory func() (Adapter, error)

// Registry maps sources to adapter factories. Which sources are
// available is a runtime configuration concern: unconfigured backends
// simply never get registered, and the session logic is unaffected.
type Registry struct {
	factories map[media.Source]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[media.Source]Factory)}
}

// Register installs the factory for a source, replacing any previous one.
func (r *Registry) Register(src media.Source, f Factory) {
	r.factories[src] = f
}

// Available reports whether a factory is registered for the source.
func (r *Registry) Available(src media.Source) bool {
	_, ok := r.factories[src]
	return ok
}

// New builds a fresh adapter for the source.
func (r *Registry) New(src media.Source) (Adapter, error) {
	f, ok := r.factories[src]
	if !ok {
		return nil, Errorf(KindFatal, "attach", "no backend configured for source %s", src)
	}
	return f()
}

// Sources lists the registered sources in stable order.
func (r *Registry) Sources() []media.Source {
	sources := make([]media.Source, 0, len(r.factories))
	for src := range r.factories {
		sources = append(sources, src)
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i] < sources[j] })
	return sources
}
