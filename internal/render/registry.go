package render

import (
	"sort"
	"sync"

	"github.com/rendis/flowscript/pkg/schema"
)

// Registry maps element kinds to their renderers. It is safe for concurrent
// use and is typically built once and shared by every run.
type Registry struct {
	mu        sync.RWMutex
	renderers map[schema.Kind]Renderer
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		renderers: make(map[schema.Kind]Renderer),
	}
}

// Register adds a renderer for kind. Returns error on duplicate kind.
func (r *Registry) Register(kind schema.Kind, renderer Renderer) error {
	if renderer == nil {
		return schema.NewError(schema.ErrCodeValidation, "renderer is nil")
	}
	if kind == "" {
		return schema.NewError(schema.ErrCodeValidation, "renderer kind is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.renderers[kind]; exists {
		return schema.NewErrorf(schema.ErrCodeConflict, "renderer for %q already registered", kind)
	}
	r.renderers[kind] = renderer
	return nil
}

// Get retrieves the renderer for kind.
func (r *Registry) Get(kind schema.Kind) (Renderer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	renderer, ok := r.renderers[kind]
	return renderer, ok
}

// Has checks if a renderer is registered for kind.
func (r *Registry) Has(kind schema.Kind) bool {
	_, ok := r.Get(kind)
	return ok
}

// Kinds returns the registered kinds, sorted.
func (r *Registry) Kinds() []schema.Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]schema.Kind, 0, len(r.renderers))
	for k := range r.renderers {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// RegisterBuiltins registers the renderers for every terminal kind.
// Decisions, loops and the start element are structural and handled by the
// transpiler; text templates have no renderer.
func RegisterBuiltins(r *Registry) error {
	builtins := []struct {
		kind     schema.Kind
		renderer Renderer
	}{
		{schema.KindActionCall, RendererFunc(renderAction)},
		{schema.KindSubflow, RendererFunc(renderSubflow)},
		{schema.KindRecordLookup, RendererFunc(renderLookup)},
		{schema.KindRecordCreate, RendererFunc(renderCreate)},
		{schema.KindRecordUpdate, RendererFunc(renderUpdate)},
		{schema.KindRecordDelete, RendererFunc(renderDelete)},
		{schema.KindAssignment, RendererFunc(renderAssignment)},
		{schema.KindFormula, RendererFunc(renderFormula)},
		{schema.KindScreen, RendererFunc(renderScreen)},
	}
	for _, b := range builtins {
		if err := r.Register(b.kind, b.renderer); err != nil {
			return err
		}
	}
	return nil
}

// NewDefaultRegistry returns a registry with every builtin renderer.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	if err := RegisterBuiltins(r); err != nil {
		panic(err)
	}
	return r
}
