package viz

import (
	"sort"

	"claimviz.ai/internal/sim/tuning"
)

// Factory creates a visualization; it must not draw anything yet.
type Factory func(env *Env, p Params) Visualization

// Registry maps provider keys to factories. It is filled once at startup.
type Registry struct {
	defaultKey string
	factories  map[string]Factory
}

func NewRegistry(defaultKey string) *Registry {
	return &Registry{defaultKey: defaultKey, factories: map[string]Factory{}}
}

// BuiltinRegistry registers the five built-in families.
func BuiltinRegistry(defaultKey string) *Registry {
	r := NewRegistry(defaultKey)
	r.Register(tuning.ProviderBlockDisplay, NewBlockDisplay)
	r.Register(tuning.ProviderBlockDisplayLine, NewBlockDisplayLine)
	r.Register(tuning.ProviderShulkerBullet, NewShulkerBullet)
	r.Register(tuning.ProviderBlock, NewFakeBlock)
	r.Register(tuning.ProviderAntiCheatCompat, NewAntiCheatCompat)
	return r
}

func (r *Registry) Register(key string, f Factory) {
	r.factories[key] = f
}

func (r *Registry) DefaultKey() string { return r.defaultKey }

// Resolve returns the factory for key, falling back to the default provider
// for empty or unknown keys.
func (r *Registry) Resolve(key string) (string, Factory) {
	if f, ok := r.factories[key]; ok && key != "" {
		return key, f
	}
	return r.defaultKey, r.factories[r.defaultKey]
}

func (r *Registry) Keys() []string {
	out := make([]string, 0, len(r.factories))
	for k := range r.factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
