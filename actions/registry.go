// Package actions is the Host Controller's action registry: a lookup from
// action name to the handler function, backed by a radix tree so grouped/
// namespaced names (e.g. "billing/refund", "billing/credit") support
// prefix enumeration as well as exact lookup.
package actions

import (
	"sort"

	radix "github.com/armon/go-radix"

	"github.com/boxcast/actionhost/ioruntime"
)

// Func is a registered action: it drives an interactive session through io
// and returns the value the transaction resolves with, or an error.
type Func func(ctx *ioruntime.Context) (interface{}, error)

// Registry is a radix-indexed table of Func by name.
type Registry struct {
	tree *radix.Tree
}

// New builds an empty Registry.
func New() *Registry {
	return &Registry{tree: radix.New()}
}

// Register adds or replaces the action under name.
func (r *Registry) Register(name string, fn Func) {
	r.tree.Insert(name, fn)
}

// Lookup returns the action registered under name, if any.
func (r *Registry) Lookup(name string) (Func, bool) {
	v, ok := r.tree.Get(name)
	if !ok {
		return nil, false
	}
	return v.(Func), true
}

// Names returns every registered action name, sorted, for use building the
// INITIALIZE_HOST callableActionNames list.
func (r *Registry) Names() []string {
	names := make([]string, 0, r.tree.Len())
	r.tree.Walk(func(name string, _ interface{}) bool {
		names = append(names, name)
		return false
	})
	sort.Strings(names)
	return names
}

// ActionMap flattens the registry into a plain map, the shape host.Config
// accepts.
func (r *Registry) ActionMap() map[string]Func {
	out := make(map[string]Func, r.tree.Len())
	r.tree.Walk(func(name string, v interface{}) bool {
		out[name] = v.(Func)
		return false
	})
	return out
}

// GroupedByPrefix buckets registered names under their "/"-delimited group
// prefix (the portion before the first "/", or "" for ungrouped names),
// in one Walk over the tree, for the CLI's columnized action listing.
func (r *Registry) GroupedByPrefix() map[string][]string {
	groups := map[string][]string{}
	r.tree.Walk(func(name string, _ interface{}) bool {
		group := ""
		for i := 0; i < len(name); i++ {
			if name[i] == '/' {
				group = name[:i]
				break
			}
		}
		groups[group] = append(groups[group], name)
		return false
	})
	for g := range groups {
		sort.Strings(groups[g])
	}
	return groups
}
