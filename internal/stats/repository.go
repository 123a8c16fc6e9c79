package stats

import (
	"fmt"
	"sort"
)

// Repository holds stat definitions and every live owner.
type Repository struct {
	defs      map[StatID]Definition
	byName    map[string]StatID
	owners    map[int64]*Owner
	order     []int64
	nextID    int64
	algorithm Algorithm
}

// RepositoryOption configures a Repository.
type RepositoryOption func(*Repository)

// WithAlgorithm replaces DefaultAlgorithm for every owner the repository
// creates.
func WithAlgorithm(a Algorithm) RepositoryOption {
	return func(r *Repository) {
		r.algorithm = a
	}
}

// NewRepository creates an empty repository.
func NewRepository(opts ...RepositoryOption) *Repository {
	r := &Repository{
		defs:      make(map[StatID]Definition),
		byName:    make(map[string]StatID),
		owners:    make(map[int64]*Owner),
		algorithm: DefaultAlgorithm{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Define registers stat definitions. Ids and names must be unique.
func (r *Repository) Define(defs ...Definition) error {
	for _, d := range defs {
		if d.Name == "" {
			return fmt.Errorf("define stat %d: empty name", d.ID)
		}
		if prev, ok := r.defs[d.ID]; ok {
			return fmt.Errorf("define stat %q: id %d already used by %q", d.Name, d.ID, prev.Name)
		}
		if _, ok := r.byName[d.Name]; ok {
			return fmt.Errorf("define stat %q: name already defined", d.Name)
		}
		r.defs[d.ID] = d
		r.byName[d.Name] = d.ID
	}
	return nil
}

// Lookup resolves a stat name to its id.
func (r *Repository) Lookup(name string) (StatID, bool) {
	id, ok := r.byName[name]
	return id, ok
}

// Name returns the name of a stat id, or "" when undefined.
func (r *Repository) Name(id StatID) string {
	return r.defs[id].Name
}

// Definitions returns every definition ordered by id.
func (r *Repository) Definitions() []Definition {
	out := make([]Definition, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// CreateOwner creates an owner with the next id. Ids start at 1 and are never
// reused.
func (r *Repository) CreateOwner() *Owner {
	r.nextID++
	o := NewOwner(r.nextID, r.algorithm)
	r.owners[o.id] = o
	r.order = append(r.order, o.id)
	return o
}

// GetOwner returns the owner with id, or nil.
func (r *Repository) GetOwner(id int64) *Owner {
	return r.owners[id]
}

// RemoveOwner forgets an owner. Later GetOwner calls return nil.
func (r *Repository) RemoveOwner(o *Owner) {
	if o == nil {
		return
	}
	if _, ok := r.owners[o.id]; !ok {
		return
	}
	delete(r.owners, o.id)
	for i, id := range r.order {
		if id == o.id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Owners returns live owners in creation order.
func (r *Repository) Owners() []*Owner {
	out := make([]*Owner, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.owners[id])
	}
	return out
}

// RefreshStats refreshes every owner's stats.
func (r *Repository) RefreshStats() {
	for _, o := range r.Owners() {
		o.RefreshStats()
	}
}

// RefreshModifiers rebuilds every owner's rule-derived modifiers and refreshes
// its stats.
func (r *Repository) RefreshModifiers() {
	for _, o := range r.Owners() {
		o.RefreshModifiers()
	}
}
