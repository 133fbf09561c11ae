package registry

import (
	"sync"

	"github.com/km-arc/go-ioc-container/cerrors"
)

// AliasRegistry maintains a many-to-one alias→canonical-name mapping with
// cycle detection. All mutations serialise on a single lock; reads take
// the read half of the same RWMutex, giving the common lookup path an
// uncontended fast path without a second data structure.
type AliasRegistry struct {
	mu sync.RWMutex
	// alias -> canonical
	aliases map[string]string
	// AllowOverriding permits re-pointing an existing alias to a different
	// canonical name instead of failing with NameConflict.
	AllowOverriding bool
}

// NewAliasRegistry creates an empty AliasRegistry.
func NewAliasRegistry() *AliasRegistry {
	return &AliasRegistry{aliases: make(map[string]string)}
}

// RegisterAlias maps alias to canonical. It fails with NameConflict if
// alias already maps to a different canonical name (unless AllowOverriding
// is set), and with CircularAlias if alias equals canonical or if following
// the existing chain from canonical would reach alias.
func (r *AliasRegistry) RegisterAlias(canonical, alias string) error {
	if alias == canonical {
		return cerrors.New(cerrors.KindCircularAlias, alias, "alias cannot equal its own canonical name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.aliases[alias]; ok {
		if existing == canonical {
			return nil
		}
		if !r.AllowOverriding {
			return cerrors.New(cerrors.KindNameConflict, alias,
				"already registered to a different canonical name: "+existing)
		}
	}

	if r.chainReaches(canonical, alias) {
		return cerrors.New(cerrors.KindCircularAlias, alias,
			"registering would create a cycle through "+canonical)
	}

	r.aliases[alias] = canonical
	return nil
}

// chainReaches walks the alias chain starting at name and reports whether
// it ever reaches target. Must be called with mu held.
func (r *AliasRegistry) chainReaches(name, target string) bool {
	visited := make(map[string]bool)
	cur := name
	for i := 0; i < len(r.aliases)+1; i++ {
		if cur == target {
			return true
		}
		if visited[cur] {
			return false
		}
		visited[cur] = true
		next, ok := r.aliases[cur]
		if !ok {
			return false
		}
		cur = next
	}
	return false
}

// RemoveAlias deletes alias. Fails with UnknownAlias if absent.
func (r *AliasRegistry) RemoveAlias(alias string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.aliases[alias]; !ok {
		return cerrors.New(cerrors.KindUnknownAlias, alias, "no such alias")
	}
	delete(r.aliases, alias)
	return nil
}

// IsAlias reports whether name is a registered alias.
func (r *AliasRegistry) IsAlias(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.aliases[name]
	return ok
}

// CanonicalName follows the alias chain from name to its fixed point,
// bounded by the registry size so a defensive walk can never loop forever
// even if an invariant were somehow violated. Returns name unchanged if it
// is not an alias.
func (r *AliasRegistry) CanonicalName(name string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	visited := make(map[string]bool)
	cur := name
	for i := 0; i < len(r.aliases)+1; i++ {
		next, ok := r.aliases[cur]
		if !ok {
			return cur
		}
		if visited[cur] {
			return cur
		}
		visited[cur] = true
		cur = next
	}
	return cur
}

// GetAliases returns every alias that transitively resolves to canonical.
func (r *AliasRegistry) GetAliases(canonical string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	for alias := range r.aliases {
		if r.resolvesTo(alias, canonical) {
			out = append(out, alias)
		}
	}
	return out
}

// resolvesTo reports whether following alias's chain reaches canonical.
// Must be called with mu held (read side is fine, map is not mutated).
func (r *AliasRegistry) resolvesTo(alias, canonical string) bool {
	visited := make(map[string]bool)
	cur := alias
	for i := 0; i < len(r.aliases)+1; i++ {
		if cur == canonical {
			return true
		}
		if visited[cur] {
			return false
		}
		visited[cur] = true
		next, ok := r.aliases[cur]
		if !ok {
			return false
		}
		cur = next
	}
	return false
}
