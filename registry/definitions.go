// Package registry implements the definition registry and alias registry:
// storage for BeanDefinitions keyed by canonical name, and the
// many-to-one alias map layered in front of it.
package registry

import (
	"reflect"
	"sort"
	"sync"

	"github.com/jrivets/log4g"
	"github.com/km-arc/go-ioc-container/cerrors"
	"github.com/mohae/deepcopy"
)

var logger = log4g.GetLogger("registry")

// DuplicatePolicy controls what Register does when a name is already
// registered.
type DuplicatePolicy int

const (
	PolicyReplace DuplicatePolicy = iota
	PolicyReject
	PolicyKeepFirst
)

// Registry stores BeanDefinitions keyed by canonical name.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]*BeanDefinition

	// namesSnap is a copy-on-write cache of Names(), invalidated on any
	// mutation so enumeration during concurrent mutation is deterministic.
	namesSnap []string
	snapValid bool

	frozen bool

	// PolicyForRole overrides the default policy (replace for
	// application-role beans, reject for infrastructure-role beans).
	// Left nil to use the default.
	PolicyForRole func(Role) DuplicatePolicy

	// typeIndex caches namesByType results once the registry is frozen,
	// since a frozen registry can never change its type shape again.
	typeIndex map[reflect.Type][]string
}

// NewRegistry creates an empty DefinitionRegistry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*BeanDefinition)}
}

func (r *Registry) policyFor(role Role) DuplicatePolicy {
	if r.PolicyForRole != nil {
		return r.PolicyForRole(role)
	}
	if role == RoleInfrastructure {
		return PolicyReject
	}
	return PolicyReplace
}

// Register stores def under name, applying the duplicate policy for def's
// role when name is already registered.
func (r *Registry) Register(name string, def *BeanDefinition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return cerrors.New(cerrors.KindConfigurationFrozen, name, "registry is frozen")
	}

	if existing, ok := r.defs[name]; ok {
		switch r.policyFor(def.Role) {
		case PolicyReject:
			return cerrors.New(cerrors.KindNameConflict, name, "definition already registered")
		case PolicyKeepFirst:
			_ = existing
			return nil
		case PolicyReplace:
			// fall through to overwrite
		}
	}

	def.Name = name
	r.defs[name] = def
	r.invalidateLocked()
	logger.Debug("registered definition ", name)
	return nil
}

// Remove deletes name's definition, invalidating any merge caches that
// depended on it as a parent.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return cerrors.New(cerrors.KindConfigurationFrozen, name, "registry is frozen")
	}
	if _, ok := r.defs[name]; !ok {
		return cerrors.New(cerrors.KindNoSuchBean, name, "no such definition")
	}
	delete(r.defs, name)
	r.invalidateLocked()
	return nil
}

// Get returns the raw (unmerged) definition registered under name.
func (r *Registry) Get(name string) (*BeanDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.defs[name]
	return d, ok
}

// Contains reports whether name has a registered definition.
func (r *Registry) Contains(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.defs[name]
	return ok
}

// Count returns the number of registered definitions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.defs)
}

// Names returns a stable snapshot of all registered canonical names.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.snapValid {
		out := make([]string, len(r.namesSnap))
		copy(out, r.namesSnap)
		return out
	}
	names := make([]string, 0, len(r.defs))
	for n := range r.defs {
		names = append(names, n)
	}
	sort.Strings(names)
	r.namesSnap = names
	r.snapValid = true
	out := make([]string, len(names))
	copy(out, names)
	return out
}

func (r *Registry) invalidateLocked() {
	r.snapValid = false
	r.typeIndex = nil
	for _, d := range r.defs {
		d.mergedValid = false
	}
}

// FreezeConfiguration prevents any further mutation. Once frozen, the type
// index may be cached permanently.
func (r *Registry) FreezeConfiguration() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Frozen reports whether FreezeConfiguration has been called.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

// Merged returns the fully-merged view of name's definition, resolving and
// caching the parent chain: the merge is cached and invalidated on
// mutation. It does not mutate the stored definition beyond the cache
// fields.
func (r *Registry) Merged(name string) (*BeanDefinition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mergedLocked(name, make(map[string]bool))
}

func (r *Registry) mergedLocked(name string, seen map[string]bool) (*BeanDefinition, error) {
	d, ok := r.defs[name]
	if !ok {
		return nil, cerrors.New(cerrors.KindNoSuchBean, name, "no such definition")
	}
	if d.mergedValid && d.merged != nil {
		return d.merged, nil
	}
	if d.Parent == "" {
		merged := d.Clone()
		d.merged, d.mergedValid = merged, true
		return merged, nil
	}
	if seen[name] {
		return nil, cerrors.New(cerrors.KindBeanCreation, name, "parent chain cycles back to itself")
	}
	seen[name] = true
	parentMerged, err := r.mergedLocked(d.Parent, seen)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.KindBeanCreation, name, err, "resolving parent %q", d.Parent)
	}

	merged := parentMerged.Clone()
	overlay(merged, d)
	d.merged, d.mergedValid = merged, true
	return merged, nil
}

// overlay applies child's explicitly-set attributes onto base (which
// started as a clone of the merged parent): scope/lazy-init/primary/
// autowire-candidate/role are owned by the child outright; constructor
// args are fully replaced when the child supplies any; property values
// and depends-on/annotations are merged by union so a child only needs to
// state what it adds.
func overlay(base, child *BeanDefinition) {
	base.Name = child.Name
	if child.Type != nil {
		base.Type = child.Type
	}
	if child.Factory != nil {
		base.Factory = child.Factory
	}
	if len(child.Constructors) > 0 {
		base.Constructors = append([]Constructor(nil), child.Constructors...)
	}
	if child.Scope != "" {
		base.Scope = child.Scope
	}
	base.LazyInit = child.LazyInit
	base.Primary = child.Primary
	base.NotAutowireCandidate = child.NotAutowireCandidate
	base.Role = child.Role

	if len(child.ConstructorArgs) > 0 {
		base.ConstructorArgs = append([]ValueHolder(nil), child.ConstructorArgs...)
	}

	base.PropertyValues = mergeProperties(base.PropertyValues, child.PropertyValues)

	if child.InitMethod != "" {
		base.InitMethod = child.InitMethod
	}
	if child.DestroyMethod != "" {
		base.DestroyMethod = child.DestroyMethod
	}
	base.DependsOn = unionStrings(base.DependsOn, child.DependsOn)
	base.Annotations = unionStrings(base.Annotations, child.Annotations)
	base.Parent = ""
}

// mergeProperties overlays child properties onto parent by name, deep
// copying carried-forward literal values so no two merged definitions ever
// alias the same backing map or slice.
func mergeProperties(parent, child []PropertyValue) []PropertyValue {
	byName := make(map[string]int, len(parent))
	out := make([]PropertyValue, len(parent))
	for i, pv := range parent {
		cp := pv
		if pv.Value.Kind == ValueLiteral && pv.Value.Literal != nil {
			cp.Value.Literal = deepcopy.Copy(pv.Value.Literal)
		}
		out[i] = cp
		byName[pv.Name] = i
	}
	for _, pv := range child {
		if idx, ok := byName[pv.Name]; ok {
			out[idx] = pv
		} else {
			out = append(out, pv)
			byName[pv.Name] = len(out) - 1
		}
	}
	return out
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range append(append([]string(nil), a...), b...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// FactoryTypeResolver lets the caller (the resolver/factory package) tell
// NamesByType what type a factory-bean definition would produce, without
// this package needing to know how to instantiate anything. It returns
// (type, true) when known, (nil, false) when the type cannot be determined
// without instantiation and allowEagerInit is false.
type FactoryTypeResolver func(def *BeanDefinition, allowEagerInit bool) (reflect.Type, bool)

// NamesByType returns the names of all definitions whose produced type is
// t or assignable to t, honoring includeNonSingletons/allowEagerInit for
// a factory-bean's getObjectType==nil resolution (skip unless eager init
// is allowed).
func (r *Registry) NamesByType(t reflect.Type, includeNonSingletons, allowEagerInit bool, resolveFactoryType FactoryTypeResolver) []string {
	r.mu.RLock()
	if r.frozen && r.typeIndex != nil {
		if names, ok := r.typeIndex[t]; ok {
			out := make([]string, len(names))
			copy(out, names)
			r.mu.RUnlock()
			return out
		}
	}
	defs := make(map[string]*BeanDefinition, len(r.defs))
	for n, d := range r.defs {
		defs[n] = d
	}
	frozen := r.frozen
	r.mu.RUnlock()

	var out []string
	for _, name := range sortedKeys(defs) {
		d := defs[name]
		if !includeNonSingletons && !d.IsSingleton() {
			continue
		}
		candidateType := d.Type
		if d.IsFactoryBean() && candidateType == nil {
			if resolveFactoryType == nil {
				continue
			}
			resolved, ok := resolveFactoryType(d, allowEagerInit)
			if !ok {
				continue
			}
			candidateType = resolved
		}
		if candidateType == nil {
			continue
		}
		if candidateType == t || (t.Kind() == reflect.Interface && candidateType.Implements(t)) || candidateType.AssignableTo(t) {
			out = append(out, name)
		}
	}

	if frozen {
		r.mu.Lock()
		if r.typeIndex == nil {
			r.typeIndex = make(map[reflect.Type][]string)
		}
		r.typeIndex[t] = out
		r.mu.Unlock()
	}
	return out
}

// NamesByAnnotation returns the names of all definitions carrying ann.
func (r *Registry) NamesByAnnotation(ann string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for _, name := range sortedKeys(r.defs) {
		for _, a := range r.defs[name].Annotations {
			if a == ann {
				out = append(out, name)
				break
			}
		}
	}
	return out
}

func sortedKeys(m map[string]*BeanDefinition) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
