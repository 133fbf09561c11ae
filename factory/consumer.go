package factory

import (
	"context"
	"reflect"
	"strings"

	"github.com/km-arc/go-ioc-container/cerrors"
)

// GetBeanWithArgs resolves name using explicit constructor/factory-method
// arguments instead of the definition's own ConstructorArgs. Passing args
// bypasses the ready-singleton fast path the same way the internal
// explicitArgs plumbing already does; an already-created singleton is
// still returned as-is.
func (f *Factory) GetBeanWithArgs(ctx context.Context, name string, args ...interface{}) (interface{}, error) {
	if len(args) == 0 {
		args = nil
	}
	return f.getBean(ctx, name, args)
}

// GetBeanOfTypeWithArgs resolves the single autowire candidate assignable
// to t, exactly as GetBeanOfType does, but forwards args to its creation
// the way GetBeanWithArgs does for a bean resolved by name.
func (f *Factory) GetBeanOfTypeWithArgs(ctx context.Context, t reflect.Type, args ...interface{}) (interface{}, error) {
	names := f.filterAutowireCandidates(f.Registry.NamesByType(t, true, false, f.resolveFactoryBeanType))
	switch len(names) {
	case 0:
		return nil, cerrors.New(cerrors.KindNoSuchBean, t.String(), "no bean of the requested type")
	case 1:
		return f.GetBeanWithArgs(ctx, names[0], args...)
	default:
		if primary, ok := f.pickPrimary(names); ok {
			return f.GetBeanWithArgs(ctx, primary, args...)
		}
		return nil, cerrors.New(cerrors.KindNoUniqueBean, t.String(), "more than one candidate bean and none is primary")
	}
}

// canonicalOf strips an optional factory-bean dereference prefix and
// resolves name through the alias table, the same normalisation getBean
// applies before touching the registry or singleton store.
func canonicalOf(f *Factory, name string) string {
	return f.Aliases.CanonicalName(strings.TrimPrefix(name, "&"))
}

// ContainsBean reports whether name resolves to a registered definition or
// an externally registered singleton instance, considering aliases and
// falling back to Parent. It never triggers creation.
func (f *Factory) ContainsBean(name string) bool {
	canonical := canonicalOf(f, name)
	if f.Registry.Contains(canonical) {
		return true
	}
	if _, ok := f.Singletons.GetSingleton(canonical); ok {
		return true
	}
	if f.Parent != nil {
		return f.Parent.ContainsBean(name)
	}
	return false
}

// IsSingleton reports whether name's bean is singleton-scoped, including
// externally registered singleton instances that carry no BeanDefinition
// at all. It never triggers creation.
func (f *Factory) IsSingleton(name string) (bool, error) {
	canonical := canonicalOf(f, name)
	if def, err := f.Registry.Merged(canonical); err == nil {
		return def.IsSingleton(), nil
	}
	if _, ok := f.Singletons.GetSingleton(canonical); ok {
		return true, nil
	}
	if f.Parent != nil {
		return f.Parent.IsSingleton(name)
	}
	return false, cerrors.New(cerrors.KindNoSuchBean, canonical, "no such bean")
}

// IsPrototype reports whether name's bean is prototype-scoped. An
// externally registered singleton instance is never a prototype. It never
// triggers creation.
func (f *Factory) IsPrototype(name string) (bool, error) {
	canonical := canonicalOf(f, name)
	if def, err := f.Registry.Merged(canonical); err == nil {
		return def.IsPrototype(), nil
	}
	if _, ok := f.Singletons.GetSingleton(canonical); ok {
		return false, nil
	}
	if f.Parent != nil {
		return f.Parent.IsPrototype(name)
	}
	return false, cerrors.New(cerrors.KindNoSuchBean, canonical, "no such bean")
}

// GetType returns the produced type of name. It consults the definition's
// declared Type, then an already-ready singleton's actual runtime type; it
// never triggers creation of a bean that isn't already ready. A
// factory-method definition with no declared Type therefore has no type
// until its singleton is ready: the factory bean is not instantiated to
// ask its GetObjectType.
func (f *Factory) GetType(name string) (reflect.Type, error) {
	canonical := canonicalOf(f, name)
	if def, err := f.Registry.Merged(canonical); err == nil {
		if def.Type != nil {
			return def.Type, nil
		}
		if t, ok := f.resolveFactoryBeanType(def, false); ok {
			return t, nil
		}
	}
	if v, ok := f.Singletons.GetSingleton(canonical); ok {
		return reflect.TypeOf(v), nil
	}
	if f.Parent != nil {
		return f.Parent.GetType(name)
	}
	return nil, cerrors.New(cerrors.KindNoSuchBean, canonical, "no such bean")
}

// IsTypeMatch reports whether name's declared or actual type is t or
// assignable to it, using the same no-creation type resolution as
// GetType.
func (f *Factory) IsTypeMatch(name string, t reflect.Type) (bool, error) {
	actual, err := f.GetType(name)
	if err != nil {
		return false, err
	}
	if actual == t {
		return true, nil
	}
	if t.Kind() == reflect.Interface {
		return actual.Implements(t), nil
	}
	return actual.AssignableTo(t), nil
}

// BeansOfType resolves every bean assignable to t into a name→instance
// map, triggering creation for each candidate; unlike
// GetType/IsTypeMatch/ContainsBean this operation is documented to have
// that side effect since it hands back live instances rather than
// metadata.
func (f *Factory) BeansOfType(ctx context.Context, t reflect.Type, includeNonSingletons bool) (map[string]interface{}, error) {
	names := f.Registry.NamesByType(t, includeNonSingletons, true, f.resolveFactoryBeanType)
	out := make(map[string]interface{}, len(names))
	for _, n := range names {
		bean, err := f.GetBean(ctx, n)
		if err != nil {
			return nil, cerrors.Wrap(cerrors.KindBeanCreation, n, err, "resolving beansOfType candidate %q", n)
		}
		out[n] = bean
	}
	return out, nil
}

// BeansWithAnnotation resolves every bean whose merged definition carries
// ann into a name→instance map.
func (f *Factory) BeansWithAnnotation(ctx context.Context, ann string) (map[string]interface{}, error) {
	names := f.Registry.NamesByAnnotation(ann)
	out := make(map[string]interface{}, len(names))
	for _, n := range names {
		bean, err := f.GetBean(ctx, n)
		if err != nil {
			return nil, cerrors.Wrap(cerrors.KindBeanCreation, n, err, "resolving beansWithAnnotation candidate %q", n)
		}
		out[n] = bean
	}
	return out, nil
}

// FindAnnotationOnBean reports whether name's merged definition carries
// ann, without instantiating the bean.
func (f *Factory) FindAnnotationOnBean(name, ann string) (bool, error) {
	canonical := canonicalOf(f, name)
	def, err := f.Registry.Merged(canonical)
	if err != nil {
		if f.Parent != nil {
			return f.Parent.FindAnnotationOnBean(name, ann)
		}
		return false, err
	}
	for _, a := range def.Annotations {
		if a == ann {
			return true, nil
		}
	}
	return false, nil
}
