package factory

import (
	"context"
	"reflect"

	"github.com/km-arc/go-ioc-container/cerrors"
)

// AutowireByType resolves the single bean assignable to t, exactly as
// constructor-argument resolution does internally, but exposed for callers
// building objects outside the container: candidates are filtered by
// autowire-candidate, then by primary, then falls back to matching
// preferredName before failing.
func (f *Factory) AutowireByType(ctx context.Context, t reflect.Type, preferredName string) (interface{}, error) {
	names := f.filterAutowireCandidates(f.Registry.NamesByType(t, true, false, f.resolveFactoryBeanType))
	if len(names) == 0 {
		return nil, cerrors.New(cerrors.KindUnresolvableDependency, t.String(), "no autowire candidate for type")
	}
	if len(names) == 1 {
		return f.GetBean(ctx, names[0])
	}
	if primary, ok := f.pickPrimary(names); ok {
		return f.GetBean(ctx, primary)
	}
	if preferredName != "" {
		for _, n := range names {
			if n == preferredName || f.Aliases.CanonicalName(preferredName) == n {
				return f.GetBean(ctx, n)
			}
		}
	}
	return nil, cerrors.New(cerrors.KindUnresolvableDependency, t.String(),
		"multiple autowire candidates, none primary and none matching the injection point name")
}

// AutowireStruct populates every exported, zero-valued field of target
// (a pointer to struct) whose type has a registered autowire candidate,
// using the field name as the by-name tie-break. Fields the container
// cannot resolve are left untouched rather than failing, mirroring
// optional-dependency semantics; use AutowireByType directly for
// mandatory fields.
func (f *Factory) AutowireStruct(ctx context.Context, target interface{}) error {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return cerrors.New(cerrors.KindBeanCreation, "", "AutowireStruct requires a pointer to struct")
	}
	v = v.Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := v.Field(i)
		if !field.CanSet() || !field.IsZero() {
			continue
		}
		bean, err := f.AutowireByType(ctx, field.Type(), t.Field(i).Name)
		if err != nil {
			continue
		}
		bv := reflect.ValueOf(bean)
		if bv.Type().AssignableTo(field.Type()) {
			field.Set(bv)
		}
	}
	return nil
}
