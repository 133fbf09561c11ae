package factory

import (
	"context"
	"reflect"

	"github.com/km-arc/go-ioc-container/cerrors"
	"github.com/km-arc/go-ioc-container/registry"
	"github.com/mitchellh/mapstructure"
)

// instantiate selects a constructor or factory method and invokes it (spec
// §4.4 step 6.a-c).
func (f *Factory) instantiate(ctx context.Context, name string, def *registry.BeanDefinition, explicitArgs []interface{}) (interface{}, error) {
	if def.Factory != nil {
		return f.instantiateViaFactoryMethod(ctx, name, def)
	}
	if len(explicitArgs) > 0 {
		return f.instantiateWithArgs(name, def, explicitArgs)
	}
	return f.instantiateByConstructorSelection(ctx, name, def)
}

func (f *Factory) instantiateViaFactoryMethod(ctx context.Context, name string, def *registry.BeanDefinition) (interface{}, error) {
	factoryBean, err := f.getBean(ctx, def.Factory.BeanName, nil)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.KindUnresolvableDependency, name, err, "resolving factory bean %q", def.Factory.BeanName)
	}
	v := reflect.ValueOf(factoryBean)
	m := v.MethodByName(def.Factory.MethodName)
	if !m.IsValid() {
		return nil, cerrors.New(cerrors.KindBeanCreation, name, "factory bean has no method "+def.Factory.MethodName)
	}
	args, err := f.resolveArgList(ctx, name, def.ConstructorArgs, m.Type())
	if err != nil {
		return nil, err
	}
	return callAndUnwrap(m, args)
}

func (f *Factory) instantiateWithArgs(name string, def *registry.BeanDefinition, explicitArgs []interface{}) (interface{}, error) {
	for _, c := range def.Constructors {
		t := c.Fn.Type()
		if t.NumIn() != len(explicitArgs) {
			continue
		}
		args := make([]reflect.Value, len(explicitArgs))
		ok := true
		for i, a := range explicitArgs {
			av := reflect.ValueOf(a)
			if a == nil || !av.Type().AssignableTo(t.In(i)) {
				ok = false
				break
			}
			args[i] = av
		}
		if ok {
			return callAndUnwrap(c.Fn, args)
		}
	}
	return nil, cerrors.New(cerrors.KindAmbiguousConstructor, name, "no registered constructor matches the supplied arguments")
}

// instantiateByConstructorSelection picks a constructor when no explicit
// argument list is declared: exact argument-count match first, then greedy
// type assignability from autowired candidates; ties broken by most
// arguments, most specific types, then declaration order.
func (f *Factory) instantiateByConstructorSelection(ctx context.Context, name string, def *registry.BeanDefinition) (interface{}, error) {
	if len(def.Constructors) == 0 {
		return nil, cerrors.New(cerrors.KindAmbiguousConstructor, name, "no constructors registered")
	}

	if len(def.ConstructorArgs) > 0 {
		for _, c := range def.Constructors {
			if c.Fn.Type().NumIn() == len(def.ConstructorArgs) {
				args, err := f.resolveArgList(ctx, name, def.ConstructorArgs, c.Fn.Type())
				if err != nil {
					return nil, err
				}
				return callAndUnwrap(c.Fn, args)
			}
		}
		return nil, cerrors.New(cerrors.KindAmbiguousConstructor, name, "no constructor matches the declared argument count")
	}

	type candidate struct {
		idx  int
		c    registry.Constructor
		args []reflect.Value
	}
	var best *candidate
	bestScore := -1

	// rejected records why each candidate that didn't resolve was passed
	// over, so a final failure carries them as suppressed causes instead of
	// silently discarding everything but the last attempt.
	var rejected []error

	for i, c := range def.Constructors {
		t := c.Fn.Type()
		args := make([]reflect.Value, t.NumIn())
		resolvable := true
		specificity := 0
		for p := 0; p < t.NumIn(); p++ {
			pt := t.In(p)
			argName := ""
			if p < len(c.ArgNames) {
				argName = c.ArgNames[p]
			}
			bean, err := f.AutowireByType(ctx, pt, argName)
			if err != nil {
				resolvable = false
				rejected = append(rejected, cerrors.Wrap(cerrors.KindUnresolvableDependency, name, err,
					"constructor %d parameter %d (%s) unresolvable", i, p, pt))
				break
			}
			args[p] = reflect.ValueOf(bean)
			specificity += typeSpecificity(pt)
		}
		if !resolvable {
			continue
		}
		score := t.NumIn()*1000 + specificity
		if score > bestScore {
			bestScore = score
			best = &candidate{idx: i, c: c, args: args}
		}
	}

	if best == nil {
		err := cerrors.New(cerrors.KindAmbiguousConstructor, name, "no constructor's parameters could all be autowired")
		for _, r := range rejected {
			err.AddSuppressed(r)
		}
		return nil, err
	}
	return callAndUnwrap(best.c.Fn, best.args)
}

// typeSpecificity gives concrete types more weight than interfaces, so a
// tie between two otherwise-equal candidates prefers the more specific one.
func typeSpecificity(t reflect.Type) int {
	if t.Kind() == reflect.Interface {
		return 0
	}
	return 1
}

func (f *Factory) resolveArgList(ctx context.Context, name string, values []registry.ValueHolder, fnType reflect.Type) ([]reflect.Value, error) {
	args := make([]reflect.Value, len(values))
	for i, vh := range values {
		var target reflect.Type
		if fnType != nil && i < fnType.NumIn() {
			target = fnType.In(i)
		}
		rv, err := f.resolveValue(ctx, name, vh, target)
		if err != nil {
			return nil, err
		}
		args[i] = rv
	}
	return args, nil
}

// populateProperties sets each declared property value on raw, resolving
// references/literals/nested definitions the same way constructor
// arguments are resolved.
func (f *Factory) populateProperties(ctx context.Context, name string, def *registry.BeanDefinition, raw interface{}) error {
	if len(def.PropertyValues) == 0 {
		return nil
	}
	v := reflect.ValueOf(raw)
	for v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}

	for _, pv := range def.PropertyValues {
		field := v.FieldByName(pv.Name)
		if !field.IsValid() || !field.CanSet() {
			continue
		}
		resolved, err := f.resolveValue(ctx, name, pv.Value, field.Type())
		if err != nil {
			return cerrors.Wrap(cerrors.KindBeanCreation, name, err, "resolving property %q", pv.Name)
		}
		if resolved.IsValid() {
			field.Set(resolved)
		}
	}
	return nil
}

// resolveValue turns one ValueHolder into a reflect.Value assignable to
// target: references recurse through getBean, literals go through
// placeholder expansion and mapstructure conversion, nested definitions
// are built inline as anonymous beans.
func (f *Factory) resolveValue(ctx context.Context, owner string, vh registry.ValueHolder, target reflect.Type) (reflect.Value, error) {
	switch vh.Kind {
	case registry.ValueReference:
		bean, err := f.getBean(ctx, vh.RefName, nil)
		if err != nil {
			return reflect.Value{}, cerrors.Wrap(cerrors.KindUnresolvableDependency, owner, err, "resolving reference %q", vh.RefName)
		}
		return reflect.ValueOf(bean), nil

	case registry.ValueNested:
		nested := vh.Nested
		if nested.Name == "" {
			nested.Name = owner + "#anonymous"
		}
		obj, err := f.createBean(ctx, nested.Name, nested, nil)
		if err != nil {
			return reflect.Value{}, err
		}
		f.Singletons.RegisterContained(owner, nested.Name)
		return reflect.ValueOf(obj), nil

	default:
		return f.resolveLiteral(vh.Literal, target)
	}
}

// resolveLiteral expands placeholders in string literals and converts the
// result to target via mapstructure's weakly-typed decoding, so a
// configuration string like "8080" can populate an int field without a
// hand-written parser per type.
func (f *Factory) resolveLiteral(lit interface{}, target reflect.Type) (reflect.Value, error) {
	if s, ok := lit.(string); ok && f.Placehold != nil {
		expanded, err := f.Placehold.Expand(s, f.Lookup)
		if err != nil {
			return reflect.Value{}, err
		}
		lit = expanded
	}

	if target == nil {
		return reflect.ValueOf(lit), nil
	}
	if lit == nil {
		return reflect.Zero(target), nil
	}
	if reflect.TypeOf(lit).AssignableTo(target) {
		return reflect.ValueOf(lit), nil
	}

	out := reflect.New(target)
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out.Interface(),
	})
	if err != nil {
		return reflect.Value{}, err
	}
	if err := dec.Decode(lit); err != nil {
		return reflect.Value{}, cerrors.Wrap(cerrors.KindBeanCreation, "", err, "converting literal value")
	}
	return out.Elem(), nil
}

func callAndUnwrap(fn reflect.Value, args []reflect.Value) (interface{}, error) {
	results := fn.Call(args)
	switch len(results) {
	case 1:
		return results[0].Interface(), nil
	case 2:
		var err error
		if e, ok := results[1].Interface().(error); ok {
			err = e
		}
		return results[0].Interface(), err
	default:
		return nil, cerrors.New(cerrors.KindBeanCreation, "", "constructor must return (value) or (value, error)")
	}
}
