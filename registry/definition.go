package registry

import "reflect"

// Scope names the built-in scopes; any other string is a custom scope
// resolved through a registered ScopeHandler.
type Scope string

const (
	ScopeSingleton Scope = "singleton"
	ScopePrototype Scope = "prototype"
)

// Role distinguishes application beans from infrastructure beans, which
// changes the default duplicate-registration policy.
type Role int

const (
	RoleApplication Role = iota
	RoleInfrastructure
)

// ValueKind tags what a ValueHolder actually carries.
type ValueKind int

const (
	// ValueLiteral holds a plain Go value (or a string possibly containing
	// ${...} placeholders, expanded during population).
	ValueLiteral ValueKind = iota
	// ValueReference holds the canonical or alias name of another bean.
	ValueReference
	// ValueNested holds an inline definition for an anonymous inner bean.
	ValueNested
)

// ValueHolder is one constructor argument or property value: a literal, a
// reference by name, or a nested bean definition.
type ValueHolder struct {
	Kind    ValueKind
	Literal interface{}
	RefName string
	Nested  *BeanDefinition
}

// Literal builds a literal ValueHolder.
func Literal(v interface{}) ValueHolder { return ValueHolder{Kind: ValueLiteral, Literal: v} }

// Ref builds a by-name reference ValueHolder.
func Ref(name string) ValueHolder { return ValueHolder{Kind: ValueReference, RefName: name} }

// Nested builds a nested-definition ValueHolder.
func Nested(def *BeanDefinition) ValueHolder { return ValueHolder{Kind: ValueNested, Nested: def} }

// PropertyValue names one property assignment.
type PropertyValue struct {
	Name  string
	Value ValueHolder
}

// Constructor is a candidate producer function for a BeanDefinition: it
// takes already-resolved argument values and returns the built instance,
// optionally followed by an error. Go has no runtime overload resolution, so a definition
// may register several Constructors (e.g. one per exported constructor
// function) and let the resolver's selection rules pick among them by
// arity and assignability.
type Constructor struct {
	// Fn is the constructor function value, e.g. reflect.ValueOf(NewFoo).
	Fn reflect.Value
	// ArgNames optionally names each parameter, used for by-name autowire
	// tie-breaking.
	ArgNames []string
}

// FactoryMethod describes producing this bean by calling a method on
// another (already-resolved) bean: a factory-bean + factory-method pair.
type FactoryMethod struct {
	BeanName   string
	MethodName string
}

// BeanDefinition is the declarative description of how to produce one
// component.
type BeanDefinition struct {
	Name string

	// Type is the concrete Go type this definition produces, when known
	// ahead of instantiation. It may be nil for factory-bean definitions
	// whose object type is only known after invoking the factory.
	Type reflect.Type

	// Constructors holds the candidate producer functions for a
	// class-based definition. Empty for factory-bean definitions.
	Constructors []Constructor

	// Factory holds the factory-bean + factory-method pair, mutually
	// exclusive with Constructors.
	Factory *FactoryMethod

	Scope       Scope
	LazyInit    bool
	Primary     bool
	// NotAutowireCandidate excludes this definition from autowiring by
	// type. Left as a negative flag rather than an "AutowireCandidate
	// defaults true" field so the Go zero value already means "eligible".
	NotAutowireCandidate bool

	ConstructorArgs []ValueHolder
	PropertyValues  []PropertyValue

	InitMethod    string
	DestroyMethod string

	// Parent names another definition this one inherits attributes from,
	// merged (and cached) on first resolution. LazyInit, Primary,
	// NotAutowireCandidate and Role are always taken from the child, even
	// when left at their zero value; see overlay.
	Parent string

	DependsOn []string
	Role      Role

	// Annotations lists arbitrary marker strings a loader attached to this
	// definition, queried by namesByAnnotation / beansWithAnnotation.
	Annotations []string

	// merge cache, invalidated by Registry on any mutation of this or an
	// ancestor definition.
	merged      *BeanDefinition
	mergedValid bool
}

// Clone returns a shallow copy of d with fresh backing slices for the
// fields merge mutates, so merging never aliases the parent's slices.
func (d *BeanDefinition) Clone() *BeanDefinition {
	if d == nil {
		return nil
	}
	c := *d
	c.Constructors = append([]Constructor(nil), d.Constructors...)
	c.ConstructorArgs = append([]ValueHolder(nil), d.ConstructorArgs...)
	c.PropertyValues = append([]PropertyValue(nil), d.PropertyValues...)
	c.DependsOn = append([]string(nil), d.DependsOn...)
	c.Annotations = append([]string(nil), d.Annotations...)
	c.merged = nil
	c.mergedValid = false
	return &c
}

// IsSingleton reports whether d's scope is the singleton scope (the
// default when Scope is empty).
func (d *BeanDefinition) IsSingleton() bool {
	return d.Scope == "" || d.Scope == ScopeSingleton
}

// IsPrototype reports whether d's scope is exactly the prototype scope.
func (d *BeanDefinition) IsPrototype() bool {
	return d.Scope == ScopePrototype
}

// IsFactoryBean reports whether d is produced by delegating to another
// bean's factory method rather than by calling a Constructor directly.
func (d *BeanDefinition) IsFactoryBean() bool {
	return d.Factory != nil
}
