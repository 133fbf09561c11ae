// Package aop implements the advisor chain, proxy dispatch core, and
// target sources behind AOP-style proxying: the interception machinery
// that lets a proxy wrap a bean with before/after/around advice selected
// by pointcut matching.
package aop

import "reflect"

// ClassFilter restricts an advisor to targets of matching type.
type ClassFilter interface {
	Matches(targetType reflect.Type) bool
}

// ClassFilterFunc adapts a plain function to ClassFilter.
type ClassFilterFunc func(targetType reflect.Type) bool

func (f ClassFilterFunc) Matches(targetType reflect.Type) bool { return f(targetType) }

// TrueClassFilter matches every type.
var TrueClassFilter ClassFilter = ClassFilterFunc(func(reflect.Type) bool { return true })

// MethodMatcher restricts an advisor to matching methods, optionally with a
// per-invocation dynamic check (a matcher whose answer depends on the
// actual call arguments, not just the method signature).
type MethodMatcher interface {
	Matches(method reflect.Method, targetType reflect.Type) bool
	IsRuntime() bool
	MatchesArgs(method reflect.Method, targetType reflect.Type, args []reflect.Value) bool
}

// StaticMethodMatcher is a MethodMatcher whose result never depends on
// call-time arguments.
type StaticMethodMatcher func(method reflect.Method, targetType reflect.Type) bool

func (m StaticMethodMatcher) Matches(method reflect.Method, targetType reflect.Type) bool {
	return m(method, targetType)
}
func (m StaticMethodMatcher) IsRuntime() bool { return false }
func (m StaticMethodMatcher) MatchesArgs(reflect.Method, reflect.Type, []reflect.Value) bool {
	return true
}

// TrueMethodMatcher matches every method.
var TrueMethodMatcher MethodMatcher = StaticMethodMatcher(func(reflect.Method, reflect.Type) bool { return true })

// NameMethodMatcher matches methods whose name is in the given set — the
// common case for a hand-declared pointcut ("intercept these methods").
func NameMethodMatcher(names ...string) MethodMatcher {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return StaticMethodMatcher(func(method reflect.Method, _ reflect.Type) bool {
		return set[method.Name]
	})
}

// Pointcut composes a ClassFilter and a MethodMatcher.
type Pointcut struct {
	ClassFilter   ClassFilter
	MethodMatcher MethodMatcher
}

// TruePointcut matches everything.
var TruePointcut = Pointcut{ClassFilter: TrueClassFilter, MethodMatcher: TrueMethodMatcher}

// AdviceKind tags the shape of advice so the chain factory can convert it
// into a uniform Interceptor by table dispatch.
type AdviceKind int

const (
	AdviceAround AdviceKind = iota
	AdviceBefore
	AdviceAfterReturning
	AdviceAfterThrowing
)

// BeforeAdvice runs before the target method, unable to alter its result.
type BeforeAdvice func(method reflect.Method, args []reflect.Value, target interface{}) error

// AfterReturningAdvice runs after a successful invocation.
type AfterReturningAdvice func(method reflect.Method, args []reflect.Value, target interface{}, returnValues []reflect.Value)

// AfterThrowingAdvice runs after a failed invocation; err is the error the
// target method returned.
type AfterThrowingAdvice func(method reflect.Method, args []reflect.Value, target interface{}, err error)

// AroundAdvice wraps the call entirely and decides whether/how many times
// to proceed, mirroring MethodInterceptor.invoke.
type AroundAdvice func(invocation *MethodInvocation) ([]reflect.Value, error)

// Advisor pairs advice with the pointcut selecting where it applies. Order
// is the advisor's explicit ordering metadata; advisors with equal Order
// keep their registration order.
type Advisor struct {
	Name     string
	Pointcut Pointcut
	Kind     AdviceKind
	Before   BeforeAdvice
	After    AfterReturningAdvice
	Throws   AfterThrowingAdvice
	Around   AroundAdvice
	Order    int
}

// Matches reports whether this advisor applies to method on targetType,
// evaluating the class filter first and the (possibly dynamic) method
// matcher second — the cheap check runs before the potentially
// argument-dependent one.
func (a *Advisor) Matches(method reflect.Method, targetType reflect.Type) bool {
	if a.Pointcut.ClassFilter != nil && !a.Pointcut.ClassFilter.Matches(targetType) {
		return false
	}
	if a.Pointcut.MethodMatcher != nil && !a.Pointcut.MethodMatcher.Matches(method, targetType) {
		return false
	}
	return true
}
