package aop

import (
	"reflect"
	"sort"
	"sync"

	"github.com/jrivets/gorivets"
)

// Interceptor is the uniform shape every advice kind is converted into: it
// receives the in-flight invocation and decides whether/how to call
// inv.Proceed().
type Interceptor interface {
	Invoke(inv *MethodInvocation) ([]reflect.Value, error)
}

// InterceptorFunc adapts a plain function to Interceptor.
type InterceptorFunc func(inv *MethodInvocation) ([]reflect.Value, error)

func (f InterceptorFunc) Invoke(inv *MethodInvocation) ([]reflect.Value, error) { return f(inv) }

func toInterceptor(a *Advisor) Interceptor {
	switch a.Kind {
	case AdviceBefore:
		advice := a.Before
		return InterceptorFunc(func(inv *MethodInvocation) ([]reflect.Value, error) {
			if err := advice(inv.Method, inv.Args, inv.Target); err != nil {
				return nil, err
			}
			return inv.Proceed()
		})
	case AdviceAfterReturning:
		advice := a.After
		return InterceptorFunc(func(inv *MethodInvocation) ([]reflect.Value, error) {
			results, err := inv.Proceed()
			if err == nil {
				advice(inv.Method, inv.Args, inv.Target, results)
			}
			return results, err
		})
	case AdviceAfterThrowing:
		advice := a.Throws
		return InterceptorFunc(func(inv *MethodInvocation) ([]reflect.Value, error) {
			results, err := inv.Proceed()
			if err != nil {
				advice(inv.Method, inv.Args, inv.Target, err)
			}
			return results, err
		})
	default:
		around := a.Around
		return InterceptorFunc(func(inv *MethodInvocation) ([]reflect.Value, error) {
			return around(inv)
		})
	}
}

// dynamicInterceptor wraps an advisor whose MethodMatcher is runtime
// (IsRuntime true): it re-checks MatchesArgs on every call and skips
// straight to Proceed() when the dynamic check fails.
type dynamicInterceptor struct {
	advisor    *Advisor
	inner      Interceptor
	targetType reflect.Type
}

func (d *dynamicInterceptor) Invoke(inv *MethodInvocation) ([]reflect.Value, error) {
	if !d.advisor.Pointcut.MethodMatcher.MatchesArgs(inv.Method, d.targetType, inv.Args) {
		return inv.Proceed()
	}
	return d.inner.Invoke(inv)
}

type chainKey struct {
	method     string
	targetType reflect.Type
}

// Chain computes and caches interceptor lists per (method, target-class).
type Chain struct {
	mu       sync.RWMutex
	advisors []*Advisor
	cache    gorivets.LRU
}

// NewChain creates an empty AdvisorChain with an LRU cache bounded by
// maxEntries.
func NewChain(maxEntries int64) *Chain {
	return &Chain{cache: gorivets.NewLRU(maxEntries, nil)}
}

// SetAdvisors replaces the advisor list and invalidates the cache, since a
// changed advisor list can change which interceptors apply to a cached
// key. Advisors are stably sorted by Order, ties kept in registration
// order.
func (c *Chain) SetAdvisors(advisors []*Advisor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sorted := append([]*Advisor(nil), advisors...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Order < sorted[j].Order })
	c.advisors = sorted
	c.cache.Clear()
}

// For returns the interceptor list applicable to method on targetType,
// computing and caching it on first request.
func (c *Chain) For(method reflect.Method, targetType reflect.Type) []Interceptor {
	key := chainKey{method: method.Name, targetType: targetType}

	c.mu.RLock()
	if v, ok := c.cache.Get(key); ok {
		c.mu.RUnlock()
		return v.([]Interceptor)
	}
	advisors := c.advisors
	c.mu.RUnlock()

	var chain []Interceptor
	for _, a := range advisors {
		if !a.Matches(method, targetType) {
			continue
		}
		interceptor := toInterceptor(a)
		if a.Pointcut.MethodMatcher != nil && a.Pointcut.MethodMatcher.IsRuntime() {
			interceptor = &dynamicInterceptor{advisor: a, inner: interceptor, targetType: targetType}
		}
		chain = append(chain, interceptor)
	}

	c.mu.Lock()
	c.cache.Add(key, chain, 1)
	c.mu.Unlock()

	return chain
}
