package aop

import (
	"context"
	"reflect"

	"github.com/km-arc/go-ioc-container/cerrors"
)

// TargetSource abstracts where a proxy's current target comes from: a
// plain singleton, a fresh prototype per call, a per-thread instance, a
// pooled checkout, or a hot-swappable reference.
type TargetSource interface {
	TargetType() reflect.Type
	GetTarget(ctx context.Context) (interface{}, error)
	ReleaseTarget(ctx context.Context, target interface{}) error
	IsStatic() bool
}

// Config is the immutable configuration behind a proxy: the interfaces it
// exposes, its advisors, and its target source. Two proxies with equal
// configs are considered equal.
type Config struct {
	Interfaces   []reflect.Type
	Advisors     []*Advisor
	TargetSource TargetSource
	ExposeProxy  bool
}

// Equal reports whether two configs are structurally identical.
func (c *Config) Equal(other *Config) bool {
	if other == nil || len(c.Interfaces) != len(other.Interfaces) || len(c.Advisors) != len(other.Advisors) {
		return false
	}
	for i := range c.Interfaces {
		if c.Interfaces[i] != other.Interfaces[i] {
			return false
		}
	}
	for i := range c.Advisors {
		if c.Advisors[i] != other.Advisors[i] {
			return false
		}
	}
	return c.TargetSource == other.TargetSource && c.ExposeProxy == other.ExposeProxy
}

type exposedProxyKeyT struct{}

var exposedProxyKey = exposedProxyKeyT{}

// CurrentProxy retrieves the proxy exposed into ctx by a call with
// ExposeProxy set, for advice or target code that needs to invoke another
// method on itself through the proxy rather than bypassing interception.
func CurrentProxy(ctx context.Context) (*Proxy, bool) {
	p, ok := ctx.Value(exposedProxyKey).(*Proxy)
	return p, ok
}

// Proxy is the runtime object created by CreateProxy.
type Proxy struct {
	config *Config
	chain  *Chain
}

// CreateProxy builds a Proxy over config, wiring its advisors into a fresh
// cached AdvisorChain.
func CreateProxy(config *Config, cacheSize int64) *Proxy {
	chain := NewChain(cacheSize)
	chain.SetAdvisors(config.Advisors)
	return &Proxy{config: config, chain: chain}
}

// Config returns the proxy's backing configuration.
func (p *Proxy) Config() *Config { return p.config }

// MethodInvocation is the per-call object threaded through the
// interceptor chain: proxy, target, method, args, plus the chain and the
// index into it. Proceed advances to the next interceptor or, once the
// chain is exhausted, invokes the target method directly.
type MethodInvocation struct {
	Proxy  *Proxy
	Target interface{}
	Method reflect.Method
	Args   []reflect.Value

	// Ctx carries the call's context, including the exposed proxy when the
	// config asked for it: advice reached through Proceed() can call
	// CurrentProxy(inv.Ctx) to re-enter through the proxy instead of
	// bypassing interception.
	Ctx context.Context

	chain []Interceptor
	index int
}

// Proceed calls the next interceptor in the chain, or the target method
// once index reaches the end.
func (inv *MethodInvocation) Proceed() ([]reflect.Value, error) {
	if inv.index >= len(inv.chain) {
		return invokeTarget(inv.Ctx, inv.Target, inv.Method, inv.Args)
	}
	next := inv.chain[inv.index]
	inv.index++
	return next.Invoke(inv)
}

func invokeTarget(ctx context.Context, target interface{}, method reflect.Method, args []reflect.Value) (results []reflect.Value, err error) {
	fn := reflect.ValueOf(target).MethodByName(method.Name)
	if !fn.IsValid() {
		return nil, cerrors.New(cerrors.KindBeanCreation, method.Name, "target does not implement method "+method.Name)
	}
	defer func() {
		if r := recover(); r != nil {
			err = cerrors.New(cerrors.KindBeanCreation, method.Name, "panic invoking target method")
		}
	}()
	results = fn.Call(args)
	if n := len(results); n > 0 {
		if e, ok := results[n-1].Interface().(error); ok {
			return results[:n-1], e
		}
	}
	return results, nil
}

var proxySelfMethods = map[string]bool{"Equals": true, "HashCode": true}

// Invoke runs the full dispatch algorithm for a single call: obtain the
// target, short-circuit self-referential proxy methods, expose the proxy
// if configured, look up the interceptor chain, run it (or call the
// target directly when the chain is empty), and release the target.
func (p *Proxy) Invoke(ctx context.Context, method reflect.Method, args []reflect.Value) ([]reflect.Value, error) {
	target, err := p.config.TargetSource.GetTarget(ctx)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.KindBeanCreation, method.Name, err, "obtaining proxy target")
	}
	if !p.config.TargetSource.IsStatic() {
		// Deferred so a panic unwinding through the interceptor chain (only
		// the target method's own panic is recovered, in invokeTarget)
		// still returns the checked-out target/pool token.
		defer func() {
			_ = p.config.TargetSource.ReleaseTarget(ctx, target)
		}()
	}

	if proxySelfMethods[method.Name] {
		if _, has := reflect.TypeOf(target).MethodByName(method.Name); !has {
			return p.invokeProxyIdentity(method, args)
		}
	}

	if p.config.ExposeProxy {
		ctx = context.WithValue(ctx, exposedProxyKey, p)
	}

	targetType := reflect.TypeOf(target)
	chain := p.chain.For(method, targetType)

	var results []reflect.Value
	if len(chain) == 0 {
		results, err = invokeTarget(ctx, target, method, args)
	} else {
		inv := &MethodInvocation{Proxy: p, Target: target, Method: method, Args: args, Ctx: ctx, chain: chain}
		results, err = inv.Proceed()
	}

	if err != nil {
		return nil, err
	}
	return p.normaliseReturn(results, target, method), nil
}

// normaliseReturn substitutes the proxy for the target in the return value
// when the method returns the target itself and the declared return type
// could hold the proxy, so fluent interfaces keep returning something
// callers can invoke through the proxy.
func (p *Proxy) normaliseReturn(results []reflect.Value, target interface{}, method reflect.Method) []reflect.Value {
	if len(results) != 1 {
		return results
	}
	if results[0].IsValid() && results[0].CanInterface() && results[0].Interface() == target {
		out := reflect.ValueOf(p)
		if out.Type().AssignableTo(method.Type.Out(0)) {
			return []reflect.Value{out}
		}
	}
	return results
}

func (p *Proxy) invokeProxyIdentity(method reflect.Method, args []reflect.Value) ([]reflect.Value, error) {
	switch method.Name {
	case "Equals":
		other, _ := args[0].Interface().(*Proxy)
		return []reflect.Value{reflect.ValueOf(other != nil && p.config.Equal(other.config))}, nil
	case "HashCode":
		return []reflect.Value{reflect.ValueOf(int(reflect.ValueOf(p.config).Pointer()))}, nil
	}
	return nil, cerrors.New(cerrors.KindBeanCreation, method.Name, "unhandled proxy identity method")
}
