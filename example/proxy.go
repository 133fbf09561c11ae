package example

import (
	"context"
	"reflect"

	"github.com/jrivets/log4g"
	"github.com/km-arc/go-ioc-container/aop"
)

var logger = log4g.GetLogger("example")

// loggingAdvisor logs every call made through the proxied Greeter, the
// simplest possible stand-in for the cross-cutting concerns (tracing,
// auth, retry) AOP proxying exists to let application code opt into
// without touching Service itself.
func loggingAdvisor() *aop.Advisor {
	return &aop.Advisor{
		Name:     "logging",
		Pointcut: aop.TruePointcut,
		Kind:     aop.AdviceAround,
		Order:    0,
		Around: func(inv *aop.MethodInvocation) ([]reflect.Value, error) {
			logger.Info("invoking ", inv.Method.Name)
			results, err := inv.Proceed()
			if err != nil {
				logger.Warn(inv.Method.Name, " failed: ", err)
			}
			return results, err
		},
	}
}

// proxiedGreeter hand-forwards Greeter's one method through an aop.Proxy.
// Go cannot synthesize a new type implementing Greeter at runtime the way
// a JDK dynamic proxy would, so the container's proxy contract is scoped
// to Proxy.Invoke(method, args) reflective dispatch and callers write a
// thin adapter like this one per interface they want advised.
type proxiedGreeter struct {
	proxy *aop.Proxy
}

var greetMethod, _ = reflect.TypeOf((*Greeter)(nil)).Elem().MethodByName("Greet")

func (g *proxiedGreeter) Greet(name string) string {
	results, err := g.proxy.Invoke(context.Background(), greetMethod, []reflect.Value{reflect.ValueOf(name)})
	if err != nil {
		return "error: " + err.Error()
	}
	return results[0].String()
}

// newProxiedGreeter is the constructor of the "advisedGreetingService"
// definition, called with a reference to "greetingService" as its explicit
// constructor argument: it wraps the already-built "greetingService"
// singleton in a Chain-cached proxy carrying the logging advisor.
func newProxiedGreeter(target Greeter) *proxiedGreeter {
	src := &aop.SingletonTargetSource{Target: target}
	cfg := &aop.Config{TargetSource: src, Advisors: []*aop.Advisor{loggingAdvisor()}}
	return &proxiedGreeter{proxy: aop.CreateProxy(cfg, 256)}
}
