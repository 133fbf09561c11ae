// Package example wires every module of the container together into one
// small, runnable application: a registry of bean definitions, a
// singleton store, a placeholder-driven configuration, a resolver/factory,
// and an AOP-advised service — exercised end to end by cmd/containerctl.
package example

import (
	"fmt"
	"sync/atomic"
)

// Greeter is the interface application code depends on; Service is its
// concrete implementation, and proxiedGreeter (see proxy.go) is the
// AOP-advised stand-in the container hands out instead.
type Greeter interface {
	Greet(name string) string
}

// Repository is a trivial singleton collaborator, standing in for the
// kind of infrastructure bean (a data source, a client) most real
// definitions ultimately depend on.
type Repository interface {
	Prefix() string
}

type inMemoryRepository struct {
	// Value is set through PropertyValues by name, not a setter method:
	// the factory populates properties via reflect.Value.FieldByName, the
	// Go-idiomatic stand-in for a JavaBean setter.
	Value string
}

// NewInMemoryRepository is the Constructor for the "repository" bean. Its
// Value property is populated from a placeholder-backed literal, so the
// value actually stored depends on the factory's Lookup at population time.
func NewInMemoryRepository() *inMemoryRepository {
	return &inMemoryRepository{}
}

func (r *inMemoryRepository) Prefix() string { return r.Value }

// Service is the "greetingService" bean: a singleton that autowires
// Repository by type through its constructor.
type Service struct {
	repo Repository
}

// NewService is selected by constructor autowiring: its one parameter is
// resolved against the single registered Repository candidate.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Greet(name string) string {
	return fmt.Sprintf("%s, %s!", s.repo.Prefix(), name)
}

// Init is the InitMethod named on the "greetingService" definition,
// exercising the AfterPropertiesSet/init-method half of the lifecycle.
func (s *Service) Init() error {
	if s.repo == nil {
		return fmt.Errorf("greetingService: repository not wired")
	}
	return nil
}

// Scheduler and Worker reference each other and exist purely to exercise
// circular-singleton resolution through early exposure: the container
// must be able to construct both even though each needs the other during
// property population.
type Scheduler struct {
	Worker *Worker
}

type Worker struct {
	Scheduler *Scheduler
}

func NewScheduler() *Scheduler { return &Scheduler{} }
func NewWorker() *Worker       { return &Worker{} }

// requestScope is a prototype bean: a fresh instance handed out on every
// GetBean call, standing in for a per-request context object.
type requestScope struct {
	ID int
}

var requestCounter int64

func NewRequestScope() *requestScope {
	return &requestScope{ID: int(atomic.AddInt64(&requestCounter, 1))}
}
