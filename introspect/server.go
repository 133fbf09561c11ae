// Package introspect exposes a read-only HTTP admin surface over a
// factory.Factory: registered bean names, their scope and role, alias
// mappings, and singleton readiness, built on chi.NewRouter() with the
// standard middleware.Logger/Recoverer stack.
package introspect

import (
	"encoding/json"
	"net/http"
	"reflect"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jrivets/log4g"
	"github.com/km-arc/go-ioc-container/factory"
	"github.com/km-arc/go-ioc-container/registry"
)

var logger = log4g.GetLogger("introspect")

// Server serves the read-only admin surface. It never mutates the
// factory it wraps.
type Server struct {
	factory *factory.Factory
	mux     chi.Router
}

// New builds a Server with the conventional chi middleware stack: Logger,
// Recoverer and RealIP ahead of the route handlers.
func New(f *factory.Factory) *Server {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	s := &Server{factory: f, mux: r}
	r.Get("/beans", s.listBeans)
	r.Get("/beans/{name}", s.describeBean)
	r.Get("/aliases", s.listAliases)
	r.Get("/health", s.health)
	return s
}

// ServeHTTP lets Server itself be used as an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

type beanSummary struct {
	Name  string `json:"name"`
	Type  string `json:"type,omitempty"`
	Scope string `json:"scope"`
	Role  string `json:"role"`
	Ready bool   `json:"ready"`
}

func (s *Server) listBeans(w http.ResponseWriter, r *http.Request) {
	names := s.factory.Registry.Names()
	summaries := make([]beanSummary, 0, len(names))
	for _, name := range names {
		def, ok := s.factory.Registry.Get(name)
		if !ok {
			continue
		}
		summaries = append(summaries, summarize(name, def, s.factory))
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) describeBean(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	def, ok := s.factory.Registry.Get(name)
	if !ok {
		http.Error(w, "no such bean: "+name, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, summarize(name, def, s.factory))
}

func (s *Server) listAliases(w http.ResponseWriter, r *http.Request) {
	out := map[string][]string{}
	for _, name := range s.factory.Registry.Names() {
		if aliases := s.factory.Aliases.GetAliases(name); len(aliases) > 0 {
			out[name] = aliases
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	status := "up"
	code := http.StatusOK
	if s.factory.Singletons.Closed() {
		status = "closed"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]string{"status": status})
}

func summarize(name string, def *registry.BeanDefinition, f *factory.Factory) beanSummary {
	scope := string(def.Scope)
	if scope == "" {
		scope = string(registry.ScopeSingleton)
	}
	role := "application"
	if def.Role == registry.RoleInfrastructure {
		role = "infrastructure"
	}
	typeName := ""
	if def.Type != nil {
		typeName = typeString(def.Type)
	}
	_, ready := f.Singletons.GetSingleton(name)
	return beanSummary{Name: name, Type: typeName, Scope: scope, Role: role, Ready: ready}
}

func typeString(t reflect.Type) string { return t.String() }

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("failed encoding introspection response: ", err)
	}
}
