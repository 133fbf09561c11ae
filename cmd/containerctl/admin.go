// Package main implements containerctl, an interactive admin shell for a
// running factory.Factory: listing and describing bean definitions,
// resolving beans on demand, inspecting aliases, checking readiness, and
// pushing placeholder overrides in — grounded on
// _examples/logrange-logrange/client/shell's liner+regex-command idiom,
// adapted from a remote client shell to an in-process one since a
// container has no network boundary to cross.
package main

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/km-arc/go-ioc-container/factory"
	"github.com/km-arc/go-ioc-container/registry"
)

// admin wraps the operations containerctl exposes over a factory. It never
// mutates the factory's registry, only its placeholder overrides.
type admin struct {
	f         *factory.Factory
	overrides map[string]string
}

func newAdmin(f *factory.Factory) *admin {
	a := &admin{f: f, overrides: make(map[string]string)}
	base := f.Lookup
	f.Lookup = func(key string) (string, bool) {
		if v, ok := a.overrides[key]; ok {
			return v, true
		}
		if base != nil {
			return base(key)
		}
		return "", false
	}
	return a
}

func (a *admin) set(key, value string) {
	a.overrides[key] = value
}

type beanRow struct {
	Name  string
	Type  string
	Scope string
	Ready bool
}

func (a *admin) listBeans() []beanRow {
	names := a.f.Registry.Names()
	sort.Strings(names)
	rows := make([]beanRow, 0, len(names))
	for _, name := range names {
		def, ok := a.f.Registry.Get(name)
		if !ok {
			continue
		}
		rows = append(rows, a.summarize(name, def))
	}
	return rows
}

func (a *admin) summarize(name string, def *registry.BeanDefinition) beanRow {
	scope := string(def.Scope)
	if scope == "" {
		scope = string(registry.ScopeSingleton)
	}
	typeName := ""
	if def.Type != nil {
		typeName = def.Type.String()
	}
	_, ready := a.f.Singletons.GetSingleton(name)
	return beanRow{Name: name, Type: typeName, Scope: scope, Ready: ready}
}

func (a *admin) describe(name string) (string, error) {
	def, ok := a.f.Registry.Get(name)
	if !ok {
		return "", fmt.Errorf("no such bean: %s", name)
	}
	row := a.summarize(name, def)
	var b strings.Builder
	fmt.Fprintf(&b, "name:      %s\n", row.Name)
	fmt.Fprintf(&b, "type:      %s\n", row.Type)
	fmt.Fprintf(&b, "scope:     %s\n", row.Scope)
	fmt.Fprintf(&b, "ready:     %v\n", row.Ready)
	if len(def.DependsOn) > 0 {
		fmt.Fprintf(&b, "dependsOn: %s\n", strings.Join(def.DependsOn, ", "))
	}
	if aliases := a.f.Aliases.GetAliases(name); len(aliases) > 0 {
		fmt.Fprintf(&b, "aliases:   %s\n", strings.Join(aliases, ", "))
	}
	return b.String(), nil
}

func (a *admin) aliases() map[string][]string {
	out := map[string][]string{}
	for _, name := range a.f.Registry.Names() {
		if al := a.f.Aliases.GetAliases(name); len(al) > 0 {
			out[name] = al
		}
	}
	return out
}

func (a *admin) health() string {
	if a.f.Singletons.Closed() {
		return "closed"
	}
	return "up"
}

func (a *admin) get(ctx context.Context, name string) (string, error) {
	bean, err := a.f.GetBean(ctx, name)
	if err != nil {
		return "", err
	}
	v := reflect.ValueOf(bean)
	return fmt.Sprintf("%s => %+v", v.Type(), bean), nil
}
