package main

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/kr/logfmt"
)

type command struct {
	name    string
	matcher *regexp.Regexp
	run     cmdFn
	help    string
}

type cmdFn func(ctx context.Context, a *admin, args map[string]string) error

const (
	cmdBeansName    = "beans"
	cmdDescribeName = "describe"
	cmdAliasesName  = "aliases"
	cmdHealthName   = "health"
	cmdGetName      = "get"
	cmdSetName      = "set"
	cmdHelpName     = "help"
	cmdQuitName     = "quit"

	grpName = "target"
	grpKV   = "kv"
)

var commands []command

func init() {
	commands = []command{
		{
			name:    cmdBeansName,
			matcher: regexp.MustCompile(`(?i)^beans$`),
			run:     beansFn,
			help:    "list registered bean names, types, scope and readiness",
		},
		{
			name:    cmdDescribeName,
			matcher: regexp.MustCompile(`(?i)^(?:describe|desc)\s+(?P<` + grpName + `>\S+)$`),
			run:     describeFn,
			help:    "describe a bean, e.g. 'describe dataSource'",
		},
		{
			name:    cmdAliasesName,
			matcher: regexp.MustCompile(`(?i)^aliases$`),
			run:     aliasesFn,
			help:    "list all registered aliases",
		},
		{
			name:    cmdHealthName,
			matcher: regexp.MustCompile(`(?i)^health$`),
			run:     healthFn,
			help:    "report whether the singleton store is still open",
		},
		{
			name:    cmdGetName,
			matcher: regexp.MustCompile(`(?i)^get\s+(?P<` + grpName + `>\S+)$`),
			run:     getFn,
			help:    "resolve a bean by name, e.g. 'get dataSource'",
		},
		{
			name:    cmdSetName,
			matcher: regexp.MustCompile(`(?i)^set\s+(?P<` + grpKV + `>.+)$`),
			run:     setFn,
			help:    "override placeholder values, e.g. 'set db.host=localhost db.port=5432'",
		},
		{
			name:    cmdHelpName,
			matcher: regexp.MustCompile(`(?i)^help$`),
			run:     helpFn,
			help:    "show this help",
		},
		{
			name:    cmdQuitName,
			matcher: regexp.MustCompile(`(?i)^(?:quit|exit)$`),
			run:     quitFn,
			help:    "leave the shell",
		},
	}
}

var errQuit = fmt.Errorf("quit")

func execCmd(ctx context.Context, input string, a *admin) error {
	for _, c := range commands {
		if !c.matcher.MatchString(input) {
			if strings.HasPrefix(strings.ToLower(input), c.name) {
				return fmt.Errorf("command %s: invalid syntax", c.name)
			}
			continue
		}
		return c.run(ctx, a, submatches(c.matcher, input))
	}
	return fmt.Errorf("unknown command: %v (try 'help')", input)
}

func submatches(re *regexp.Regexp, input string) map[string]string {
	names := re.SubexpNames()
	values := re.FindStringSubmatch(input)
	out := make(map[string]string, len(names))
	for i, n := range names {
		if n == "" || i >= len(values) {
			continue
		}
		out[n] = values[i]
	}
	return out
}

func beansFn(ctx context.Context, a *admin, args map[string]string) error {
	rows := a.listBeans()
	if len(rows) == 0 {
		fmt.Println("(no beans registered)")
		return nil
	}
	for _, r := range rows {
		fmt.Printf("%-24s %-10s %-30s ready=%v\n", r.Name, r.Scope, r.Type, r.Ready)
	}
	fmt.Printf("%s bean(s) registered\n", humanize.Comma(int64(len(rows))))
	return nil
}

func describeFn(ctx context.Context, a *admin, args map[string]string) error {
	out, err := a.describe(args[grpName])
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}

func aliasesFn(ctx context.Context, a *admin, args map[string]string) error {
	for name, aliases := range a.aliases() {
		fmt.Printf("%s -> %s\n", name, strings.Join(aliases, ", "))
	}
	return nil
}

func healthFn(ctx context.Context, a *admin, args map[string]string) error {
	fmt.Println(a.health())
	return nil
}

func getFn(ctx context.Context, a *admin, args map[string]string) error {
	out, err := a.get(ctx, args[grpName])
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

// kvHandler accumulates key=value pairs parsed out of a 'set' command line
// by kr/logfmt, the handler-object idiom that package's decoder expects
// for turning a logfmt-formatted record into structured fields.
type kvHandler map[string]string

func (h kvHandler) HandleLogfmt(key, val []byte) error {
	h[string(key)] = string(val)
	return nil
}

func setFn(ctx context.Context, a *admin, args map[string]string) error {
	kv := make(kvHandler)
	if err := logfmt.Unmarshal([]byte(args[grpKV]), kv); err != nil {
		return fmt.Errorf("set: %w", err)
	}
	if len(kv) == 0 {
		return fmt.Errorf("set: no key=value pairs found")
	}
	for k, v := range kv {
		a.set(k, v)
		fmt.Printf("%s=%s\n", k, v)
	}
	return nil
}

func helpFn(ctx context.Context, a *admin, args map[string]string) error {
	for _, c := range commands {
		fmt.Printf("  %-10s %s\n", c.name, c.help)
	}
	return nil
}

func quitFn(ctx context.Context, a *admin, args map[string]string) error {
	return errQuit
}
