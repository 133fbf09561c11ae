// Package placeholder implements a pure, stateless expander for "${...}"
// strings with nested placeholders, a configurable default-value
// separator, and circular-reference detection.
//
// The algorithm is ported directly from PropertyPlaceholderHelper
// (original_source/spring-core), re-expressed with Go slices instead of a
// mutable StringBuilder: a nested-depth scan for the matching suffix, with
// recursive resolution of both the placeholder key and its resolved
// value.
package placeholder

import (
	"strings"

	"github.com/km-arc/go-ioc-container/cerrors"
)

// Lookup resolves a placeholder key to a value. found is false when the
// key has no value at all (as opposed to an empty-string value).
type Lookup func(key string) (value string, found bool)

// Engine expands placeholder strings. The zero value is not usable; use
// New to get the conventional "${", "}", ":" configuration.
type Engine struct {
	Prefix             string
	Suffix             string
	ValueSeparator     string // empty disables default-value support
	IgnoreUnresolvable bool
}

// New returns an Engine configured with the conventional Spring-style
// delimiters: "${" ... "}" with ":" as the default-value separator.
func New() *Engine {
	return &Engine{Prefix: "${", Suffix: "}", ValueSeparator: ":"}
}

// Expand resolves every placeholder in s using lookup, honoring nested
// placeholders, the default-value separator, and circular-reference
// detection.
func (e *Engine) Expand(s string, lookup Lookup) (string, error) {
	return e.parse(s, lookup, make(map[string]bool))
}

func (e *Engine) parse(value string, lookup Lookup, visiting map[string]bool) (string, error) {
	result := []byte(value)
	startIndex := indexOf(result, e.Prefix, 0)

	for startIndex != -1 {
		endIndex := e.findPlaceholderEndIndex(result, startIndex)
		if endIndex == -1 {
			break
		}

		placeholder := string(result[startIndex+len(e.Prefix) : endIndex])
		original := placeholder

		if visiting[original] {
			return "", cerrors.New(cerrors.KindCircularPlaceholder, original,
				"circular placeholder reference in property definitions")
		}
		visiting[original] = true

		resolvedKey, err := e.parse(placeholder, lookup, visiting)
		if err != nil {
			return "", err
		}
		placeholder = resolvedKey

		propVal, found := lookup(placeholder)
		if !found && e.ValueSeparator != "" {
			if sepIdx := strings.Index(placeholder, e.ValueSeparator); sepIdx != -1 {
				actualKey := placeholder[:sepIdx]
				defaultVal := placeholder[sepIdx+len(e.ValueSeparator):]
				propVal, found = lookup(actualKey)
				if !found {
					propVal = defaultVal
					found = true
				}
			}
		}

		if found {
			expanded, err := e.parse(propVal, lookup, visiting)
			if err != nil {
				return "", err
			}
			result = spliceBytes(result, startIndex, endIndex+len(e.Suffix), expanded)
			delete(visiting, original)
			startIndex = indexOf(result, e.Prefix, startIndex+len(expanded))
		} else if e.IgnoreUnresolvable {
			delete(visiting, original)
			startIndex = indexOf(result, e.Prefix, endIndex+len(e.Suffix))
		} else {
			return "", cerrors.New(cerrors.KindUnresolvedPlaceholder, placeholder,
				"could not resolve placeholder in value "+value)
		}
	}

	return string(result), nil
}

// findPlaceholderEndIndex locates the suffix matching the prefix that
// starts at startIndex, tracking nesting depth so that "${a${b}}" finds
// the outer suffix only after the inner "${b}" has been consumed.
func (e *Engine) findPlaceholderEndIndex(buf []byte, startIndex int) int {
	index := startIndex + len(e.Prefix)
	nested := 0
	for index < len(buf) {
		if matchAt(buf, index, e.Suffix) {
			if nested > 0 {
				nested--
				index += len(e.Suffix)
			} else {
				return index
			}
		} else if matchAt(buf, index, e.Prefix) {
			nested++
			index += len(e.Prefix)
		} else {
			index++
		}
	}
	return -1
}

func matchAt(buf []byte, index int, s string) bool {
	if s == "" || index+len(s) > len(buf) {
		return false
	}
	return string(buf[index:index+len(s)]) == s
}

func indexOf(buf []byte, s string, from int) int {
	if from > len(buf) {
		return -1
	}
	idx := strings.Index(string(buf[from:]), s)
	if idx == -1 {
		return -1
	}
	return from + idx
}

func spliceBytes(buf []byte, start, end int, replacement string) []byte {
	out := make([]byte, 0, len(buf)-(end-start)+len(replacement))
	out = append(out, buf[:start]...)
	out = append(out, replacement...)
	out = append(out, buf[end:]...)
	return out
}
