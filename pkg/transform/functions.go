package transform

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/cast"
)

// Func transforms one field value. It must map nil to nil and must not fail.
type Func func(value interface{}) interface{}

var (
	funcsMu sync.RWMutex
	funcs   = map[string]Func{
		"upper": stringFunc(strings.ToUpper),
		"lower": stringFunc(strings.ToLower),
		"strip": stringFunc(strings.TrimSpace),
		"trim":  stringFunc(strings.TrimSpace),
	}
)

// stringFunc lifts a string function to a Func over stringified values
func stringFunc(fn func(string) string) Func {
	return func(value interface{}) interface{} {
		if value == nil {
			return nil
		}
		return fn(stringify(value))
	}
}

func stringify(value interface{}) string {
	s, err := cast.ToStringE(value)
	if err != nil {
		return fmt.Sprint(value)
	}
	return s
}

// Register adds a named transformation. Registering an existing name
// replaces it; call during startup, before any pipeline is compiled.
func Register(name string, fn Func) {
	funcsMu.Lock()
	defer funcsMu.Unlock()
	funcs[name] = fn
}

// Lookup returns the transformation registered under name
func Lookup(name string) (Func, bool) {
	funcsMu.RLock()
	defer funcsMu.RUnlock()
	fn, ok := funcs[name]
	return fn, ok
}

// Names lists the registered transformations, sorted
func Names() []string {
	funcsMu.RLock()
	defer funcsMu.RUnlock()
	names := make([]string, 0, len(funcs))
	for name := range funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
