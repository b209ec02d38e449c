package extract

import (
	"fmt"
	"sort"
	"strings"
)

var registry = map[string]func() Engine{
	"layout": func() Engine { return NewLayoutEngine() },
	"plain":  func() Engine { return NewPlainEngine() },
}

// DefaultEngines is the chain used when none is configured.
var DefaultEngines = []string{"layout", "plain"}

// Available returns the names of all engines compiled into this binary.
func Available() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewFromNames builds an extractor from engine names, in order.
func NewFromNames(names []string) (*Extractor, error) {
	if len(names) == 0 {
		names = DefaultEngines
	}
	engines := make([]Engine, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(strings.ToLower(name))
		ctor, ok := registry[name]
		if !ok {
			return nil, fmt.Errorf("unknown extraction engine %q (available: %s)", name, strings.Join(Available(), ", "))
		}
		engines = append(engines, ctor())
	}
	return New(engines...), nil
}

// IsAvailable reports whether an engine with this name is compiled in.
func IsAvailable(name string) bool {
	_, ok := registry[strings.TrimSpace(strings.ToLower(name))]
	return ok
}
