// Package transform converts source records into destination records.
//
// Each mapping that requires a transform has exactly one Func registered under
// the mapping's name. Funcs are pure: they read the source record and build a
// new destination document without touching any shared state.
package transform

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/mrlokans/batchsync/internal/mapping"
)

// Func converts one source record.
type Func func(src gjson.Result) (json.RawMessage, error)

// Registry maps mapping names to transforms. Read-only after construction.
type Registry struct {
	funcs map[string]Func
}

func NewRegistry(funcs map[string]Func) *Registry {
	r := &Registry{funcs: make(map[string]Func, len(funcs))}
	for name, fn := range funcs {
		r.funcs[name] = fn
	}
	return r
}

// Default returns the transforms for the built-in mappings.
func Default() *Registry {
	return NewRegistry(map[string]Func{
		mapping.Users:     Users,
		mapping.Campaigns: Campaigns,
		mapping.Tasks:     Tasks,
	})
}

func (r *Registry) Has(name string) bool {
	_, ok := r.funcs[name]
	return ok
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Transform applies the transform registered for name to record.
//
// A declined record yields an error matching ErrSkipRecord. Every other
// failure is an *Error.
func (r *Registry) Transform(name string, record json.RawMessage) (json.RawMessage, error) {
	fn, ok := r.funcs[name]
	if !ok {
		return nil, &Error{Mapping: name, Err: ErrUnknownTransform}
	}
	if !gjson.ValidBytes(record) {
		return nil, &Error{Mapping: name, Err: errors.New("source record is not valid JSON")}
	}

	src := gjson.ParseBytes(record)
	if !src.IsObject() {
		return nil, &Error{Mapping: name, Err: fmt.Errorf("source record is a %s, expected an object", src.Type)}
	}

	out, err := fn(src)
	if err != nil {
		if errors.Is(err, ErrSkipRecord) {
			return nil, err
		}
		return nil, &Error{Mapping: name, Err: err}
	}
	return out, nil
}

// Validate checks that every mapping requiring a transform has one.
func (r *Registry) Validate(mappings []mapping.EndpointMapping) error {
	var missing []string
	for _, m := range mappings {
		if m.RequiresTransform && !r.Has(m.Name) {
			missing = append(missing, m.Name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w for mappings: %s", ErrUnknownTransform, strings.Join(missing, ", "))
	}
	return nil
}
