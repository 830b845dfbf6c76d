// Package mapping holds the static table of synchronizable resource types.
//
// A mapping names one resource type and describes where its records are read
// from on the source system, where they are written on the destination system
// and how. The table is built once at startup and never mutated afterwards, so
// a *Registry may be shared by concurrent sync runs without locking.
package mapping

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Method is the HTTP verb used against the destination system.
type Method string

const (
	MethodGet    Method = "GET"
	MethodPost   Method = "POST"
	MethodPut    Method = "PUT"
	MethodPatch  Method = "PATCH"
	MethodDelete Method = "DELETE"
)

// PaginationStyle describes how the source system paginates a collection.
type PaginationStyle string

const (
	PaginationPage   PaginationStyle = "page"
	PaginationCursor PaginationStyle = "cursor"
	PaginationOffset PaginationStyle = "offset"
)

// DefaultIDField is used when a mapping does not name its id field.
const DefaultIDField = "id"

// IDPlaceholder is replaced by the resource id in destination endpoints.
const IDPlaceholder = "{id}"

// EndpointMapping identifies one synchronizable resource type.
type EndpointMapping struct {
	Name                string          `json:"name" yaml:"name"`
	SourceEndpoint      string          `json:"source_endpoint" yaml:"sourceEndpoint"`
	DestinationEndpoint string          `json:"destination_endpoint" yaml:"destinationEndpoint"`
	Method              Method          `json:"method" yaml:"method"`
	IDField             string          `json:"id_field" yaml:"idField"`
	PaginationStyle     PaginationStyle `json:"pagination_style" yaml:"paginationStyle"`
	RequiresTransform   bool            `json:"requires_transform" yaml:"requiresTransform"`
}

// ErrMappingNotFound is returned when a run names a mapping that does not exist.
var ErrMappingNotFound = errors.New("mapping not found")

// NotFoundError carries the name that failed to resolve.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("mapping not found: %q", e.Name)
}

func (e *NotFoundError) Unwrap() error {
	return ErrMappingNotFound
}

// Registry is an immutable name -> mapping table.
type Registry struct {
	mappings map[string]EndpointMapping
}

// NewRegistry validates the given mappings and builds a registry from them.
func NewRegistry(mappings ...EndpointMapping) (*Registry, error) {
	r := &Registry{mappings: make(map[string]EndpointMapping, len(mappings))}
	for _, m := range mappings {
		m, err := normalize(m)
		if err != nil {
			return nil, err
		}
		if _, exists := r.mappings[m.Name]; exists {
			return nil, fmt.Errorf("duplicate mapping name %q", m.Name)
		}
		r.mappings[m.Name] = m
	}
	return r, nil
}

// Resolve returns the mapping registered under name.
func (r *Registry) Resolve(name string) (EndpointMapping, error) {
	m, ok := r.mappings[name]
	if !ok {
		return EndpointMapping{}, &NotFoundError{Name: name}
	}
	return m, nil
}

// Names returns all registered mapping names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.mappings))
	for name := range r.mappings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns every mapping sorted by name.
func (r *Registry) All() []EndpointMapping {
	names := r.Names()
	out := make([]EndpointMapping, 0, len(names))
	for _, name := range names {
		out = append(out, r.mappings[name])
	}
	return out
}

// Merge returns a new registry where the overrides replace mappings of the
// same name and extend the table otherwise. The receiver is not modified.
func (r *Registry) Merge(overrides ...EndpointMapping) (*Registry, error) {
	merged := make(map[string]EndpointMapping, len(r.mappings)+len(overrides))
	for name, m := range r.mappings {
		merged[name] = m
	}
	for _, m := range overrides {
		m, err := normalize(m)
		if err != nil {
			return nil, err
		}
		merged[m.Name] = m
	}
	return &Registry{mappings: merged}, nil
}

// DestinationPath expands the {id} placeholder of the destination endpoint.
func DestinationPath(m EndpointMapping, resourceID string) string {
	if !strings.Contains(m.DestinationEndpoint, IDPlaceholder) {
		return m.DestinationEndpoint
	}
	return strings.ReplaceAll(m.DestinationEndpoint, IDPlaceholder, url.PathEscape(resourceID))
}

func normalize(m EndpointMapping) (EndpointMapping, error) {
	m.Name = strings.TrimSpace(m.Name)
	if m.Name == "" {
		return m, errors.New("mapping name is required")
	}
	if m.SourceEndpoint == "" {
		return m, fmt.Errorf("mapping %q: source endpoint is required", m.Name)
	}
	if m.DestinationEndpoint == "" {
		return m, fmt.Errorf("mapping %q: destination endpoint is required", m.Name)
	}

	m.Method = Method(strings.ToUpper(string(m.Method)))
	switch m.Method {
	case MethodGet, MethodPost, MethodPut, MethodPatch, MethodDelete:
	case "":
		m.Method = MethodPost
	default:
		return m, fmt.Errorf("mapping %q: unsupported method %q", m.Name, m.Method)
	}

	switch m.PaginationStyle {
	case PaginationPage, PaginationCursor, PaginationOffset:
	case "":
		m.PaginationStyle = PaginationPage
	default:
		return m, fmt.Errorf("mapping %q: unsupported pagination style %q", m.Name, m.PaginationStyle)
	}

	if m.IDField == "" {
		m.IDField = DefaultIDField
	}
	return m, nil
}
