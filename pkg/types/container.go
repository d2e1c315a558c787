package types

import (
	"fmt"
	"strings"
)

// ContainerRecord is a read-only view of one container (or swarm service)
// as reported by the remote host. Fields are addressed by dotted key path,
// e.g. "State.Status" or "Spec.Name".
type ContainerRecord struct {
	fields map[string]any
}

// NewContainerRecord wraps a decoded inspect payload
func NewContainerRecord(fields map[string]any) ContainerRecord {
	return ContainerRecord{fields: fields}
}

// Get resolves a dotted key path
func (r ContainerRecord) Get(path string) (any, bool) {
	if r.fields == nil || path == "" {
		return nil, false
	}

	var cur any = r.fields
	for _, key := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// String resolves a dotted key path and formats scalar values as strings.
// Missing paths and nested objects yield "".
func (r ContainerRecord) String(path string) string {
	v, ok := r.Get(path)
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case map[string]any, []any:
		return ""
	default:
		return fmt.Sprint(val)
	}
}

// Name returns the container name as reported by inspect (leading slash included)
func (r ContainerRecord) Name() string {
	return r.String("Name")
}

// SpecName returns the swarm service name
func (r ContainerRecord) SpecName() string {
	return r.String("Spec.Name")
}

// Status returns the lifecycle status (running, exited, restarting, ...)
func (r ContainerRecord) Status() string {
	return r.String("State.Status")
}

// Labels returns container labels, falling back to swarm service labels
func (r ContainerRecord) Labels() map[string]string {
	raw, ok := r.Get("Config.Labels")
	if !ok {
		raw, ok = r.Get("Spec.Labels")
	}
	if !ok {
		return nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil
	}

	labels := make(map[string]string, len(m))
	for k, v := range m {
		if s, ok := v.(string); ok {
			labels[k] = s
		}
	}
	return labels
}

// Matcher selects container records
type Matcher func(ContainerRecord) bool

// NameEquals matches records whose Name field equals name
func NameEquals(name string) Matcher {
	return func(r ContainerRecord) bool {
		return r.Name() == name
	}
}

// SpecNameEquals matches records whose Spec.Name field equals name
func SpecNameEquals(name string) Matcher {
	return func(r ContainerRecord) bool {
		return r.SpecName() == name
	}
}

// ContainerSnapshot is the set of records observed on a host in one run.
// Remote ordering is not guaranteed, so records are only looked up by predicate.
type ContainerSnapshot []ContainerRecord

// First returns the first record accepted by match
func (s ContainerSnapshot) First(match Matcher) (ContainerRecord, bool) {
	for _, r := range s {
		if match(r) {
			return r, true
		}
	}
	return ContainerRecord{}, false
}

// Empty reports whether the snapshot holds no records
func (s ContainerSnapshot) Empty() bool {
	return len(s) == 0
}
