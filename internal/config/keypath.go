package config

import (
	"slices"
	"strings"
)

// sections are the top-level keys of Config as they appear in YAML.
var sections = []string{"openai", "agent", "server", "tracing", "logging", "memory", "deploy"}

var reservedSegments = []string{"__proto__", "prototype", "constructor"}

// KeyPath addresses a value inside the raw config tree, e.g. "server.port".
type KeyPath []string

// ParseKeyPath splits a dot-separated key. The first segment must name a
// config section.
func ParseKeyPath(raw string) (KeyPath, error) {
	if raw == "" {
		return nil, &ConfigError{Message: "empty config key"}
	}
	parts := strings.Split(raw, ".")
	for _, p := range parts {
		switch {
		case p == "":
			return nil, &ConfigError{Message: "config key contains empty segment: " + raw}
		case slices.Contains(reservedSegments, p):
			return nil, &ConfigError{Message: "config key contains reserved segment: " + p}
		}
	}
	if !slices.Contains(sections, parts[0]) {
		return nil, &ConfigError{Message: "unknown config section: " + parts[0]}
	}
	return KeyPath(parts), nil
}

func (k KeyPath) String() string {
	return strings.Join(k, ".")
}

// parent walks to the map holding the last segment. With create set,
// missing or scalar intermediates are replaced by empty maps.
func (k KeyPath) parent(root map[string]any, create bool) (map[string]any, bool) {
	current := root
	for _, key := range k[:len(k)-1] {
		next, ok := current[key].(map[string]any)
		if !ok {
			if !create {
				return nil, false
			}
			next = map[string]any{}
			current[key] = next
		}
		current = next
	}
	return current, true
}

// Get returns the value at k.
func (k KeyPath) Get(root map[string]any) (any, bool) {
	if len(k) == 0 {
		return nil, false
	}
	m, ok := k.parent(root, false)
	if !ok {
		return nil, false
	}
	v, ok := m[k[len(k)-1]]
	return v, ok
}

// Set stores value at k, creating intermediate maps.
func (k KeyPath) Set(root map[string]any, value any) {
	if len(k) == 0 {
		return
	}
	m, _ := k.parent(root, true)
	m[k[len(k)-1]] = value
}

// Unset removes the value at k and reports whether it was present.
// Sections left empty are pruned so the saved file stays tidy.
func (k KeyPath) Unset(root map[string]any) bool {
	if len(k) == 0 {
		return false
	}
	m, ok := k.parent(root, false)
	if !ok {
		return false
	}
	last := k[len(k)-1]
	if _, ok := m[last]; !ok {
		return false
	}
	delete(m, last)
	if len(k) > 1 && len(m) == 0 {
		k[:len(k)-1].Unset(root)
	}
	return true
}
