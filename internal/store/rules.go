package store

import (
	"fmt"
	"sort"
	"strings"
)

type Operation string

const (
	OpRead  Operation = "read"
	OpWrite Operation = "write"
)

// Rules denies read or write access per collection, the way a hosted
// document store's security rules would. A nil *Rules allows everything.
type Rules struct {
	deny map[string]map[Operation]bool
}

func NewRules() *Rules {
	return &Rules{deny: make(map[string]map[Operation]bool)}
}

// ParseRules reads entries such as "students:write" or "events:*".
func ParseRules(entries []string) (*Rules, error) {
	r := NewRules()
	for _, entry := range entries {
		collection, op, ok := strings.Cut(strings.TrimSpace(entry), ":")
		if !ok || collection == "" {
			return nil, fmt.Errorf("invalid store rule %q: want collection:read|write|*", entry)
		}
		switch Operation(op) {
		case OpRead, OpWrite:
			r.Deny(collection, Operation(op))
		case "*":
			r.Deny(collection, OpRead)
			r.Deny(collection, OpWrite)
		default:
			return nil, fmt.Errorf("invalid store rule %q: unknown operation %q", entry, op)
		}
	}
	return r, nil
}

func (r *Rules) Deny(collection string, op Operation) {
	if r.deny[collection] == nil {
		r.deny[collection] = make(map[Operation]bool)
	}
	r.deny[collection][op] = true
}

func (r *Rules) Check(collection string, op Operation) error {
	if r == nil {
		return nil
	}
	if r.deny[collection][op] {
		return fmt.Errorf("%s on %s: %w", op, collection, ErrPermissionDenied)
	}
	return nil
}

// String lists the denied operations, e.g. "events:read,students:write".
func (r *Rules) String() string {
	if r == nil {
		return ""
	}
	var parts []string
	for collection, ops := range r.deny {
		for op := range ops {
			parts = append(parts, collection+":"+string(op))
		}
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}
