package domain

import (
	"fmt"
	"sort"
)

// Permission is the sync permission of an external object.
// It is a closed enumeration: only PermissionRead and PermissionNone exist.
type Permission string

// Available permissions.
const (
	// PermissionNone means the object is not synced.
	PermissionNone Permission = "none"

	// PermissionRead means the object and its children are synced.
	PermissionRead Permission = "read"
)

// ParsePermission converts a raw value into a Permission.
// Any value other than "read" or "none" yields ErrInvalidPermission.
func ParsePermission(raw string) (Permission, error) {
	p := Permission(raw)
	if !p.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPermission, raw)
	}
	return p, nil
}

// IsValid returns true if the permission is read or none.
func (p Permission) IsValid() bool {
	switch p {
	case PermissionRead, PermissionNone:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (p Permission) String() string {
	return string(p)
}

// PermissionChangeBatch maps internal node ids to the desired permission.
// It is consumed once per request and never persisted.
type PermissionChangeBatch map[string]Permission

// ParsePermissionChanges validates every raw value before returning a batch,
// so a single invalid entry rejects the whole request.
func ParsePermissionChanges(raw map[string]string) (PermissionChangeBatch, error) {
	batch := make(PermissionChangeBatch, len(raw))
	for id, value := range raw {
		p, err := ParsePermission(value)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", id, err)
		}
		batch[id] = p
	}
	return batch, nil
}

// Validate checks every permission in the batch.
func (b PermissionChangeBatch) Validate() error {
	for _, id := range b.SortedIDs() {
		if !b[id].IsValid() {
			return fmt.Errorf("node %s: %w: %q", id, ErrInvalidPermission, string(b[id]))
		}
	}
	return nil
}

// SortedIDs returns the node ids of the batch in lexical order.
func (b PermissionChangeBatch) SortedIDs() []string {
	ids := make([]string, 0, len(b))
	for id := range b {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
