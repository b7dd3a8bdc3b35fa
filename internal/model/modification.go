// Package model defines the data types shared by the modification-state
// engine: the Modification union produced by the instruction pipeline, the
// snapshot layers built from it, the linear history of those layers and the
// persisted session record (an "Eddy").
package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidModification is returned when a modification batch is
// structurally malformed. No snapshot is built from such a batch.
var ErrInvalidModification = errors.New("invalid modification")

// ModificationType discriminates the Modification union.
type ModificationType string

const (
	ModificationStyle  ModificationType = "style"
	ModificationScript ModificationType = "script"
)

// Modification is a single declarative page edit. Style modifications use
// Target/Property/Value; script modifications use Code/NewPlaceholderIDs.
type Modification struct {
	Type ModificationType `json:"type"`

	// Style fields.
	Target   string `json:"target,omitempty"`
	Property string `json:"property,omitempty"`
	Value    string `json:"value,omitempty"`

	// Script fields. NewPlaceholderIDs are symbolic ids referenced by Code
	// that must be bound to generated style-element ids before execution.
	Code              string   `json:"code,omitempty"`
	NewPlaceholderIDs []string `json:"newPlaceholderIds,omitempty"`
}

// StyleModification returns a style modification for selector/property/value.
func StyleModification(target, property, value string) Modification {
	return Modification{Type: ModificationStyle, Target: target, Property: property, Value: value}
}

// ScriptModification returns a script modification.
func ScriptModification(code string, placeholderIDs ...string) Modification {
	return Modification{Type: ModificationScript, Code: code, NewPlaceholderIDs: placeholderIDs}
}

// Validate checks structural shape only: non-empty target/property for
// style modifications, non-empty code for scripts. Selector and property
// semantics are not checked.
func (m Modification) Validate() error {
	switch m.Type {
	case ModificationStyle:
		if strings.TrimSpace(m.Target) == "" {
			return fmt.Errorf("%w: style modification has empty target", ErrInvalidModification)
		}
		if strings.TrimSpace(m.Property) == "" {
			return fmt.Errorf("%w: style modification for %q has empty property", ErrInvalidModification, m.Target)
		}
	case ModificationScript:
		if strings.TrimSpace(m.Code) == "" {
			return fmt.Errorf("%w: script modification has empty code", ErrInvalidModification)
		}
		seen := make(map[string]struct{}, len(m.NewPlaceholderIDs))
		for _, id := range m.NewPlaceholderIDs {
			if id == "" {
				return fmt.Errorf("%w: script modification has empty placeholder id", ErrInvalidModification)
			}
			if _, dup := seen[id]; dup {
				return fmt.Errorf("%w: duplicate placeholder id %q", ErrInvalidModification, id)
			}
			seen[id] = struct{}{}
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidModification, m.Type)
	}
	return nil
}

// ValidateBatch validates every modification and reports the first failure
// with its index.
func ValidateBatch(mods []Modification) error {
	for i, m := range mods {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("modification %d: %w", i, err)
		}
	}
	return nil
}
