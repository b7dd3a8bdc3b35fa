// Package snapshot turns modification batches into immutable snapshot layers
// and folds a history of layers into the effective snapshot to render.
package snapshot

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/raysh454/eddy/internal/model"
)

// Builder groups one apply action's modifications into a Snapshot.
type Builder struct {
	newID IDGenerator
	now   func() time.Time
}

// Option configures a Builder.
type Option func(*Builder)

// WithIDGenerator overrides id generation.
func WithIDGenerator(gen IDGenerator) Option {
	return func(b *Builder) { b.newID = gen }
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// NewBuilder returns a Builder using timestamp+random ids by default.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	if b.newID == nil {
		b.newID = TimestampIDs(b.now)
	}
	return b
}

// Build validates the whole batch first and returns an error without building
// anything if a modification is malformed. An empty batch yields a valid
// empty layer.
//
// Style modifications for the same selector merge into one element, last
// value per property wins. Each script modification gets one generated
// style-element id per placeholder; the placeholders are substituted
// literally in the code, which is then wrapped by WrapScript.
func (b *Builder) Build(mods []model.Modification, userQuery string) (model.Snapshot, error) {
	if err := model.ValidateBatch(mods); err != nil {
		return model.Snapshot{}, fmt.Errorf("build snapshot: %w", err)
	}

	ts := b.now().UnixMilli()
	snap := model.Snapshot{
		ID:        b.newID("snapshot"),
		Elements:  []model.StyleElementSnapshot{},
		Scripts:   []model.ScriptSnapshot{},
		UserQuery: userQuery,
		Timestamp: ts,
	}

	bySelector := make(map[string]int)
	for _, m := range mods {
		switch m.Type {
		case model.ModificationStyle:
			idx, ok := bySelector[m.Target]
			if !ok {
				idx = len(snap.Elements)
				bySelector[m.Target] = idx
				snap.Elements = append(snap.Elements, model.StyleElementSnapshot{
					ID:        b.newID("style"),
					Selector:  m.Target,
					Timestamp: ts,
				})
			}
			snap.Elements[idx].CSSPropertyMap.Set(m.Property, m.Value)
		case model.ModificationScript:
			snap.Scripts = append(snap.Scripts, b.buildScript(m, ts))
		}
	}
	return snap, nil
}

func (b *Builder) buildScript(m model.Modification, ts int64) model.ScriptSnapshot {
	created := make([]string, 0, len(m.NewPlaceholderIDs))
	bindings := make(map[string]string, len(m.NewPlaceholderIDs))
	for _, placeholder := range m.NewPlaceholderIDs {
		id := b.newID("style")
		bindings[placeholder] = id
		created = append(created, id)
	}

	scriptID := b.newID("script")
	return model.ScriptSnapshot{
		ID:                scriptID,
		Code:              WrapScript(scriptID, BindPlaceholders(m.Code, bindings)),
		CreatedElementIDs: created,
		Timestamp:         ts,
	}
}

// BindPlaceholders replaces every literal occurrence of each placeholder with
// its bound id in a single pass. Longer placeholders win over their prefixes,
// so "ph1" never clobbers part of "ph10".
func BindPlaceholders(code string, bindings map[string]string) string {
	if len(bindings) == 0 {
		return code
	}
	placeholders := make([]string, 0, len(bindings))
	for p := range bindings {
		placeholders = append(placeholders, p)
	}
	sort.Slice(placeholders, func(i, j int) bool {
		if len(placeholders[i]) != len(placeholders[j]) {
			return len(placeholders[i]) > len(placeholders[j])
		}
		return placeholders[i] < placeholders[j]
	})
	pairs := make([]string, 0, 2*len(placeholders))
	for _, p := range placeholders {
		pairs = append(pairs, p, bindings[p])
	}
	return strings.NewReplacer(pairs...).Replace(code)
}
