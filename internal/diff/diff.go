// Package diff compares the rendered CSS of two effective snapshots.
package diff

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/raysh454/eddy/internal/model"
)

const (
	ChunkAdded   = "added"
	ChunkRemoved = "removed"
)

// Chunk is one changed rule line. Selector is the rule's selector when the
// line is a whole rule.
type Chunk struct {
	Type     string `json:"type"`
	Selector string `json:"selector,omitempty"`
	Content  string `json:"content"`
}

// Change is one property that differs between two snapshots.
type Change struct {
	Selector string `json:"selector"`
	Property string `json:"property"`
	Old      string `json:"old,omitempty"`
	New      string `json:"new,omitempty"`
}

// Result is the diff between a base and a head snapshot.
type Result struct {
	BaseID  string   `json:"baseId,omitempty"`
	HeadID  string   `json:"headId,omitempty"`
	Chunks  []Chunk  `json:"chunks"`
	Changes []Change `json:"changes"`

	// Unified is the stylesheet diff as a unified patch, empty when the
	// stylesheets are identical.
	Unified string `json:"unified,omitempty"`
}

// Empty reports whether base and head render the same styles.
func (r Result) Empty() bool { return len(r.Chunks) == 0 && len(r.Changes) == 0 }

// Snapshots diffs base against head: a line diff of their stylesheets plus a
// per-property change list.
func Snapshots(base, head model.Snapshot) Result {
	baseCSS, headCSS := base.CSSText(), head.CSSText()
	return Result{
		BaseID:  base.ID,
		HeadID:  head.ID,
		Chunks:  CSS(baseCSS, headCSS),
		Changes: Properties(base, head),
		Unified: Unified(patchName("a", base.ID), patchName("b", head.ID), baseCSS, headCSS),
	}
}

func patchName(side, id string) string {
	if id == "" {
		return side + "/empty.css"
	}
	return side + "/" + id + ".css"
}

// Unified renders head against base as a unified patch with two lines of
// context.
func Unified(baseName, headName, base, head string) string {
	u := difflib.UnifiedDiff{
		A:        patchLines(base),
		B:        patchLines(head),
		FromFile: baseName,
		ToFile:   headName,
		Context:  2,
	}
	s, err := difflib.GetUnifiedDiffString(u)
	if err != nil {
		// only the underlying writer can fail and a strings.Builder does not
		return ""
	}
	return s
}

// CSS returns the added and removed lines between two stylesheets.
func CSS(base, head string) []Chunk {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(withNewline(base), withNewline(head))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	chunks := make([]Chunk, 0)
	for _, d := range diffs {
		var typ string
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			typ = ChunkAdded
		case diffmatchpatch.DiffDelete:
			typ = ChunkRemoved
		default:
			continue
		}
		for _, line := range strings.Split(strings.TrimSuffix(d.Text, "\n"), "\n") {
			if strings.TrimSpace(line) == "" {
				continue
			}
			chunks = append(chunks, Chunk{Type: typ, Selector: ruleSelector(line), Content: line})
		}
	}
	return chunks
}

func patchLines(s string) []string {
	if s == "" {
		return nil
	}
	return difflib.SplitLines(strings.TrimSuffix(s, "\n"))
}

func withNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}

func ruleSelector(line string) string {
	if i := strings.LastIndex(line, " {"); i > 0 && strings.HasSuffix(line, "}") {
		return line[:i]
	}
	return ""
}

// Properties lists property-level changes, base selectors first in base
// order, then selectors only head declares.
func Properties(base, head model.Snapshot) []Change {
	changes := make([]Change, 0)
	seen := make(map[string]bool)
	for _, be := range base.Elements {
		seen[be.Selector] = true
		he, _ := head.ElementBySelector(be.Selector)
		changes = append(changes, compare(be.Selector, be.CSSPropertyMap, he.CSSPropertyMap)...)
	}
	for _, he := range head.Elements {
		if seen[he.Selector] {
			continue
		}
		changes = append(changes, compare(he.Selector, model.PropertyMap{}, he.CSSPropertyMap)...)
	}
	return changes
}

func compare(selector string, old, cur model.PropertyMap) []Change {
	var out []Change
	old.Each(func(k, v string) {
		nv, ok := cur.Get(k)
		if !ok {
			out = append(out, Change{Selector: selector, Property: k, Old: v})
		} else if nv != v {
			out = append(out, Change{Selector: selector, Property: k, Old: v, New: nv})
		}
	})
	cur.Each(func(k, v string) {
		if _, ok := old.Get(k); !ok {
			out = append(out, Change{Selector: selector, Property: k, New: v})
		}
	})
	return out
}
