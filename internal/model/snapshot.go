package model

// ScriptPlaceholderSelector is the selector recorded for style elements a
// script allocates through its placeholder ids.
const ScriptPlaceholderSelector = "cssByScript"

// StyleElementSnapshot is the full declared property set of one <style>
// element for one selector.
type StyleElementSnapshot struct {
	ID             string      `json:"id"`
	Selector       string      `json:"selector"`
	CSSPropertyMap PropertyMap `json:"cssPropertyMap"`
	Timestamp      int64       `json:"timestamp"` // epoch milliseconds
}

// Clone returns a deep copy.
func (e StyleElementSnapshot) Clone() StyleElementSnapshot {
	e.CSSPropertyMap = e.CSSPropertyMap.Clone()
	return e
}

// ScriptSnapshot is a self-contained script layer. CreatedElementIDs are the
// generated style-element ids its placeholders were bound to. The script
// creates those elements itself (the layer carries no records for them);
// they are removed together with the script.
type ScriptSnapshot struct {
	ID                string   `json:"id"`
	Code              string   `json:"code"`
	CreatedElementIDs []string `json:"createdElementIds"`
	Timestamp         int64    `json:"timestamp"`
}

// Clone returns a deep copy.
func (s ScriptSnapshot) Clone() ScriptSnapshot {
	s.CreatedElementIDs = cloneStrings(s.CreatedElementIDs)
	return s
}

// cloneStrings copies in, keeping nil and empty distinct so JSON round trips
// stay exact.
func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append(make([]string, 0, len(in)), in...)
}

// Snapshot is one immutable layer of page modifications produced by a
// single apply action. It is a layer, not a full page state.
type Snapshot struct {
	ID        string                 `json:"id"`
	Elements  []StyleElementSnapshot `json:"elements"`
	Scripts   []ScriptSnapshot       `json:"scripts"`
	UserQuery string                 `json:"userQuery"`
	Timestamp int64                  `json:"timestamp"`
}

// EmptySnapshot returns a snapshot with no elements and no scripts.
func EmptySnapshot() Snapshot {
	return Snapshot{Elements: []StyleElementSnapshot{}, Scripts: []ScriptSnapshot{}}
}

// IsEmpty reports whether the snapshot carries no styles and no scripts.
func (s Snapshot) IsEmpty() bool {
	return len(s.Elements) == 0 && len(s.Scripts) == 0
}

// Clone returns a deep copy.
func (s Snapshot) Clone() Snapshot {
	out := s
	if s.Elements != nil {
		out.Elements = make([]StyleElementSnapshot, len(s.Elements))
		for i, e := range s.Elements {
			out.Elements[i] = e.Clone()
		}
	}
	if s.Scripts != nil {
		out.Scripts = make([]ScriptSnapshot, len(s.Scripts))
		for i, sc := range s.Scripts {
			out.Scripts[i] = sc.Clone()
		}
	}
	return out
}

// ElementBySelector returns the element declared for selector, if any.
func (s Snapshot) ElementBySelector(selector string) (StyleElementSnapshot, bool) {
	for _, e := range s.Elements {
		if e.Selector == selector {
			return e, true
		}
	}
	return StyleElementSnapshot{}, false
}

// DOMIDs returns every DOM id this snapshot owns when rendered: style
// elements, scripts and script-created style elements.
func (s Snapshot) DOMIDs() []string {
	ids := make([]string, 0, len(s.Elements)+len(s.Scripts))
	for _, e := range s.Elements {
		ids = append(ids, e.ID)
	}
	for _, sc := range s.Scripts {
		ids = append(ids, sc.ID)
		ids = append(ids, sc.CreatedElementIDs...)
	}
	return ids
}
