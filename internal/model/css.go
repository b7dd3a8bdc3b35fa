package model

import "strings"

// CSSText renders the element as a single rule, properties in map order:
//
//	selector { prop: value; prop2: value2; }
func (e StyleElementSnapshot) CSSText() string {
	var b strings.Builder
	b.WriteString(e.Selector)
	b.WriteString(" {")
	e.CSSPropertyMap.Each(func(k, v string) {
		b.WriteByte(' ')
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(v)
		b.WriteByte(';')
	})
	b.WriteString(" }")
	return b.String()
}

// CSSText renders every style element of the snapshot, one rule per line.
func (s Snapshot) CSSText() string {
	rules := make([]string, 0, len(s.Elements))
	for _, e := range s.Elements {
		rules = append(rules, e.CSSText())
	}
	return strings.Join(rules, "\n")
}
