package dom

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/raysh454/eddy/internal/bridge"
)

// HTMLDocument is an in-memory page parsed with goquery. It backs previews
// and tests. It also acts as a bridge: executing a script appends a
// <script id=...> element to <body>, which is what the page would carry
// after injection.
type HTMLDocument struct {
	mu     sync.Mutex
	doc    *goquery.Document
	events []string
}

var (
	_ Document      = (*HTMLDocument)(nil)
	_ bridge.Bridge = (*HTMLDocument)(nil)
)

// NewHTMLDocument parses r as HTML. Missing <head>/<body> are synthesised by
// the parser.
func NewHTMLDocument(r io.Reader) (*HTMLDocument, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &HTMLDocument{doc: doc}, nil
}

// ParseHTML is NewHTMLDocument over a string.
func ParseHTML(s string) (*HTMLDocument, error) {
	return NewHTMLDocument(strings.NewReader(s))
}

// byID matches on the attribute value directly so ids never need CSS escaping.
func (d *HTMLDocument) byID(id string) *goquery.Selection {
	return d.doc.Find("[id]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		v, _ := s.Attr("id")
		return v == id
	})
}

func newElement(a atom.Atom, id, text string) *html.Node {
	n := &html.Node{
		Type:     html.ElementNode,
		DataAtom: a,
		Data:     a.String(),
		Attr:     []html.Attribute{{Key: "id", Val: id}},
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	return n
}

// escapeEndTag rewrites every "</tag" in raw element text as "<\/tag" so
// the text cannot close its element when serialised. Both CSS and JS read
// "\/" as "/".
func escapeEndTag(text, tag string) string {
	closing := "</" + tag
	var b strings.Builder
	last := 0
	for i := 0; i+len(closing) <= len(text); i++ {
		if text[i] == '<' && strings.EqualFold(text[i:i+len(closing)], closing) {
			b.WriteString(text[last : i+1])
			b.WriteString(`\/`)
			last = i + 2
		}
	}
	if last == 0 {
		return text
	}
	b.WriteString(text[last:])
	return b.String()
}

func (d *HTMLDocument) upsert(parent string, a atom.Atom, id, text string) {
	if existing := d.byID(id); existing.Length() > 0 {
		existing.First().SetText(text)
		return
	}
	d.doc.Find(parent).First().AppendNodes(newElement(a, id, text))
}

func (d *HTMLDocument) UpsertStyle(ctx context.Context, id, css string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.upsert("head", atom.Style, id, escapeEndTag(css, "style"))
	return nil
}

func (d *HTMLDocument) RemoveElement(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.byID(id).Remove()
	return nil
}

// DispatchCleanup records the event; a static document has no listeners.
func (d *HTMLDocument) DispatchCleanup(ctx context.Context, event string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

// Execute inserts the script element. Nothing is evaluated.
func (d *HTMLDocument) Execute(ctx context.Context, req bridge.Request) (*bridge.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.ScriptID == "" {
		return &bridge.Result{Success: false, Error: "missing script id"}, nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.upsert("body", atom.Script, req.ScriptID, escapeEndTag(req.Code, "script"))
	return &bridge.Result{Success: true}, nil
}

// Has reports whether any element carries id.
func (d *HTMLDocument) Has(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.byID(id).Length() > 0
}

// Text returns the text content of the first element with id.
func (d *HTMLDocument) Text(id string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	sel := d.byID(id)
	if sel.Length() == 0 {
		return "", false
	}
	return sel.First().Text(), true
}

// IDs lists every id present in document order.
func (d *HTMLDocument) IDs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var ids []string
	d.doc.Find("[id]").Each(func(_ int, s *goquery.Selection) {
		v, _ := s.Attr("id")
		ids = append(ids, v)
	})
	return ids
}

// Events returns the cleanup events dispatched so far.
func (d *HTMLDocument) Events() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.events...)
}

// HTML serialises the whole document.
func (d *HTMLDocument) HTML() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var buf bytes.Buffer
	for _, n := range d.doc.Nodes {
		if err := html.Render(&buf, n); err != nil {
			return "", fmt.Errorf("render html: %w", err)
		}
	}
	return buf.String(), nil
}
