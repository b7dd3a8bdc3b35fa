// Package dom renders snapshots onto a page document and removes them again.
//
// The reconciler never diffs: every transition clears what was rendered and
// renders the new effective snapshot in full.
package dom

import "context"

// Document is the set of page capabilities the reconciler needs. It must only
// ever touch elements whose ids it is handed.
type Document interface {
	// UpsertStyle places <style id=id>css</style> under <head>, replacing the
	// text of an existing element with that id.
	UpsertStyle(ctx context.Context, id, css string) error

	// RemoveElement removes every element with the given id. Missing ids are
	// not an error.
	RemoveElement(ctx context.Context, id string) error

	// DispatchCleanup fires a custom event on the page so injected scripts
	// can undo their side effects.
	DispatchCleanup(ctx context.Context, event string) error
}
