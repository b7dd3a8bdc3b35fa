package dom

import (
	"context"
	"errors"
	"fmt"

	"github.com/raysh454/eddy/internal/bridge"
	"github.com/raysh454/eddy/internal/logging"
	"github.com/raysh454/eddy/internal/model"
	"github.com/raysh454/eddy/internal/snapshot"
)

// ScriptFailure records a script layer the bridge could not run. The layer
// stays in history so a later clear still removes whatever it created.
type ScriptFailure struct {
	ScriptID string `json:"scriptId"`
	Message  string `json:"message"`
}

// Reconciler applies and clears snapshots on one document.
type Reconciler struct {
	doc    Document
	bridge bridge.Bridge
	tabID  int
	logger logging.Logger
}

// NewReconciler wires a document and the bridge that runs its scripts.
func NewReconciler(doc Document, b bridge.Bridge, tabID int, logger logging.Logger) *Reconciler {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	return &Reconciler{
		doc:    doc,
		bridge: b,
		tabID:  tabID,
		logger: logger.With(logging.Field{Key: "component", Value: "reconciler"}),
	}
}

// ApplyToDOM inserts every style element of snap, then runs its scripts one
// at a time in order. Script failures are collected and do not stop later
// scripts; a document error or a cancelled ctx aborts.
func (r *Reconciler) ApplyToDOM(ctx context.Context, snap model.Snapshot) ([]ScriptFailure, error) {
	for _, el := range snap.Elements {
		if err := r.doc.UpsertStyle(ctx, el.ID, el.CSSText()); err != nil {
			return nil, fmt.Errorf("insert style %s: %w", el.ID, err)
		}
	}

	var failures []ScriptFailure
	for _, sc := range snap.Scripts {
		if err := ctx.Err(); err != nil {
			return failures, err
		}
		_, err := bridge.Run(ctx, r.bridge, bridge.Request{TabID: r.tabID, ScriptID: sc.ID, Code: sc.Code})
		if err == nil {
			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return failures, ctxErr
		}
		r.logger.Warn("script failed",
			logging.Field{Key: "script_id", Value: sc.ID},
			logging.Field{Key: "error", Value: err.Error()})
		failures = append(failures, ScriptFailure{ScriptID: sc.ID, Message: err.Error()})
	}

	r.logger.Debug("snapshot applied",
		logging.Field{Key: "snapshot_id", Value: snap.ID},
		logging.Field{Key: "elements", Value: len(snap.Elements)},
		logging.Field{Key: "scripts", Value: len(snap.Scripts)})
	return failures, nil
}

// ClearFromDOM removes everything snap put on the page. It keeps going past
// individual errors and returns them joined.
func (r *Reconciler) ClearFromDOM(ctx context.Context, snap model.Snapshot) error {
	var errs []error
	for _, el := range snap.Elements {
		if err := r.doc.RemoveElement(ctx, el.ID); err != nil {
			errs = append(errs, fmt.Errorf("remove style %s: %w", el.ID, err))
		}
	}
	for _, sc := range snap.Scripts {
		if err := r.doc.DispatchCleanup(ctx, snapshot.CleanupEventName(sc.ID)); err != nil {
			errs = append(errs, fmt.Errorf("cleanup %s: %w", sc.ID, err))
		}
		if err := r.doc.RemoveElement(ctx, sc.ID); err != nil {
			errs = append(errs, fmt.Errorf("remove script %s: %w", sc.ID, err))
		}
		for _, id := range sc.CreatedElementIDs {
			if err := r.doc.RemoveElement(ctx, id); err != nil {
				errs = append(errs, fmt.Errorf("remove created element %s: %w", id, err))
			}
		}
	}
	if len(errs) > 0 {
		r.logger.Warn("clear incomplete",
			logging.Field{Key: "snapshot_id", Value: snap.ID},
			logging.Field{Key: "errors", Value: len(errs)})
	}
	return errors.Join(errs...)
}
