// Package browser drives a live Chrome tab over the DevTools protocol. A Tab
// is both the page document and the privileged script bridge for it.
package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/raysh454/eddy/internal/bridge"
	"github.com/raysh454/eddy/internal/dom"
	"github.com/raysh454/eddy/internal/logging"
)

// ScriptMarkerType is the type attribute of the inert <script> element left
// in the page for every executed script layer.
const ScriptMarkerType = "application/x-eddy-script"

type Tab struct {
	cfg    Config
	logger logging.Logger

	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
}

var (
	_ dom.Document  = (*Tab)(nil)
	_ bridge.Bridge = (*Tab)(nil)
)

// Open starts Chrome and attaches to a fresh tab with CSP bypass enabled, so
// injected styles and scripts are not blocked by the page's policy.
func Open(cfg Config, logger logging.Logger) (*Tab, error) {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts, chromedp.Flag("headless", cfg.Headless))
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	ctx, cancel := chromedp.NewContext(allocCtx)

	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return page.SetBypassCSP(true).Do(ctx)
	}))
	if err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("start chrome: %w", err)
	}

	t := &Tab{
		cfg:         cfg,
		logger:      logger.With(logging.Field{Key: "component", Value: "browser"}),
		ctx:         ctx,
		cancel:      cancel,
		allocCancel: allocCancel,
	}
	t.logger.Info("chrome tab opened", logging.Field{Key: "headless", Value: cfg.Headless})
	return t, nil
}

// run executes actions on the tab while honouring the caller's ctx.
func (t *Tab) run(ctx context.Context, actions ...chromedp.Action) error {
	done := make(chan error, 1)
	go func() { done <- chromedp.Run(t.ctx, actions...) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Navigate loads url and waits for the body to be ready.
func (t *Tab) Navigate(ctx context.Context, url string) error {
	timeout := t.cfg.NavigateTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := t.run(ctx, chromedp.Navigate(url), chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	t.logger.Debug("navigated", logging.Field{Key: "url", Value: url})
	return nil
}

// OuterHTML returns the current serialised document.
func (t *Tab) OuterHTML(ctx context.Context) (string, error) {
	var out string
	if err := t.run(ctx, chromedp.OuterHTML("html", &out, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("outer html: %w", err)
	}
	return out, nil
}

// jsArgs renders Go values as a JS argument list.
func jsArgs(args ...any) string {
	b, _ := json.Marshal(args)
	return string(b[1 : len(b)-1])
}

func (t *Tab) UpsertStyle(ctx context.Context, id, css string) error {
	expr := `((id, css) => {
  let el = document.getElementById(id);
  if (!el) {
    el = document.createElement("style");
    el.id = id;
    (document.head || document.documentElement).appendChild(el);
  }
  el.textContent = css;
})(` + jsArgs(id, css) + `)`
	return t.run(ctx, chromedp.Evaluate(expr, nil))
}

func (t *Tab) RemoveElement(ctx context.Context, id string) error {
	expr := `((id) => {
  for (let el = document.getElementById(id); el; el = document.getElementById(id)) el.remove();
})(` + jsArgs(id) + `)`
	return t.run(ctx, chromedp.Evaluate(expr, nil))
}

func (t *Tab) DispatchCleanup(ctx context.Context, event string) error {
	expr := `document.dispatchEvent(new CustomEvent(` + jsArgs(event) + `))`
	return t.run(ctx, chromedp.Evaluate(expr, nil))
}

// Execute evaluates the code in the page through the DevTools runtime and
// leaves an inert <script> marker carrying the script id. Exceptions thrown
// by the code are reported as an unsuccessful Result.
func (t *Tab) Execute(ctx context.Context, req bridge.Request) (*bridge.Result, error) {
	expr := `(async () => {
  const r = await (async () => {
` + req.Code + `
  })();
  try { return JSON.stringify(r === undefined ? null : r); } catch (e) { return "null"; }
})()`
	mark := `((id, code, type) => {
  let el = document.getElementById(id);
  if (!el) {
    el = document.createElement("script");
    el.id = id;
    el.type = type;
    (document.body || document.documentElement).appendChild(el);
  }
  el.textContent = code;
})(` + jsArgs(req.ScriptID, req.Code, ScriptMarkerType) + `)`

	var out string
	err := t.run(ctx,
		chromedp.Evaluate(mark, nil),
		chromedp.Evaluate(expr, &out, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}),
	)
	var exc *runtime.ExceptionDetails
	if errors.As(err, &exc) {
		return &bridge.Result{Success: false, Error: exceptionMessage(exc)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("evaluate script %s: %w", req.ScriptID, err)
	}
	return &bridge.Result{Success: true, Result: json.RawMessage(out)}, nil
}

func exceptionMessage(exc *runtime.ExceptionDetails) string {
	msg := exc.Text
	if exc.Exception != nil && exc.Exception.Description != "" {
		msg += ": " + exc.Exception.Description
	}
	return msg
}

// Close shuts the tab and the browser down.
func (t *Tab) Close() error {
	t.cancel()
	t.allocCancel()
	t.logger.Info("chrome tab closed")
	return nil
}
