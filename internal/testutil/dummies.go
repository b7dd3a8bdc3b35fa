// Package testutil provides shared test doubles for use across package tests.
// All dummies implement the corresponding interfaces from the production code,
// allowing injection into components under test without real I/O or side effects.
package testutil

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/raysh454/eddy/internal/bridge"
	"github.com/raysh454/eddy/internal/logging"
	"github.com/raysh454/eddy/internal/model"
	"github.com/raysh454/eddy/internal/store"
	"github.com/raysh454/eddy/internal/webclient"
)

// ─── Logger ────────────────────────────────────────────────────────────

// DummyLogger implements logging.Logger with in-memory recording.
type DummyLogger struct {
	mu     sync.Mutex
	Errors []string
	Infos  []string
	Debugs []string
	Warns  []string
}

func (l *DummyLogger) Debug(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Debugs = append(l.Debugs, msg)
}

func (l *DummyLogger) Info(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Infos = append(l.Infos, msg)
}

func (l *DummyLogger) Warn(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Warns = append(l.Warns, msg)
}

func (l *DummyLogger) Error(msg string, fields ...logging.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Errors = append(l.Errors, msg)
}

func (l *DummyLogger) With(_ ...logging.Field) logging.Logger { return l }

// WarnCount returns how many warnings were logged.
func (l *DummyLogger) WarnCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.Warns)
}

// ─── WebClient ─────────────────────────────────────────────────────────

// DummyWebClient implements webclient.WebClient.
// By default it returns Body with status 200.
type DummyWebClient struct {
	Body   string
	Status int
	Err    error

	mu   sync.Mutex
	URLs []string
}

func (d *DummyWebClient) Do(ctx context.Context, req *webclient.Request) (*webclient.Response, error) {
	d.mu.Lock()
	d.URLs = append(d.URLs, req.URL)
	d.mu.Unlock()
	if d.Err != nil {
		return nil, d.Err
	}
	status := d.Status
	if status == 0 {
		status = http.StatusOK
	}
	return &webclient.Response{
		Request:    req,
		Headers:    http.Header{"Content-Type": []string{"text/html"}},
		Body:       []byte(d.Body),
		StatusCode: status,
		FetchedAt:  time.Now(),
	}, nil
}

func (d *DummyWebClient) Get(ctx context.Context, url string) (*webclient.Response, error) {
	return d.Do(ctx, &webclient.Request{Method: http.MethodGet, URL: url})
}

func (d *DummyWebClient) Close() error { return nil }

// ─── Bridge ────────────────────────────────────────────────────────────

// RecordingBridge implements bridge.Bridge. It records every request and
// fails the script ids listed in Fail. When Gate is set, each call waits for
// a value on it (or ctx) before answering.
type RecordingBridge struct {
	Fail map[string]string
	Gate chan struct{}

	mu       sync.Mutex
	Requests []bridge.Request
}

func (b *RecordingBridge) Execute(ctx context.Context, req bridge.Request) (*bridge.Result, error) {
	b.mu.Lock()
	b.Requests = append(b.Requests, req)
	b.mu.Unlock()
	if b.Gate != nil {
		select {
		case <-b.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if msg, ok := b.Fail[req.ScriptID]; ok {
		return &bridge.Result{Success: false, Error: msg}, nil
	}
	return &bridge.Result{Success: true}, nil
}

// ScriptIDs returns the script ids executed so far, in order.
func (b *RecordingBridge) ScriptIDs() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := make([]string, 0, len(b.Requests))
	for _, r := range b.Requests {
		ids = append(ids, r.ScriptID)
	}
	return ids
}

// ─── Persistence ───────────────────────────────────────────────────────

// FailingAdapter wraps a store.Adapter and fails Save/Load while the
// corresponding flag is set.
type FailingAdapter struct {
	store.Adapter

	mu       sync.Mutex
	FailSave bool
	FailLoad bool
	Saves    int
}

func (f *FailingAdapter) SetFailSave(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.FailSave = v
}

func (f *FailingAdapter) Load(ctx context.Context, key string) (*model.HistoryState, error) {
	f.mu.Lock()
	fail := f.FailLoad
	f.mu.Unlock()
	if fail {
		return nil, &errString{"load unavailable"}
	}
	return f.Adapter.Load(ctx, key)
}

func (f *FailingAdapter) Save(ctx context.Context, key string, state model.HistoryState) error {
	f.mu.Lock()
	fail := f.FailSave
	f.Saves++
	f.mu.Unlock()
	if fail {
		return &errString{"disk full"}
	}
	return f.Adapter.Save(ctx, key, state)
}

// ─── helpers ───────────────────────────────────────────────────────────

type errString struct{ s string }

func (e *errString) Error() string { return e.s }
