// Package webclient fetches page HTML to seed preview documents.
package webclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	ErrNilRequest         = errors.New("webclient: nil request")
	ErrMethodNotSupported = errors.New("webclient: method not supported")
	ErrUnexpectedStatus   = errors.New("webclient: unexpected status")
)

type WebClient interface {
	Do(ctx context.Context, req *Request) (*Response, error)
	Get(ctx context.Context, url string) (*Response, error)
	Close() error
}

type Request struct {
	Method  string
	URL     string
	Headers http.Header
	Body    []byte
}

type Response struct {
	Request    *Request
	Headers    http.Header
	Body       []byte
	StatusCode int
	FetchedAt  time.Time
}

// FetchHTML GETs url and returns the body, failing on 4xx/5xx.
func FetchHTML(ctx context.Context, wc WebClient, url string) (string, error) {
	resp, err := wc.Get(ctx, url)
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("%w: %s returned %d", ErrUnexpectedStatus, url, resp.StatusCode)
	}
	return string(resp.Body), nil
}
