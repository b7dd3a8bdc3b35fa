package webclient

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/raysh454/eddy/internal/logging"
)

// ChromedpClient renders pages in headless Chrome so previews see the DOM
// after scripts ran. Only GET is supported.
type ChromedpClient struct {
	cfg         Config
	logger      logging.Logger
	browserCtx  context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
}

func NewChromedpClient(cfg Config, logger logging.Logger) (*ChromedpClient, error) {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts, chromedp.Flag("headless", cfg.Headless))
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancel := chromedp.NewContext(allocCtx)

	// start the browser now so a missing Chrome fails construction
	if err := chromedp.Run(browserCtx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("start chrome: %w", err)
	}
	return &ChromedpClient{
		cfg:         cfg,
		logger:      logger.With(logging.Field{Key: "backend", Value: "chromedp"}),
		browserCtx:  browserCtx,
		cancel:      cancel,
		allocCancel: allocCancel,
	}, nil
}

// waitNetworkIdle signals once no request has been in flight for idleAfter.
func waitNetworkIdle(ctx context.Context, idleAfter time.Duration) <-chan struct{} {
	idle := make(chan struct{})
	var active int32
	var mu sync.Mutex
	var timer *time.Timer
	var once sync.Once

	arm := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(idleAfter, func() {
			if atomic.LoadInt32(&active) == 0 {
				once.Do(func() { close(idle) })
			}
		})
	}

	chromedp.ListenTarget(ctx, func(ev any) {
		switch ev.(type) {
		case *network.EventRequestWillBeSent:
			atomic.AddInt32(&active, 1)
		case *network.EventLoadingFinished, *network.EventLoadingFailed:
			if atomic.AddInt32(&active, -1) <= 0 {
				arm()
			}
		}
	})
	arm()
	return idle
}

func (c *ChromedpClient) Do(ctx context.Context, req *Request) (*Response, error) {
	if req == nil {
		return nil, ErrNilRequest
	}
	if m := strings.ToUpper(req.Method); m != "" && m != http.MethodGet {
		return nil, fmt.Errorf("%w: %s", ErrMethodNotSupported, m)
	}

	tabCtx, cancelTab := chromedp.NewContext(c.browserCtx)
	defer cancelTab()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, c.cfg.timeout())
	defer cancelTimeout()
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	idle := waitNetworkIdle(tabCtx, c.cfg.idleAfter())
	var status int64
	chromedp.ListenTarget(tabCtx, func(ev any) {
		if r, ok := ev.(*network.EventResponseReceived); ok && r.Type == network.ResourceTypeDocument && atomic.LoadInt64(&status) == 0 {
			atomic.StoreInt64(&status, r.Response.Status)
		}
	})

	if err := chromedp.Run(tabCtx, network.Enable(), chromedp.Navigate(req.URL)); err != nil {
		return nil, fmt.Errorf("navigate %s: %w", req.URL, err)
	}
	select {
	case <-idle:
	case <-tabCtx.Done():
		return nil, fmt.Errorf("wait for %s: %w", req.URL, tabCtx.Err())
	}

	var html string
	if err := chromedp.Run(tabCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return nil, fmt.Errorf("read html: %w", err)
	}
	code := int(atomic.LoadInt64(&status))
	if code == 0 {
		code = http.StatusOK
	}
	c.logger.Debug("rendered page",
		logging.Field{Key: "url", Value: req.URL},
		logging.Field{Key: "status", Value: code})
	return &Response{
		Request:    req,
		Headers:    http.Header{"Content-Type": []string{"text/html; charset=utf-8"}},
		Body:       []byte(html),
		StatusCode: code,
		FetchedAt:  time.Now(),
	}, nil
}

func (c *ChromedpClient) Get(ctx context.Context, url string) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodGet, URL: url})
}

func (c *ChromedpClient) Close() error {
	c.cancel()
	c.allocCancel()
	return nil
}
