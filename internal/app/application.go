package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/raysh454/eddy/internal/bridge"
	"github.com/raysh454/eddy/internal/browser"
	"github.com/raysh454/eddy/internal/cli"
	"github.com/raysh454/eddy/internal/engine"
	"github.com/raysh454/eddy/internal/logging"
	"github.com/raysh454/eddy/internal/metrics"
	"github.com/raysh454/eddy/internal/server"
	"github.com/raysh454/eddy/internal/store"
	"github.com/raysh454/eddy/internal/utils"
	"github.com/raysh454/eddy/internal/webclient"
)

// Application is the global runtime state container: config, parsed CLI
// args and the services shared by every mode.
type Application struct {
	Config   *Config
	Args     *cli.CLIArgs
	Logger   logging.Logger
	Store    store.EddyStore
	Sessions *SessionManager
	Metrics  *metrics.Metrics

	// Hub is set when scripts go through the extension background.
	Hub *bridge.Hub

	web webclient.WebClient
}

// NewApplication opens storage and builds the session manager.
func NewApplication(cfg *Config, args *cli.CLIArgs, logger logging.Logger) (*Application, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if args == nil {
		args = &cli.CLIArgs{Mode: cli.ModeServe}
	}
	if logger == nil {
		logger = logging.NopLogger{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	root, err := expandPath(cfg.Store.Root)
	if err != nil {
		return nil, fmt.Errorf("expanding storage root path: %w", err)
	}
	cfg.Store.Root = root
	if root != "" && cfg.Store.Backend != store.BackendMemory {
		if err := os.MkdirAll(root, 0o755); err != nil {
			return nil, fmt.Errorf("creating storage root: %w", err)
		}
	}

	st, err := store.New(cfg.Store, logger)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	a := &Application{Config: cfg, Args: args, Logger: logger, Store: st}

	// live mode renders onto Chrome directly and fetches nothing
	if args.Mode != cli.ModeLive {
		web, err := webclient.NewWebClient(cfg.WebClient, logger)
		if err != nil {
			_ = st.Close()
			return nil, err
		}
		a.web = web
	}

	var scripts bridge.Bridge
	if cfg.Bridge.Backend == bridge.BackendWebsocket {
		a.Hub = bridge.NewHub(cfg.Bridge, logger)
		scripts = a.Hub
	}
	a.Metrics = metrics.New()
	a.Sessions = NewSessionManager(cfg, st, a.web, scripts, logger)
	a.Sessions.metrics = a.Metrics
	return a, nil
}

// Run dispatches on the CLI mode and blocks until ctx is done or the mode
// finishes.
func (a *Application) Run(ctx context.Context, stdout io.Writer) error {
	a.Logger.Info("application starting", logging.Field{Key: "mode", Value: string(a.Args.Mode)})
	switch a.Args.Mode {
	case cli.ModeRender:
		return a.Render(ctx, a.Args.Session, a.Args.URL, a.Args.Out, stdout)
	case cli.ModeLive:
		return a.Live(ctx, a.Args.Session, a.Args.URL)
	default:
		return a.Serve(ctx)
	}
}

// Serve runs the HTTP API until ctx is done.
func (a *Application) Serve(ctx context.Context) error {
	cfg := a.Config.Server
	if a.Args.Addr != "" {
		cfg.ListenAddr = a.Args.Addr
	}
	opts := []server.Option{server.WithMetrics(a.Metrics.Handler())}
	if a.Hub != nil {
		opts = append(opts, server.WithBridge(a.Hub))
	}
	srv := server.New(cfg, a.Sessions, a.Logger, opts...).HTTPServer()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Logger.Info("listening", logging.Field{Key: "addr", Value: srv.Addr})
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Render writes the session rendered into its page to out, or to w when
// out is empty.
func (a *Application) Render(ctx context.Context, id, rawURL, out string, w io.Writer) error {
	page, err := a.Sessions.Preview(ctx, id, rawURL)
	if err != nil {
		return err
	}
	if out == "" {
		_, err = io.WriteString(w, page)
		return err
	}
	if err := utils.AtomicWriteFile(out, []byte(page), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}
	a.Logger.Info("rendered session", logging.Field{Key: "id", Value: id}, logging.Field{Key: "out", Value: out})
	return nil
}

// Live opens the session's page in Chrome, renders its saved history onto
// it and keeps it there until ctx is done.
func (a *Application) Live(ctx context.Context, id, rawURL string) error {
	e, err := a.Store.Get(ctx, id)
	if err != nil {
		return err
	}
	target, err := PageURL(e, rawURL)
	if err != nil {
		return err
	}

	tab, err := browser.Open(a.Config.Browser, a.Logger)
	if err != nil {
		return err
	}
	defer tab.Close()
	if err := tab.Navigate(ctx, target); err != nil {
		return err
	}

	eng := engine.New(id, tab, tab, a.Store, a.Config.Engine, engine.WithLogger(a.Logger))
	out, err := eng.Restore(ctx)
	if err != nil && !out.Changed {
		return err
	}
	if err != nil {
		a.Logger.Warn("live render partially failed", logging.Field{Key: "error", Value: err.Error()})
	}
	a.Logger.Info("session live",
		logging.Field{Key: "id", Value: id},
		logging.Field{Key: "url", Value: target},
		logging.Field{Key: "cursor", Value: out.Cursor})

	<-ctx.Done()
	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return eng.Close(closeCtx)
}

// Shutdown clears open sessions and releases storage, the fetcher and the
// bridge.
func (a *Application) Shutdown(ctx context.Context) error {
	if a == nil {
		return errors.New("application is nil")
	}
	a.Logger.Info("application shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	var errs []error
	if err := a.Sessions.Close(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	if a.Hub != nil {
		if err := a.Hub.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing bridge: %w", err))
		}
	}
	if a.web != nil {
		if err := a.web.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing web client: %w", err))
		}
	}
	if err := a.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing store: %w", err))
	}
	return errors.Join(errs...)
}
