// Package cli parses the eddy command line.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
)

type Mode string

const (
	// ModeServe runs the HTTP API.
	ModeServe Mode = "serve"
	// ModeRender writes a session rendered into a fetched page.
	ModeRender Mode = "render"
	// ModeLive opens the page in Chrome and renders a session onto it until
	// interrupted.
	ModeLive Mode = "live"
)

// CLIArgs are the command-line arguments for one invocation.
type CLIArgs struct {
	Mode Mode

	// ConfigPath is an optional YAML file overlaid on the defaults.
	ConfigPath string

	// Session is the Eddy id for render and live.
	Session string

	// URL overrides the page a session is rendered onto. Empty means the
	// root of the session's domain.
	URL string

	// Out is the render destination; empty writes to stdout.
	Out string

	// Addr overrides the configured listen address in serve mode.
	Addr string

	// RawArgs is the original args slice (useful for debugging/tests).
	RawArgs []string
}

// ParseArgs parses a slice of args and returns CLIArgs. The function is
// deterministic and does not read os.Args.
func ParseArgs(args []string) (*CLIArgs, error) {
	fs := flag.NewFlagSet("eddy", flag.ContinueOnError)
	var (
		mode    = fs.String("mode", string(ModeServe), "Run mode: serve|render|live")
		config  = fs.String("config", "", "YAML config file")
		session = fs.String("session", "", "Eddy id (render, live)")
		url     = fs.String("url", "", "Page to render onto (default: the session's domain root)")
		out     = fs.String("out", "", "Render output file (default: stdout)")
		addr    = fs.String("addr", "", "Listen address override (serve)")
	)

	// Ensure Parse doesn't write to stdout/stderr in tests
	fs.SetOutput(io.Discard)

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	a := &CLIArgs{
		Mode:       Mode(strings.ToLower(strings.TrimSpace(*mode))),
		ConfigPath: *config,
		Session:    strings.TrimSpace(*session),
		URL:        strings.TrimSpace(*url),
		Out:        *out,
		Addr:       *addr,
		RawArgs:    args,
	}
	switch a.Mode {
	case ModeServe:
	case ModeRender, ModeLive:
		if a.Session == "" {
			return nil, fmt.Errorf("missing required -session argument for %s", a.Mode)
		}
	default:
		return nil, fmt.Errorf("unknown mode %q", *mode)
	}
	if a.Out != "" && a.Mode != ModeRender {
		return nil, errors.New("-out only applies to render mode")
	}
	return a, nil
}
