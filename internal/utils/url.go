package utils

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/idna"
)

var (
	ErrEmptyURL    = errors.New("empty url")
	ErrMissingHost = errors.New("missing host")
)

// parseLoose parses raw, assuming https when no scheme is given.
func parseLoose(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrEmptyURL
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse url %q: %w", raw, err)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("%w: %q", ErrMissingHost, raw)
	}
	return u, nil
}

// asciiHost lowercases host and converts IDN labels to punycode.
func asciiHost(host string) string {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if puny, err := idna.Lookup.ToASCII(host); err == nil {
		return puny
	}
	return host
}

// Domain returns the key sessions are grouped by: the page's hostname,
// lowercased and punycode encoded. Ports and paths are ignored.
//
//	"HTTPS://Example.COM:8443/a?b" -> "example.com"
//	"例え.テスト"                     -> "xn--r8jz45g.xn--zckzah"
func Domain(raw string) (string, error) {
	u, err := parseLoose(raw)
	if err != nil {
		return "", err
	}
	return asciiHost(u.Hostname()), nil
}

// Canonicalize returns a normalised page URL: lower-case scheme and host,
// default ports dropped, credentials and fragment removed, path cleaned.
// Query order is kept because pages may depend on it.
func Canonicalize(raw string) (string, error) {
	u, err := parseLoose(raw)
	if err != nil {
		return "", err
	}
	u.Scheme = strings.ToLower(u.Scheme)
	host := asciiHost(u.Hostname())
	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") || port == "" {
		u.Host = host
	} else {
		u.Host = net.JoinHostPort(host, port)
	}
	u.User = nil
	u.Fragment = ""
	if u.Path != "" {
		clean := path.Clean(u.Path)
		if strings.HasSuffix(u.Path, "/") && clean != "/" {
			clean += "/"
		}
		u.Path = clean
	}
	return u.String(), nil
}
