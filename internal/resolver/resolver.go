// Package resolver turns user-supplied parameters for a video host into the
// playlist URL, title and referer of a dump.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
)

var (
	// ErrResolution is wrapped by every failure to resolve a video.
	ErrResolution = errors.New("resolver: resolution failed")
	// ErrUnknown is returned for an unregistered resolver name.
	ErrUnknown = errors.New("resolver: unknown resolver")
)

// Fetcher performs the requests a resolver needs.
type Fetcher interface {
	GetText(ctx context.Context, url string, header http.Header) (string, error)
	GetJSON(ctx context.Context, url string, header http.Header, v any) error
}

// Param describes one resolver input.
type Param struct {
	Name     string
	Hint     string
	Required bool
}

// Resolution is what a dump needs to know about a video.
type Resolution struct {
	PlaylistURL string
	Title       string
	Referer     string
}

// Resolver resolves one kind of video page.
type Resolver interface {
	// Name is the registry key.
	Name() string
	// Title is a human-readable host name.
	Title() string
	Params() []Param
	// Headers override the default request headers for the whole dump.
	Headers() http.Header
	Resolve(ctx context.Context, f Fetcher, params map[string]string) (Resolution, error)
}

// Constructor creates a resolver.
type Constructor func() Resolver

var registry = map[string]Constructor{
	"webinarru": func() Resolver { return NewWebinarRu() },
	"yadisk":    func() Resolver { return NewYaDisk() },
	"hls":       func() Resolver { return NewHLS() },
}

// Names returns the registered resolver names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// New creates the resolver registered under name.
func New(name string) (Resolver, error) {
	c, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknown, name, strings.Join(Names(), ", "))
	}
	return c(), nil
}

// CheckParams verifies that every required parameter of r is set.
func CheckParams(r Resolver, params map[string]string) error {
	var missing []string
	for _, p := range r.Params() {
		if p.Required && strings.TrimSpace(params[p.Name]) == "" {
			missing = append(missing, p.Name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s: missing parameters: %s", ErrResolution, r.Name(), strings.Join(missing, ", "))
	}
	return nil
}

func resolutionError(r Resolver, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrResolution, r.Name(), fmt.Sprintf(format, args...))
}
