// Package resource fetches files from a run's resource tree: GeoJSON
// feature collections and GeoTIFF rasters. Contents are returned as opaque
// bytes; decoding is the caller's business.
package resource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/hack-pad/hackpadfs"
)

// ErrNotFound is returned when a resource does not exist.
var ErrNotFound = errors.New("resource: not found")

// Source is a per-run resource tree.
type Source interface {
	// Exists reports whether the resource can be fetched.
	Exists(ctx context.Context, name string) bool
	// Fetch returns the resource body.
	Fetch(ctx context.Context, name string) ([]byte, error)
	// URL returns the address a browser-side layer loads the resource from.
	URL(name string) string
}

// HTTPSource serves resources with plain GETs under a base URL.
type HTTPSource struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPSource creates an HTTPSource. A nil client uses http.DefaultClient.
func NewHTTPSource(baseURL string, client *http.Client) *HTTPSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPSource{BaseURL: strings.TrimRight(baseURL, "/"), Client: client}
}

func (s *HTTPSource) URL(name string) string {
	return s.BaseURL + "/" + strings.TrimLeft(name, "/")
}

// Exists issues a HEAD request.
func (s *HTTPSource) Exists(ctx context.Context, name string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, s.URL(name), nil)
	if err != nil {
		return false
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode <= 299
}

func (s *HTTPSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL(name), nil)
	if err != nil {
		return nil, fmt.Errorf("resource: %s: %w", name, err)
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("resource: %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("resource: %s: status %d", name, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// FSSource serves resources from a hackpadfs file system: a local run
// directory for the CLI, an in-memory tree in tests.
type FSSource struct {
	FS hackpadfs.FS
	// Prefix is prepended to names when building URLs, e.g. "file:///runs/r1".
	Prefix string
}

func (s *FSSource) URL(name string) string {
	clean := cleanName(name)
	if s.Prefix == "" {
		return clean
	}
	return strings.TrimRight(s.Prefix, "/") + "/" + clean
}

func (s *FSSource) Exists(_ context.Context, name string) bool {
	info, err := hackpadfs.Stat(s.FS, cleanName(name))
	return err == nil && !info.IsDir()
}

func (s *FSSource) Fetch(_ context.Context, name string) ([]byte, error) {
	data, err := hackpadfs.ReadFile(s.FS, cleanName(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("resource: %s: %w", name, err)
	}
	return data, nil
}

// cleanName turns a URL-ish resource path into an fs.ValidPath name.
func cleanName(name string) string {
	return strings.TrimPrefix(path.Clean("/"+name), "/")
}

// FetchFirst returns the first candidate that fetches, with its name.
func FetchFirst(ctx context.Context, src Source, candidates []string) (string, []byte, error) {
	var errs []error
	for _, name := range candidates {
		data, err := src.Fetch(ctx, name)
		if err == nil {
			return name, data, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return "", nil, fmt.Errorf("%w: no candidates", ErrNotFound)
	}
	return "", nil, errors.Join(errs...)
}

var (
	_ Source = (*HTTPSource)(nil)
	_ Source = (*FSSource)(nil)
)
