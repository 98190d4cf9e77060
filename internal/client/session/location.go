package session

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Location is the place the authorization redirect lands: the current URL
// of the client. Replace rewrites it in place.
type Location interface {
	URL() (*url.URL, error)
	Replace(u *url.URL) error
}

// URLLocation is an in-memory Location.
type URLLocation struct {
	mu sync.Mutex
	u  url.URL
}

// NewURLLocation parses raw into a URLLocation. An empty raw is an empty URL.
func NewURLLocation(raw string) (*URLLocation, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse location: %w", err)
	}
	return &URLLocation{u: *u}, nil
}

func (l *URLLocation) URL() (*url.URL, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	u := l.u
	return &u, nil
}

func (l *URLLocation) Replace(u *url.URL) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.u = *u
	return nil
}

// String returns the current URL.
func (l *URLLocation) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.u.String()
}

// FileLocation keeps the last redirect URL in a file so that the process
// that receives the redirect and the one that bootstraps can differ.
// A missing file reads as an empty URL.
type FileLocation struct {
	path string
}

// NewFileLocation returns a Location stored at path.
func NewFileLocation(path string) *FileLocation {
	return &FileLocation{path: path}
}

func (l *FileLocation) URL() (*url.URL, error) {
	raw, err := os.ReadFile(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return &url.URL{}, nil
	}
	if err != nil {
		return nil, err
	}
	return url.Parse(strings.TrimSpace(string(raw)))
}

func (l *FileLocation) Replace(u *url.URL) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(l.path, []byte(u.String()+"\n"), 0o600)
}
