// Package blob stores submitted meter images on the local filesystem and
// serves them back under a URL prefix. Readings reference the served URL,
// not the raw bytes
package blob

import (
	"context"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	perr "meterbox/internal/platform/errors"
)

// FS is a filesystem-backed image store
type FS struct {
	dir       string
	urlPrefix string
}

// NewFS creates the data dir if needed and returns a store serving under urlPrefix
func NewFS(dir, urlPrefix string) (*FS, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, perr.InvalidArgf("blob: empty dir")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUnknown, "blob: mkdir %s failed", dir)
	}
	return &FS{dir: dir, urlPrefix: strings.TrimRight(urlPrefix, "/")}, nil
}

// Save writes data under name and returns the URL the image is served from.
// name is caller-chosen (a uuid plus extension); path traversal is rejected
func (s *FS) Save(_ context.Context, name string, data []byte) (string, error) {
	if name == "" || name != path.Base(name) {
		return "", perr.InvalidArgf("blob: bad object name %q", name)
	}
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", perr.Wrapf(err, perr.ErrorCodeUnknown, "blob: write %s failed", name)
	}
	return s.urlPrefix + "/" + name, nil
}

// Handler serves stored images; mount it under urlPrefix
func (s *FS) Handler() http.Handler {
	return http.StripPrefix(s.urlPrefix+"/", http.FileServer(http.Dir(s.dir)))
}

// URLPrefix returns the mount prefix
func (s *FS) URLPrefix() string { return s.urlPrefix }
