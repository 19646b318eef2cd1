// Package fetcher opens dataset and geometry sources from local paths and
// HTTP(S) or FTP URLs, and decodes CSV, XLSX and ZIP payloads.
package fetcher

import (
	"context"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Fetcher downloads a remote resource.
type Fetcher interface {
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}

// Options configures remote fetches.
type Options struct {
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
	// RatePerSecond paces requests to a single host. Zero means unpaced.
	RatePerSecond float64
}

// Opener resolves a source URI to a reader, dispatching on its scheme.
type Opener struct {
	HTTP Fetcher
	FTP  Fetcher
}

// NewOpener builds an opener with HTTP and FTP fetchers sharing opts.
func NewOpener(opts Options) *Opener {
	return &Opener{
		HTTP: NewHTTPFetcher(opts),
		FTP:  NewFTPFetcher(opts),
	}
}

// Scheme returns the lowercased scheme of a remote URI, or "" for a local
// path (including file:// URLs).
func Scheme(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return ""
	}
	switch s := strings.ToLower(u.Scheme); s {
	case "http", "https", "ftp":
		return s
	}
	return ""
}

// LocalPath returns the filesystem path of a local URI.
func LocalPath(uri string) string {
	if strings.HasPrefix(uri, "file://") {
		if u, err := url.Parse(uri); err == nil {
			return u.Path
		}
	}
	return uri
}

// Open returns a reader over the source. The caller closes it.
func (o *Opener) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	switch Scheme(uri) {
	case "http", "https":
		if o.HTTP == nil {
			return nil, eris.Errorf("fetcher: no http fetcher for %s", uri)
		}
		return o.HTTP.Download(ctx, uri)
	case "ftp":
		if o.FTP == nil {
			return nil, eris.Errorf("fetcher: no ftp fetcher for %s", uri)
		}
		return o.FTP.Download(ctx, uri)
	}

	f, err := os.Open(LocalPath(uri))
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: open %s", uri)
	}
	return f, nil
}

// ReadAll opens the source and reads it fully.
func (o *Opener) ReadAll(ctx context.Context, uri string) ([]byte, error) {
	rc, err := o.Open(ctx, uri)
	if err != nil {
		return nil, err
	}
	defer rc.Close() //nolint:errcheck

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: read %s", uri)
	}
	return data, nil
}

// Ext returns the lowercased extension of the URI path, ignoring any query.
func Ext(uri string) string {
	p := uri
	if u, err := url.Parse(uri); err == nil && u.Path != "" {
		p = u.Path
	}
	return strings.ToLower(filepath.Ext(p))
}
