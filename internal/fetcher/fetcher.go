// Package fetcher downloads and parses the raw inputs of an analysis run:
// crash and fatality exports (CSV, XLSX, JSON arrays) and district boundary
// archives served over HTTP(S) or FTP.
package fetcher

import (
	"context"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Fetcher downloads a remote resource to a local file.
type Fetcher interface {
	// DownloadToFile fetches rawURL into dest and returns the bytes written.
	DownloadToFile(ctx context.Context, rawURL, dest string) (int64, error)
}

// Localizer turns a source handle (local path or URL) into a local file path.
type Localizer struct {
	HTTP    Fetcher
	FTP     Fetcher
	TempDir string
}

// NewLocalizer returns a Localizer with default HTTP and FTP fetchers that
// stage downloads under tempDir.
func NewLocalizer(tempDir string, httpOpts HTTPOptions) *Localizer {
	return &Localizer{
		HTTP:    NewHTTPFetcher(httpOpts),
		FTP:     NewFTPFetcher(FTPOptions{Timeout: httpOpts.Timeout}),
		TempDir: tempDir,
	}
}

// IsRemote reports whether source names an http, https or ftp resource.
func IsRemote(source string) bool {
	u, err := url.Parse(source)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "ftp":
		return true
	}
	return false
}

// Localize returns a local path for source and a cleanup func that removes
// anything staged for it. Local paths are checked for existence and returned
// unchanged with a no-op cleanup; remote sources are downloaded into a fresh
// directory under TempDir, keeping the remote file name so the extension
// still identifies the format.
func (l *Localizer) Localize(ctx context.Context, source string) (string, func(), error) {
	noop := func() {}
	if !IsRemote(source) {
		if _, err := os.Stat(source); err != nil {
			return "", noop, eris.Wrapf(err, "fetcher: stat %s", source)
		}
		return source, noop, nil
	}

	u, err := url.Parse(source)
	if err != nil {
		return "", noop, eris.Wrapf(err, "fetcher: parse %s", source)
	}
	name := path.Base(u.Path)
	if name == "" || name == "/" || name == "." {
		name = "download"
	}

	var f Fetcher
	if strings.EqualFold(u.Scheme, "ftp") {
		f = l.FTP
	} else {
		f = l.HTTP
	}
	if f == nil {
		return "", noop, eris.Errorf("fetcher: no fetcher for scheme %q", u.Scheme)
	}

	if err := os.MkdirAll(l.TempDir, 0o755); err != nil {
		return "", noop, eris.Wrap(err, "fetcher: create temp dir")
	}
	dir, err := os.MkdirTemp(l.TempDir, "src-")
	if err != nil {
		return "", noop, eris.Wrap(err, "fetcher: create staging dir")
	}
	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			zap.L().Warn("fetcher: remove staging dir", zap.String("dir", dir), zap.Error(err))
		}
	}
	dest := filepath.Join(dir, name)

	n, err := f.DownloadToFile(ctx, source, dest)
	if err != nil {
		cleanup()
		return "", noop, eris.Wrapf(err, "fetcher: download %s", source)
	}
	zap.L().Info("fetcher: downloaded source",
		zap.String("source", source),
		zap.String("path", dest),
		zap.Int64("bytes", n),
	)
	return dest, cleanup, nil
}
