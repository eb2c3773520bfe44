// Package storage owns the per-job output directories on local disk and
// publishes finished segment files to object storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path"
	"path/filepath"
)

// ErrPublisherNotConfigured is returned when publishing is attempted
// without an object store configured.
var ErrPublisherNotConfigured = errors.New("storage: no publisher configured")

// Publisher uploads a local file to object storage.
type Publisher interface {
	// Publish uploads the file at localPath under key and returns its URL.
	Publish(ctx context.Context, key, localPath string) (url string, err error)
}

// ObjectKey returns the key a segment file is published under: <jobID>/<name>.
func ObjectKey(jobID, localPath string) string {
	return path.Join(jobID, filepath.Base(localPath))
}

// PublishFiles uploads paths under <jobID>/ in order and returns their URLs.
// It stops at the first failure.
func PublishFiles(ctx context.Context, p Publisher, jobID string, paths []string) ([]string, error) {
	if p == nil {
		return nil, ErrPublisherNotConfigured
	}
	urls := make([]string, 0, len(paths))
	for _, lp := range paths {
		url, err := p.Publish(ctx, ObjectKey(jobID, lp), lp)
		if err != nil {
			return urls, fmt.Errorf("publish %s: %w", filepath.Base(lp), err)
		}
		urls = append(urls, url)
	}
	return urls, nil
}

func contentType(localPath string) string {
	switch filepath.Ext(localPath) {
	case ".wav":
		return "audio/wav"
	case ".yaml":
		return "application/yaml"
	}
	if t := mime.TypeByExtension(filepath.Ext(localPath)); t != "" {
		return t
	}
	return "application/octet-stream"
}
