// Package artifact stores finalized documents on any storage scheme the
// abstract file system supports (file, mem, s3, gs).
package artifact

import (
	"context"
	"fmt"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"
)

// Service writes finalized documents under a base URL, one file per session.
type Service struct {
	fs      afs.Service
	baseURL string
}

// New creates an artifact service rooted at baseURL.
func New(baseURL string) *Service {
	return &Service{fs: afs.New(), baseURL: baseURL}
}

// documentURL derives the destination for a session's final document.
func (s *Service) documentURL(sessionID string) string {
	return url.Join(s.baseURL, sessionID+".txt")
}

// Save persists the final document and returns its URL.
func (s *Service) Save(ctx context.Context, sessionID, document string) (string, error) {
	if sessionID == "" {
		return "", fmt.Errorf("artifact: empty session id")
	}
	URL := s.documentURL(sessionID)
	if err := s.fs.Upload(ctx, URL, file.DefaultFileOsMode, strings.NewReader(document)); err != nil {
		return "", fmt.Errorf("failed to upload artifact %v: %w", URL, err)
	}
	return URL, nil
}

// Load reads a previously saved final document.
func (s *Service) Load(ctx context.Context, sessionID string) (string, error) {
	URL := s.documentURL(sessionID)
	data, err := s.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return "", fmt.Errorf("failed to download artifact %v: %w", URL, err)
	}
	return string(data), nil
}

// Exists reports whether a final document was stored for the session.
func (s *Service) Exists(ctx context.Context, sessionID string) (bool, error) {
	return s.fs.Exists(ctx, s.documentURL(sessionID))
}
