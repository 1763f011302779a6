// Package filestore keeps uploaded session files, either on local disk or
// in a GCS bucket. Keys are "<session id>/<file name>".
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

var ErrInvalidKey = errors.New("invalid file key")

type Store interface {
	// Put writes r under key and returns the path clients use to fetch it.
	Put(ctx context.Context, key string, r io.Reader) (string, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, key string) error
	PublicPath(key string) string
	Close() error
}

// Key builds the storage key for an uploaded file. Directory components in
// the client-supplied name are dropped.
func Key(sessionID, filename string) (string, error) {
	sessionID = strings.TrimSpace(sessionID)
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(filename), "\\", "/"))
	if sessionID == "" || strings.ContainsAny(sessionID, "/\\") || sessionID == "." || sessionID == ".." {
		return "", fmt.Errorf("%w: session id %q", ErrInvalidKey, sessionID)
	}
	if name == "" || name == "." || name == ".." || name == "/" {
		return "", fmt.Errorf("%w: file name %q", ErrInvalidKey, filename)
	}
	return sessionID + "/" + name, nil
}

// cleanKey rejects absolute keys and keys escaping the store root.
func cleanKey(key string) (string, error) {
	k := strings.TrimSpace(strings.ReplaceAll(key, "\\", "/"))
	if k == "" || strings.HasPrefix(k, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	c := path.Clean(k)
	if c == "." || c == ".." || strings.HasPrefix(c, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return c, nil
}
