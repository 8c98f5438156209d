// Package blobstore stores uploaded binary objects and hands back a public URL.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const chunkSize = 32 * 1024

// ErrInvalidPath is returned for object paths that are empty, absolute or
// escape the store root.
var ErrInvalidPath = errors.New("invalid object path")

// Progress describes how much of an upload has been written.
type Progress struct {
	BytesTransferred int64
	TotalBytes       int64
}

// ProgressFunc receives progress after every written chunk.
type ProgressFunc func(Progress)

// FileStore writes objects below a root directory on the local filesystem.
type FileStore struct {
	root    string
	baseURL string
}

// NewFileStore creates the root directory if needed.
func NewFileStore(root, baseURL string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create blob root: %w", err)
	}
	return &FileStore{
		root:    root,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// Root returns the directory objects are written to
func (s *FileStore) Root() string {
	return s.root
}

// Upload copies r to objectPath and returns the download URL. size may be
// -1 when unknown. The object only becomes visible once fully written.
func (s *FileStore) Upload(ctx context.Context, objectPath string, r io.Reader, size int64, progress ProgressFunc) (string, error) {
	clean, err := cleanPath(objectPath)
	if err != nil {
		return "", err
	}

	dest := filepath.Join(s.root, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("failed to create object directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if tmpName != "" {
			_ = os.Remove(tmpName)
		}
	}()

	written, err := copyWithProgress(ctx, tmp, r, size, progress)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", fmt.Errorf("failed to write object: %w", err)
	}

	if size >= 0 && written != size {
		return "", fmt.Errorf("short upload: wrote %d of %d bytes", written, size)
	}

	if err := os.Rename(tmpName, dest); err != nil {
		return "", fmt.Errorf("failed to commit object: %w", err)
	}
	tmpName = ""

	return s.baseURL + "/" + clean, nil
}

func copyWithProgress(ctx context.Context, w io.Writer, r io.Reader, total int64, progress ProgressFunc) (int64, error) {
	buf := make([]byte, chunkSize)
	var written int64

	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		n, readErr := r.Read(buf)
		if n > 0 {
			if _, err := w.Write(buf[:n]); err != nil {
				return written, err
			}
			written += int64(n)
			if progress != nil {
				progress(Progress{BytesTransferred: written, TotalBytes: total})
			}
		}

		if errors.Is(readErr, io.EOF) {
			return written, nil
		}
		if readErr != nil {
			return written, readErr
		}
	}
}

func cleanPath(p string) (string, error) {
	if p == "" || strings.HasPrefix(p, "/") || strings.Contains(p, "\\") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	clean := path.Clean(p)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	return clean, nil
}
