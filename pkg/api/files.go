package api

import (
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// localFileServer serves generated dataset files directly from the local
// filesystem. Each root is a directory; incoming request paths are
// resolved relative to these roots.
type localFileServer struct {
	log   logrus.FieldLogger
	roots []string
}

// newLocalFileServer creates a file server over the given root directories.
func newLocalFileServer(log logrus.FieldLogger, roots []string) *localFileServer {
	cleaned := make([]string, 0, len(roots))
	for _, p := range roots {
		cleaned = append(cleaned, filepath.Clean(p))
	}

	return &localFileServer{
		log:   log.WithField("component", "file-server"),
		roots: cleaned,
	}
}

// ServeFile locates filePath under one of the roots and serves it via
// http.ServeFile. Returns an error when the path is disallowed or not
// found under any root.
func (l *localFileServer) ServeFile(
	w http.ResponseWriter,
	r *http.Request,
	filePath string,
) error {
	if !l.isAllowedPath(filePath) {
		return fmt.Errorf("path %q is not allowed", filePath)
	}

	for _, root := range l.roots {
		full := filepath.Join(root, filePath)

		// The resolved path must stay under the root.
		if !strings.HasPrefix(full, root+string(filepath.Separator)) &&
			full != root {
			continue
		}

		info, err := os.Stat(full)
		if err != nil || info.IsDir() {
			continue
		}

		http.ServeFile(w, r, full)

		return nil
	}

	return fmt.Errorf("file %q not found in any root", filePath)
}

// isAllowedPath rejects empty, absolute, unclean, or traversal request paths.
func (l *localFileServer) isAllowedPath(filePath string) bool {
	if filePath == "" {
		return false
	}

	if strings.Contains(filePath, "..") {
		return false
	}

	// Reject paths that start with a slash (absolute paths).
	if filepath.IsAbs(filePath) {
		return false
	}

	// Ensure the path is clean (no double slashes, trailing slashes, etc.).
	return path.Clean(filePath) == filePath
}
