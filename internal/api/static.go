package api

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/yegors/routemap/pkg/logger"
)

// StaticFileHandler serves the web client. Unknown paths without a file
// extension fall back to index.html so client-side routes load.
type StaticFileHandler struct {
	dir    string
	files  http.Handler
	logger *logger.Logger
}

// NewStaticFileHandler creates a handler serving dir
func NewStaticFileHandler(dir string, logger *logger.Logger) *StaticFileHandler {
	return &StaticFileHandler{
		dir:    dir,
		files:  http.FileServer(http.Dir(dir)),
		logger: logger.Named("static-files"),
	}
}

func (h *StaticFileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	clean := path.Clean("/" + r.URL.Path)

	if _, err := os.Stat(filepath.Join(h.dir, filepath.FromSlash(clean))); err != nil && path.Ext(clean) == "" {
		index := filepath.Join(h.dir, "index.html")
		if _, err := os.Stat(index); err == nil {
			h.logger.Debug("Serving index for client route", logger.String("path", clean))
			http.ServeFile(w, r, index)
			return
		}
	}

	if strings.HasSuffix(clean, ".html") || clean == "/" {
		w.Header().Set("Cache-Control", "no-cache")
	}

	h.files.ServeHTTP(w, r)
}
