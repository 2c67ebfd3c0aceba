// Package api - Static front-end files
package api

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
)

const indexFile = "index.html"

// StaticHandler serves files below a fixed root. Directories are never
// listed; "/" maps to the root index document.
type StaticHandler struct {
	root string
}

// NewStaticHandler creates a handler rooted at dir
func NewStaticHandler(dir string) *StaticHandler {
	return &StaticHandler{root: dir}
}

func (s *StaticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := path.Clean("/" + r.URL.Path)
	if name == "/" {
		name = "/" + indexFile
	}

	f, err := os.Open(filepath.Join(s.root, filepath.FromSlash(name)))
	if err != nil {
		NotFoundHandler(w, r)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		NotFoundHandler(w, r)
		return
	}

	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}
