package web

import (
	"embed"
	"io/fs"
)

//go:embed static
var staticFS embed.FS

// staticFiles exposes the embedded pages rooted at their directory so
// "/" resolves to index.html.
func staticFiles() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
