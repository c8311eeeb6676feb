// Package web serves the embedded browser dashboard.
package web

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static
var assets embed.FS

// Handler serves the dashboard page and its scripts.
func Handler() http.Handler {
	sub, err := fs.Sub(assets, "static")
	if err != nil {
		// The subtree is embedded at build time; a failure here is a packaging bug.
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}
