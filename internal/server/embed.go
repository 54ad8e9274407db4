package server

import (
	"embed"
	"io/fs"
)

// The browser form: index.html plus assets/
//
//go:embed dist
var distFS embed.FS

// GetDistFS returns the embedded form, or nil when index.html is missing
func GetDistFS() fs.FS {
	subFS, err := fs.Sub(distFS, "dist")
	if err != nil {
		return nil
	}
	if _, err := fs.Stat(subFS, "index.html"); err != nil {
		return nil
	}
	return subFS
}
