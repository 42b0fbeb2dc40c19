// Package packed is a go:embed-backed read-only vfs.FS for assets shipped
// inside the single binary: a Go-native vessel for embedded static assets,
// distinct from the flash/OTA storage detail this module leaves untouched.
package packed

import (
	"embed"
	"io/fs"
	"os"

	"github.com/sabouaram/embednet/vfs"
)

//go:embed assets
var assets embed.FS

// Default serves the assets embedded at build time, rooted at "assets".
func Default() vfs.FS {
	sub, err := fs.Sub(assets, "assets")
	if err != nil {
		panic(err) // assets is compiled in; a bad Sub here is a build-time bug
	}
	return &FS{fsys: sub}
}

type FS struct {
	fsys fs.FS
}

func (p *FS) Open(name string) (vfs.File, error) {
	return p.fsys.Open(trimLeadingSlash(name))
}

func (p *FS) Stat(name string) (os.FileInfo, error) {
	return fs.Stat(p.fsys, trimLeadingSlash(name))
}

func (p *FS) ReadDir(name string) ([]os.DirEntry, error) {
	return fs.ReadDir(p.fsys, trimLeadingSlash(name))
}

func trimLeadingSlash(name string) string {
	if len(name) > 0 && name[0] == '/' {
		name = name[1:]
	}
	if name == "" {
		name = "."
	}
	return name
}
