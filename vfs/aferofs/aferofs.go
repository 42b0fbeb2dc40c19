// Package aferofs adapts github.com/spf13/afero.Fs to vfs.FS, so static
// serving can run against the real OS filesystem or an in-memory
// afero.MemMapFs (tests) through the same interface.
package aferofs

import (
	"os"

	"github.com/spf13/afero"

	"github.com/sabouaram/embednet/vfs"
)

type FS struct {
	fs afero.Fs
}

func New(fs afero.Fs) *FS { return &FS{fs: fs} }

func (a *FS) Open(name string) (vfs.File, error) { return a.fs.Open(name) }

func (a *FS) Stat(name string) (os.FileInfo, error) { return a.fs.Stat(name) }

func (a *FS) ReadDir(name string) ([]os.DirEntry, error) {
	entries, err := afero.ReadDir(a.fs, name)
	if err != nil {
		return nil, err
	}
	out := make([]os.DirEntry, len(entries))
	for i, e := range entries {
		out[i] = dirEntry{e}
	}
	return out, nil
}

// dirEntry adapts an os.FileInfo (what afero.ReadDir returns) to os.DirEntry.
type dirEntry struct{ os.FileInfo }

func (d dirEntry) Type() os.FileMode          { return d.FileInfo.Mode().Type() }
func (d dirEntry) Info() (os.FileInfo, error) { return d.FileInfo, nil }
