// Package vfs is the filesystem trait that HTTP static serving and any
// future OTA/config-file reader code in this tree depends on, instead of
// touching os.* directly. Two backends exist: vfs/aferofs (the real OS
// filesystem or an in-memory one, via spf13/afero) and vfs/packed (a
// go:embed-backed read-only tree for assets shipped inside the binary).
package vfs

import "os"

// File is the subset of *os.File callers of FS need.
type File interface {
	Read(p []byte) (int, error)
	Close() error
}

// FS is the filesystem trait. Implementations never need to support writes;
// every caller in this tree (static HTTP serving, packed assets) only reads.
type FS interface {
	Open(name string) (File, error)
	Stat(name string) (os.FileInfo, error)
	ReadDir(name string) ([]os.DirEntry, error)
}
