// Package fsprobe answers "does this path exist" and "is it a directory"
// without ever returning an error.
//
// Every resolution step treats a failed probe as "absent", so the
// Inspector swallows all stat errors, including permission errors and
// broken symlinks.
package fsprobe

import (
	"os"

	"github.com/spf13/afero"
)

// Inspector stats paths through an afero filesystem.
// The zero value is not usable; use New or NewOS.
type Inspector struct {
	fs afero.Fs
}

// New returns an Inspector backed by fs.
func New(fs afero.Fs) *Inspector {
	return &Inspector{fs: fs}
}

// NewOS returns an Inspector backed by the real filesystem.
func NewOS() *Inspector {
	return New(afero.NewOsFs())
}

// Fs returns the underlying filesystem.
func (i *Inspector) Fs() afero.Fs {
	return i.fs
}

// Exists stats path. It returns the file info and true when the stat
// succeeds, and nil and false for any error (not found or otherwise).
// Symlinks are followed, so a dangling link reports false.
func (i *Inspector) Exists(path string) (os.FileInfo, bool) {
	info, err := i.fs.Stat(path)
	if err != nil {
		return nil, false
	}
	return info, true
}

// IsDir reports whether path exists and is a directory.
func (i *Inspector) IsDir(path string) bool {
	info, ok := i.Exists(path)
	return ok && info.IsDir()
}
