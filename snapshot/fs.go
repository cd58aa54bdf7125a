package snapshot

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// CreateFS defines a file system interface that supports creating files and
// directories, for marshaling snapshots.
type CreateFS interface {
	// Sub returns a filesystem for a subdirectory.
	Sub(name string) (sub CreateFS, err error)
	// Create creates a new file for writing.
	Create(name string) (file io.WriteCloser, err error)
	// Mkdir creates a new directory with the specified permissions.
	Mkdir(name string, filemode fs.FileMode) (err error)
}

// DirFS is a CreateFS, and a fs.FS, rooted at a host directory.
type DirFS string

var _ CreateFS = DirFS("")
var _ fs.FS = DirFS("")

func (dir DirFS) path(op string, name string) (path string, err error) {
	if !fs.ValidPath(name) {
		err = &fs.PathError{Op: op, Path: name, Err: fs.ErrInvalid}
		return
	}

	path = filepath.Join(string(dir), filepath.FromSlash(name))

	return
}

// Open opens a file for reading.
func (dir DirFS) Open(name string) (file fs.File, err error) {
	return os.DirFS(string(dir)).Open(name)
}

// Sub returns the filesystem of an existing subdirectory.
func (dir DirFS) Sub(name string) (sub CreateFS, err error) {
	path, err := dir.path("sub", name)
	if err != nil {
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		return
	}

	if !info.IsDir() {
		err = &fs.PathError{Op: "sub", Path: name, Err: fs.ErrInvalid}
		return
	}

	sub = DirFS(path)

	return
}

// Create creates, or truncates, a file for writing.
func (dir DirFS) Create(name string) (file io.WriteCloser, err error) {
	path, err := dir.path("create", name)
	if err != nil {
		return
	}

	file, err = os.Create(path)

	return
}

// Mkdir creates a directory.
func (dir DirFS) Mkdir(name string, filemode fs.FileMode) (err error) {
	path, err := dir.path("mkdir", name)
	if err != nil {
		return
	}

	err = os.Mkdir(path, filemode)

	return
}
