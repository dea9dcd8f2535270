package storage

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// StdinPath is the path argument which stands for the standard input
const StdinPath = "-"

// WrapFileSystem returns a wrapper for the os/host file system
func WrapFileSystem() *afero.Afero {
	return &afero.Afero{Fs: afero.NewOsFs()}
}

// NewMemFileSystem gives access to a memory based file system for using in tests
func NewMemFileSystem() *afero.Afero {
	return &afero.Afero{Fs: afero.NewMemMapFs()}
}

// NewReadOnlyFileSystem gives read access to the os/host file system,
// all writes fail with EPERM
func NewReadOnlyFileSystem() *afero.Afero {
	return &afero.Afero{Fs: afero.NewReadOnlyFs(afero.NewOsFs())}
}

// GetOutDir returns the output directory (requestedDir param or cwd)
// and ensures it exists
func GetOutDir(requestedDir string, fs *afero.Afero) (string, error) {
	// default case: return the current working directory
	if requestedDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", errors.WithStack(err)
		}
		return cwd, nil
	}

	if _, err := fs.Stat(requestedDir); err != nil && !os.IsNotExist(err) {
		return requestedDir, errors.WithStack(err)
	}
	if err := fs.MkdirAll(requestedDir, 0755); err != nil {
		return requestedDir, errors.WithStack(err)
	}
	return requestedDir, nil
}

// OpenLog opens a log file for reading. If path is StdinPath, stdin is
// returned instead, which is not closed by the returned closer.
func OpenLog(fs *afero.Afero, path string, stdin io.Reader) (io.ReadCloser, error) {
	if path == StdinPath {
		return io.NopCloser(stdin), nil
	}
	f, err := fs.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return f, nil
}
