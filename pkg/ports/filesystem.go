package ports

import "io"

// FileSystem abstracts file system operations used by sinks and reports.
type FileSystem interface {
	// ReadFile reads the entire contents of a file.
	ReadFile(path string) ([]byte, error)

	// WriteFile writes data to a file, creating parent directories as needed.
	WriteFile(path string, data []byte) error

	// MkdirAll creates a directory and all parent directories.
	MkdirAll(path string) error

	// Exists checks if a file or directory exists.
	Exists(path string) (bool, error)

	// Open opens a file for random-access reading.
	Open(path string) (ReadSeekCloser, error)
}

// ReadSeekCloser is the handle a demuxer reads a container from.
type ReadSeekCloser interface {
	io.ReadSeeker
	io.Closer
}
