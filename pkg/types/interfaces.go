package types

import "io/fs"

// FS abstracts the filesystem operations npkg performs on documents and
// cache files so tests can run against an in-memory filesystem.
type FS interface {
	Stat(name string) (fs.FileInfo, error)
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte, perm fs.FileMode) error
	MkdirAll(path string, perm fs.FileMode) error
	Remove(name string) error
}
