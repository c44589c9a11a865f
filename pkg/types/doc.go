// Package types defines the data model shared by npkg's components: the
// package targets, the requested and effective changes, the document
// locator and the filesystem abstraction used for all document I/O.
package types
