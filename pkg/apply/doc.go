// Package apply drives a package change through a declarative
// configuration document.
//
// One Apply call reads the document, narrows the request to packages that
// actually change it, splices the new list into the text, writes the
// result (falling back to the elevation helper when the file is not
// writable) and rebuilds. When the rebuild fails the previous text is
// written back with the same procedure, so the document on disk never
// keeps a change that was not applied.
package apply
