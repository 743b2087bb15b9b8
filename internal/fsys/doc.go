// Package fsys is the read-only filesystem layer behind the file server. A
// Store is rooted at the configured directory and exposes the three primitives
// the dispatcher needs: stat, directory enumeration and opening a byte span of a
// file. Paths handed to the store are absolute and must stay inside the root;
// anything else fails with ErrOutsideRoot. Symbolic links are resolved before
// the check, so a link inside the root that points outside it is rejected too,
// while links that stay inside the root are followed.
package fsys
