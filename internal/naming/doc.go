// Package naming builds derivative output paths and resolves collisions
// between derivatives that claim the same target within one stage.
//
// Source-relative paths are slash-separated (as listed by the filesystem
// layer); returned target paths use the host separator.
package naming
