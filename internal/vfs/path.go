// Package vfs implements the in-memory filesystem backing the SFTP
// subsystem. Paths use POSIX separators regardless of host OS.
package vfs

import (
	"path"
	"strings"
)

// split breaks a path into (directory, filename). Unlike path.Split, the
// directory keeps no trailing separator except for the root itself:
// "/foo/bar" => ("/foo", "bar"), "/foo" => ("/", "foo"), "foo" => ("", "foo").
func split(p string) (string, string) {
	dir, file := path.Split(p)
	if dir != "/" {
		dir = strings.TrimSuffix(dir, "/")
	}
	return dir, file
}

// Expand decomposes a path into its ordered segments. The first segment
// marks absolute ("/") or relative ("") paths:
//
//	Expand("/foo/bar/biz") => ["/", "foo", "bar", "biz"]
//	Expand("relative/path") => ["", "relative", "path"]
//
// The empty path and the bare separator expand to themselves.
func Expand(p string) []string {
	if p == "" || p == "/" {
		return []string{p}
	}
	var segments []string
	dir, file := split(p)
	for dir != "" && dir != "/" {
		segments = append([]string{file}, segments...)
		dir, file = split(dir)
	}
	segments = append([]string{file}, segments...)
	marker := ""
	if dir == "/" {
		marker = "/"
	}
	return append([]string{marker}, segments...)
}

// Join is the inverse of Expand modulo redundant separators.
func Join(segments []string) string {
	return path.Join(segments...)
}

// Contains reports whether candidate is a strict ancestor prefix of folder:
//
//	Contains(["a", "b", "c"], ["a", "b"]) => true
//	Contains(["a", "b", "c"], ["f"]) => false
//
// The candidate must be strictly shorter than folder and match it
// segment-for-segment.
func Contains(folder, candidate []string) bool {
	if len(candidate) >= len(folder) {
		return false
	}
	for i, seg := range candidate {
		if folder[i] != seg {
			return false
		}
	}
	return true
}

// MissingFolders returns every ancestor directory implied by paths but not
// listed among them, each exactly once, in discovery order:
//
//	MissingFolders(["a/b/c"]) => ["a/b", "a"]
//
// Prefixes are walked from the full path down to the root.
func MissingFolders(paths []string) []string {
	var missing []string
	pool := make(map[string]bool, len(paths))
	for _, p := range paths {
		pool[p] = true
	}
	for _, p := range paths {
		expanded := Expand(p)
		for i := range expanded {
			folder := Join(expanded[:len(expanded)-i])
			if folder != "" && !pool[folder] {
				pool[folder] = true
				missing = append(missing, folder)
			}
		}
	}
	return missing
}
