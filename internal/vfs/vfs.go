package vfs

import (
	"sort"

	"github.com/pkg/sftp"
)

// Node describes one entry of the construction table: either file content
// or an explicit empty directory.
type Node struct {
	Content string
	Dir     bool
}

// Entry is a stored filesystem object. Attr stays nil until a client
// overrides the attributes via setstat.
type Entry struct {
	Dir      bool
	Contents []byte
	Attr     *sftp.FileStat
}

// Filesystem maps path strings to entries. A Filesystem built with New is
// the per-server template; every SFTP session works on its own DeepCopy.
type Filesystem struct {
	entries map[string]*Entry
}

// New builds a filesystem from a path to content table and synthesizes
// every ancestor directory the table implies but omits, so directory
// listings are complete.
func New(files map[string]Node) *Filesystem {
	fs := &Filesystem{entries: make(map[string]*Entry, len(files))}

	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		node := files[p]
		if node.Dir {
			fs.entries[p] = &Entry{Dir: true}
		} else {
			fs.entries[p] = &Entry{Contents: []byte(node.Content)}
		}
	}
	for _, folder := range MissingFolders(paths) {
		if _, ok := fs.entries[folder]; !ok {
			fs.entries[folder] = &Entry{Dir: true}
		}
	}
	return fs
}

func (fs *Filesystem) Get(path string) (*Entry, bool) {
	entry, ok := fs.entries[path]
	return entry, ok
}

func (fs *Filesystem) Put(path string, entry *Entry) {
	fs.entries[path] = entry
}

// Paths returns every known path in sorted order.
func (fs *Filesystem) Paths() []string {
	paths := make([]string, 0, len(fs.entries))
	for p := range fs.entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// DeepCopy clones the filesystem with independent entries and byte
// buffers, so concurrent sessions cannot corrupt each other's state.
func (fs *Filesystem) DeepCopy() *Filesystem {
	clone := &Filesystem{entries: make(map[string]*Entry, len(fs.entries))}
	for p, entry := range fs.entries {
		copied := &Entry{Dir: entry.Dir}
		if entry.Contents != nil {
			copied.Contents = append([]byte(nil), entry.Contents...)
		}
		if entry.Attr != nil {
			attr := *entry.Attr
			copied.Attr = &attr
		}
		clone.entries[p] = copied
	}
	return clone
}
