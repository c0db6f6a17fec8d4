package sftpd

import (
	"os"
	"path"
	"time"

	"github.com/pkg/sftp"

	"sshmock/internal/vfs"
)

const (
	modeDir  = 0o040755
	modeFile = 0o100644
)

// fileStat derives wire attributes for an entry. Attributes stored by an
// earlier setstat win over the synthesized defaults.
func fileStat(entry *vfs.Entry) *sftp.FileStat {
	if entry.Attr != nil {
		attr := *entry.Attr
		return &attr
	}
	if entry.Dir {
		return &sftp.FileStat{Mode: modeDir}
	}
	return &sftp.FileStat{Size: uint64(len(entry.Contents)), Mode: modeFile}
}

// fileInfo presents a filesystem entry as an os.FileInfo for listings and
// stat responses. Times are fixed so the server stays deterministic.
type fileInfo struct {
	name  string
	size  int64
	mode  os.FileMode
	mtime time.Time
}

func newFileInfo(p string, entry *vfs.Entry) *fileInfo {
	info := &fileInfo{
		name:  path.Base(p),
		size:  int64(len(entry.Contents)),
		mode:  0o644,
		mtime: time.Unix(0, 0),
	}
	if entry.Dir {
		info.mode = os.ModeDir | 0o755
		info.size = 0
	}
	if entry.Attr != nil {
		info.size = int64(entry.Attr.Size)
		info.mode = (info.mode & os.ModeDir) | os.FileMode(entry.Attr.Mode&0o777)
		if entry.Attr.Mtime != 0 {
			info.mtime = time.Unix(int64(entry.Attr.Mtime), 0)
		}
	}
	return info
}

func (f *fileInfo) Name() string       { return f.name }
func (f *fileInfo) Size() int64        { return f.size }
func (f *fileInfo) Mode() os.FileMode  { return f.mode }
func (f *fileInfo) ModTime() time.Time { return f.mtime }
func (f *fileInfo) IsDir() bool        { return f.mode.IsDir() }
func (f *fileInfo) Sys() any           { return nil }
