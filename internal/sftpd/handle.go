package sftpd

import (
	"io"
	"sync"

	"github.com/pkg/sftp"
)

// Handle is one open file: a read/write buffer seeded from the filesystem
// entry at open time. The buffer is committed back to the filesystem once,
// when the handle closes — the only point where SFTP mutates filesystem
// state.
type Handle struct {
	session *session
	path    string

	mu     sync.Mutex
	buf    []byte
	attr   *sftp.FileStat
	closed bool
}

func (h *Handle) ReadAt(p []byte, off int64) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if off >= int64(len(h.buf)) {
		return 0, io.EOF
	}
	n := copy(p, h.buf[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (h *Handle) WriteAt(p []byte, off int64) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if end := off + int64(len(p)); end > int64(len(h.buf)) {
		grown := make([]byte, end)
		copy(grown, h.buf)
		h.buf = grown
	}
	copy(h.buf[off:], p)
	return len(p), nil
}

// Close commits the buffer under the handle's path. Repeated closes keep
// the first commit.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true
	h.session.put(h.path, append([]byte(nil), h.buf...))
	return nil
}

// Chattr replaces the handle's cached attributes.
func (h *Handle) Chattr(attr *sftp.FileStat) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.attr = attr
	return nil
}

// Stat reports the cached attributes. A handle that never had attributes
// assigned (a path that did not exist at open time) reports NoSuchFile;
// clients depend on this exact behavior when they stat pending handles.
func (h *Handle) Stat() (*sftp.FileStat, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.attr == nil {
		return nil, sftp.ErrSshFxNoSuchFile
	}
	return h.attr, nil
}
