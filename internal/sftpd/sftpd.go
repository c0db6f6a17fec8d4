// Package sftpd adapts the in-memory virtual filesystem to the sftp
// package's request-server hooks. Each SFTP session operates on its own
// deep copy of the server's filesystem template.
package sftpd

import (
	"io"
	"os"
	"path"
	"sync"

	"sshmock/internal/vfs"

	"github.com/pkg/sftp"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
)

// Serve runs the SFTP subsystem on an accepted channel until the client
// disconnects. The filesystem template is never mutated.
func Serve(lg *zap.SugaredLogger, channel ssh.Channel, template *vfs.Filesystem) error {
	session := newSession(lg, template)
	server := sftp.NewRequestServer(channel, sftp.Handlers{
		FileGet:  session,
		FilePut:  session,
		FileCmd:  session,
		FileList: session,
	})
	if err := server.Serve(); err != nil && err != io.EOF {
		lg.Errorf("SFTP server stopped: %v", err)
		return err
	}
	lg.Debug("SFTP session finished")
	return nil
}

// session is one client's view of the filesystem. The request server
// dispatches packets from multiple goroutines, so access goes through a
// mutex even though sessions themselves are independent.
type session struct {
	lg *zap.SugaredLogger

	mu sync.Mutex
	fs *vfs.Filesystem
}

func newSession(lg *zap.SugaredLogger, template *vfs.Filesystem) *session {
	copied := template.DeepCopy()

	// The request server normalizes every client path to an absolute,
	// cleaned form before it reaches the handlers. Rehome relative fixture
	// paths under "/" so they stay reachable, and re-synthesize the
	// ancestor directories the rehoming implies.
	fs := vfs.New(nil)
	for _, p := range copied.Paths() {
		entry, _ := copied.Get(p)
		fs.Put(absolute(p), entry)
	}
	for _, folder := range vfs.MissingFolders(fs.Paths()) {
		if _, ok := fs.Get(folder); !ok {
			fs.Put(folder, &vfs.Entry{Dir: true})
		}
	}

	return &session{lg: lg, fs: fs}
}

func absolute(p string) string {
	if p == "" {
		return "/"
	}
	if p[0] != '/' {
		p = "/" + p
	}
	return path.Clean(p)
}

// Fileread opens a path for reading.
func (s *session) Fileread(r *sftp.Request) (io.ReaderAt, error) {
	return s.open(r.Filepath)
}

// Filewrite opens a path for writing, creating it on commit if absent.
func (s *session) Filewrite(r *sftp.Request) (io.WriterAt, error) {
	return s.open(r.Filepath)
}

// OpenFile serves read-write opens through a single shared buffer.
func (s *session) OpenFile(r *sftp.Request) (sftp.WriterAtReaderAt, error) {
	return s.open(r.Filepath)
}

// open never fails: a path not present in the filesystem yields a handle
// over an empty buffer, which materializes the file when closed. For
// existing paths the client-supplied attributes are ignored in favor of
// the stored ones, since clients routinely send empty attributes.
func (s *session) open(p string) (*Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lg.Debugf("Open %q", p)
	handle := &Handle{session: s, path: p}
	if entry, ok := s.fs.Get(p); ok {
		handle.buf = append([]byte(nil), entry.Contents...)
		handle.attr = fileStat(entry)
	}
	return handle, nil
}

// Filecmd handles metadata mutations. Only setstat is modeled.
func (s *session) Filecmd(r *sftp.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lg.Debugf("Filecmd %s %q", r.Method, r.Filepath)
	switch r.Method {
	case "Setstat":
		entry, ok := s.fs.Get(r.Filepath)
		if !ok {
			return sftp.ErrSshFxNoSuchFile
		}
		entry.Attr = r.Attributes()
		return nil
	default:
		return sftp.ErrSshFxOpUnsupported
	}
}

// Filelist serves directory listings and stat lookups.
func (s *session) Filelist(r *sftp.Request) (sftp.ListerAt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lg.Debugf("Filelist %s %q", r.Method, r.Filepath)
	switch r.Method {
	case "List":
		results, err := s.listFolder(r.Filepath)
		if err != nil {
			return nil, err
		}
		return listerat(results), nil
	case "Stat", "Lstat":
		// no symlink modeling, lstat behaves as stat
		info, err := s.stat(r.Filepath)
		if err != nil {
			return nil, err
		}
		return listerat{info}, nil
	default:
		return nil, sftp.ErrSshFxOpUnsupported
	}
}

// listFolder lists the entries one level below p. Candidates are every
// known path strictly containing p, truncated to one level past it and
// deduplicated. An empty candidate set or any failing child stat makes the
// whole listing report NoSuchFile: a client cannot tell a missing folder
// from a folder with a phantom child.
func (s *session) listFolder(p string) ([]os.FileInfo, error) {
	expandedPath := vfs.Expand(p)
	var candidates [][]string
	for _, known := range s.fs.Paths() {
		expanded := vfs.Expand(known)
		if vfs.Contains(expanded, expandedPath) {
			candidates = append(candidates, expanded)
		}
	}

	var children [][]string
	for _, candidate := range candidates {
		cut := candidate[:len(expandedPath)+1]
		if !hasSegments(children, cut) {
			children = append(children, cut)
		}
	}

	var results []os.FileInfo
	bad := len(children) == 0
	for _, child := range children {
		info, err := s.stat(vfs.Join(child))
		if err != nil {
			bad = true
			continue
		}
		results = append(results, info)
	}
	if bad {
		return nil, sftp.ErrSshFxNoSuchFile
	}
	return results, nil
}

func hasSegments(set [][]string, segments []string) bool {
	for _, candidate := range set {
		if len(candidate) != len(segments) {
			continue
		}
		same := true
		for i := range candidate {
			if candidate[i] != segments[i] {
				same = false
				break
			}
		}
		if same {
			return true
		}
	}
	return false
}

func (s *session) stat(p string) (os.FileInfo, error) {
	entry, ok := s.fs.Get(p)
	if !ok {
		return nil, sftp.ErrSshFxNoSuchFile
	}
	return newFileInfo(p, entry), nil
}

// put commits a closed handle's buffer back into the session filesystem.
func (s *session) put(p string, contents []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fs.Put(p, &vfs.Entry{Contents: contents})
}

// listerat adapts a FileInfo slice to the sftp.ListerAt interface.
type listerat []os.FileInfo

func (l listerat) ListAt(ls []os.FileInfo, offset int64) (int, error) {
	if offset >= int64(len(l)) {
		return 0, io.EOF
	}
	n := copy(ls, l[offset:])
	if n < len(ls) {
		return n, io.EOF
	}
	return n, nil
}
