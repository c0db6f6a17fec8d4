package server

import (
	"sync"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"

	"sshmock/internal/sshd"
)

// gate is the per-connection SSH personality: it decides which auth
// methods succeed, records the authenticated username, queues accepted
// session channels and signals the session loop when an exec or shell
// request arrives.
type gate struct {
	lg          *zap.SugaredLogger
	passwords   map[string]string
	allowPubkey bool

	mu         sync.Mutex
	username   string
	command    string
	hasCommand bool

	ready    chan struct{}
	channels chan *sshd.ExtendedChannel
}

func newGate(lg *zap.SugaredLogger, passwords map[string]string, allowPubkey bool) *gate {
	return &gate{
		lg:          lg,
		passwords:   passwords,
		allowPubkey: allowPubkey,
		ready:       make(chan struct{}, 1),
		channels:    make(chan *sshd.ExtendedChannel, 8),
	}
}

// PasswordCallback authenticates against the credential table. The
// username is recorded whether or not the attempt succeeds; the sudo
// challenge looks it up later.
func (g *gate) PasswordCallback(conn ssh.ConnMetadata, password []byte) (*ssh.Permissions, error) {
	g.recordUsername(conn.User())
	if expected, ok := g.passwords[conn.User()]; ok && expected == string(password) {
		return &ssh.Permissions{}, nil
	}
	g.lg.Debugf("Password rejected for %q", conn.User())
	return nil, errors.Errorf("password rejected for %q", conn.User())
}

// PublicKeyCallback accepts any key when public-key auth is enabled for
// this server instance. Key material is never validated: this is a
// permissive test double, not a verifier.
func (g *gate) PublicKeyCallback(conn ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
	g.recordUsername(conn.User())
	if g.allowPubkey {
		return &ssh.Permissions{}, nil
	}
	g.lg.Debugf("Public key auth disabled, rejecting %q", conn.User())
	return nil, errors.New("public key auth disabled")
}

func (g *gate) recordUsername(username string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.username = username
}

func (g *gate) Username() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.username
}

// OfferChannel hands an accepted session channel to the session loop.
func (g *gate) OfferChannel(channel *sshd.ExtendedChannel) {
	g.channels <- channel
}

// Channels exposes the queue of accepted session channels.
func (g *gate) Channels() <-chan *sshd.ExtendedChannel {
	return g.channels
}

// Ready fires once after an exec or shell request arrived.
func (g *gate) Ready() <-chan struct{} {
	return g.ready
}

// SetCommand records an exec command and signals readiness.
func (g *gate) SetCommand(command string) {
	g.mu.Lock()
	g.command = command
	g.hasCommand = true
	g.mu.Unlock()
	g.SignalReady()
}

// SignalReady marks that a request arrived; a shell request signals
// without a command.
func (g *gate) SignalReady() {
	select {
	case g.ready <- struct{}{}:
	default:
	}
}

// TakeCommand returns the recorded command, if any. The slot is cleared
// by Reset after the response is sent.
func (g *gate) TakeCommand() (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.command, g.hasCommand
}

// Reset clears the command slot and any pending ready signal so the next
// command starts from a clean slate.
func (g *gate) Reset() {
	g.mu.Lock()
	g.command = ""
	g.hasCommand = false
	g.mu.Unlock()
	select {
	case <-g.ready:
	default:
	}
}
