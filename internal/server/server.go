// Package server implements the programmable SSH/SFTP test double: real
// transport and auth, scripted command responses, in-memory SFTP.
package server

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"

	"sshmock/internal/common/constants"
	"sshmock/internal/common/logger"
	"sshmock/internal/common/network"
	"sshmock/internal/script"
	"sshmock/internal/sftpd"
	"sshmock/internal/sshd"
	"sshmock/internal/vfs"
)

type Server struct {
	lg         *zap.SugaredLogger
	address    string
	responses  *script.Table
	fsTemplate *vfs.Filesystem
	passwords  map[string]string
	pubkeyAuth bool
	hostKey    *sshd.ECDSAKey
	signer     ssh.Signer

	listener net.Listener
	done     chan struct{}
	wg       sync.WaitGroup

	mu        sync.Mutex
	started   bool
	workerErr error
}

// NewServer builds a server from the config; all tables become read-only
// from here on. A fresh host key is generated per instance.
func NewServer(ctx context.Context, cfg *Config) (*Server, error) {
	lg := logger.FromContext(ctx)
	if lg == nil {
		lg = zap.NewNop().Sugar()
	}
	lg = lg.Named("sshmock")

	cfg.applyDefaults()

	key, err := sshd.NewECDSAKey()
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate host key")
	}
	signer, err := key.Signer()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build host key signer")
	}

	return &Server{
		lg:         lg,
		address:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		responses:  script.NewTable(cfg.Responses),
		fsTemplate: vfs.New(cfg.Files),
		passwords:  cfg.Passwords,
		pubkeyAuth: cfg.PublicKeyAuth,
		hostKey:    key,
		signer:     signer,
	}, nil
}

// Start binds the listener and begins accepting connections, one worker
// goroutine per connection.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errors.New("server already started")
	}
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return errors.Wrap(err, "failed to listen")
	}
	s.listener = listener
	s.done = make(chan struct{})
	s.started = true

	s.wg.Add(1)
	go s.acceptLoop()

	s.lg.Infof("Listening at %s", listener.Addr())
	if publicKey, err := s.hostKey.GetPublicKey(); err == nil {
		s.lg.Debugf("Host key: %s", strings.TrimSpace(string(publicKey)))
	}
	return nil
}

// Addr returns the bound address, so callers can start on port 0.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop signals shutdown, stops accepting, waits for every in-flight worker
// and surfaces the first worker fault captured, if any.
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return errors.New("server not started")
	}
	s.started = false
	s.mu.Unlock()

	close(s.done)
	if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		s.lg.Warnf("Failed to close listener: %v", err)
	}
	s.wg.Wait()
	s.lg.Info("Server stopped")

	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.workerErr
	s.workerErr = nil
	return err
}

// Serve runs the server until the context is canceled, then stops it
// gracefully.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	return s.Stop()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.done:
			return
		default:
		}
		if tcpListener, ok := s.listener.(*net.TCPListener); ok {
			tcpListener.SetDeadline(time.Now().Add(constants.AcceptDeadline))
		}

		conn, err := s.listener.Accept()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.lg.Errorf("Failed to accept connection: %v", err)
			continue
		}
		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

// handleConnection is the worker boundary: any unexpected fault is caught
// here, stored, and re-raised to whoever stops the server.
func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()

	lg := s.lg.Named(fmt.Sprintf("(%s)", conn.RemoteAddr()))
	defer func() {
		if r := recover(); r != nil {
			lg.Errorf("Session worker panic: %v", r)
			s.storeWorkerErr(errors.Errorf("session worker panic: %v", r))
		}
	}()

	if err := s.serveConn(lg, conn); err != nil {
		lg.Errorf("Session worker failed: %v", err)
		s.storeWorkerErr(err)
	}
}

func (s *Server) serveConn(lg *zap.SugaredLogger, conn net.Conn) error {
	lg.Debugf("New TCP connection from %s", conn.RemoteAddr())
	timeoutConn := network.NewTimeoutConn(conn, 2*constants.SshTimeout)

	g := newGate(lg, s.passwords, s.pubkeyAuth)
	sshConfig := &ssh.ServerConfig{
		PasswordCallback:  g.PasswordCallback,
		PublicKeyCallback: g.PublicKeyCallback,
	}
	sshConfig.AddHostKey(s.signer)

	sshConn, chans, reqs, err := ssh.NewServerConn(timeoutConn, sshConfig)
	if err != nil {
		// auth failures and handshake noise stay on the client side
		lg.Debugf("SSH handshake failed: %v", err)
		return nil
	}
	defer sshConn.Close()
	lg.Infof("New SSH connection (%s)", sshConn.User())

	go ssh.DiscardRequests(reqs)
	go s.handleChannels(lg, g, chans)

	sess := &session{
		lg:        lg.Named("session"),
		gate:      g,
		responses: s.responses,
		passwords: s.passwords,
		done:      s.done,
	}
	err = sess.run()
	lg.Infof("SSH connection closed (%s)", sshConn.User())
	return err
}

func (s *Server) handleChannels(lg *zap.SugaredLogger, g *gate, chans <-chan ssh.NewChannel) {
	for newChannel := range chans {
		lg.Debugf("Requested channel: %s", newChannel.ChannelType())
		if newChannel.ChannelType() != "session" {
			lg.Warnf("Unsupported channel type: %s", newChannel.ChannelType())
			newChannel.Reject(ssh.UnknownChannelType, "unsupported channel type")
			continue
		}
		rawChannel, requests, err := newChannel.Accept()
		if err != nil {
			lg.Errorf("Failed to accept channel: %v", err)
			continue
		}
		channel := sshd.NewExtendedChannel(rawChannel)
		g.OfferChannel(channel)
		go s.handleRequests(lg, g, channel, requests)
	}
}

func (s *Server) handleRequests(lg *zap.SugaredLogger, g *gate, channel *sshd.ExtendedChannel, requests <-chan *ssh.Request) {
	for req := range requests {
		lg.Debugf("Session request: %s", req.Type)
		switch req.Type {
		case "exec":
			if len(req.Payload) < 4 {
				req.Reply(false, nil)
				continue
			}
			command := string(req.Payload[4:])
			lg.Debugf("Exec request: %s", command)
			g.SetCommand(command)
			req.Reply(true, nil)
		case "shell":
			g.SignalReady()
			req.Reply(true, nil)
		case "pty-req":
			if p, err := sshd.ParsePtyReq(req); err == nil {
				lg.Debugf("PTY request: %s - %dx%d", p.Term, p.Columns, p.Rows)
			}
			req.Reply(true, nil)
		case "subsystem":
			if len(req.Payload) > 4 && string(req.Payload[4:]) == "sftp" {
				req.Reply(true, nil)
				if err := sftpd.Serve(lg.Named("sftp"), channel, s.fsTemplate); err != nil {
					lg.Errorf("SFTP session failed: %v", err)
				}
				return
			}
			lg.Warnf("Unsupported subsystem request")
			req.Reply(false, nil)
		default:
			lg.Warnf("Unsupported session request: %s", req.Type)
			req.Reply(false, nil)
		}
	}
}

func (s *Server) storeWorkerErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.workerErr == nil {
		s.workerErr = err
	}
}
