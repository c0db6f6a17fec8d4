package server

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sshmock/internal/common/constants"
)

// fakeConnMetadata satisfies ssh.ConnMetadata for auth callback tests.
type fakeConnMetadata struct {
	user string
}

func (m fakeConnMetadata) User() string          { return m.user }
func (m fakeConnMetadata) SessionID() []byte     { return nil }
func (m fakeConnMetadata) ClientVersion() []byte { return nil }
func (m fakeConnMetadata) ServerVersion() []byte { return nil }
func (m fakeConnMetadata) RemoteAddr() net.Addr  { return nil }
func (m fakeConnMetadata) LocalAddr() net.Addr   { return nil }

func TestSplitSudoPrefix(t *testing.T) {
	tests := []struct {
		command string
		prefix  string
		rest    string
	}{
		{"ls /simple", "", "ls /simple"},
		{constants.SudoPrefix + " ls /simple", constants.SudoPrefix + " ", "ls /simple"},
		{constants.SudoPrefix + "  whoami", constants.SudoPrefix + "  ", "whoami"},
		// the bare prefix is not a command of its own
		{constants.SudoPrefix, "", constants.SudoPrefix},
		// plain sudo without the stdin prompt form stays untouched
		{"sudo ls", "", "sudo ls"},
		{"", "", ""},
	}
	for _, tt := range tests {
		prefix, rest := splitSudoPrefix(tt.command)
		require.Equalf(t, tt.prefix, prefix, "command %q", tt.command)
		require.Equalf(t, tt.rest, rest, "command %q", tt.command)
	}
}

func TestGateCommandLifecycle(t *testing.T) {
	g := newGate(zap.NewNop().Sugar(), DefaultPasswords(), false)

	_, ok := g.TakeCommand()
	require.False(t, ok)

	g.SetCommand("ls /simple")
	select {
	case <-g.Ready():
	default:
		t.Fatal("SetCommand did not signal readiness")
	}

	command, ok := g.TakeCommand()
	require.True(t, ok)
	require.Equal(t, "ls /simple", command)

	g.Reset()
	_, ok = g.TakeCommand()
	require.False(t, ok)

	// Reset drains a pending ready signal too
	g.SignalReady()
	g.SignalReady()
	g.Reset()
	select {
	case <-g.Ready():
		t.Fatal("ready signal survived reset")
	default:
	}
}

func TestGateRecordsUsernameOnFailedAuth(t *testing.T) {
	g := newGate(zap.NewNop().Sugar(), DefaultPasswords(), false)

	_, err := g.PasswordCallback(fakeConnMetadata{user: "intruder"}, []byte("nope"))
	require.Error(t, err)
	require.Equal(t, "intruder", g.Username())

	_, err = g.PasswordCallback(fakeConnMetadata{user: DefaultUser}, []byte("password"))
	require.NoError(t, err)
	require.Equal(t, DefaultUser, g.Username())
}
