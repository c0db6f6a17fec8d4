package server

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/pkg/sftp"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	"sshmock/internal/common/constants"
	"sshmock/internal/script"
	"sshmock/internal/sshd"
	"sshmock/internal/vfs"
)

func startTestServer(t *testing.T, cfg *Config) string {
	t.Helper()
	srv, err := NewServer(context.Background(), cfg)
	require.NoError(t, err)
	require.NoError(t, srv.Start())
	t.Cleanup(func() {
		// Stop also surfaces any worker fault captured during the test
		require.NoError(t, srv.Stop())
	})
	return srv.Addr().String()
}

func dialTestServer(t *testing.T, addr string, auth ssh.AuthMethod) *ssh.Client {
	t.Helper()
	client, err := ssh.Dial("tcp", addr, &ssh.ClientConfig{
		User:            DefaultUser,
		Auth:            []ssh.AuthMethod{auth},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

// readUntil consumes the stream until marker shows up. The server blocks
// for client input right after each marker, so reads never overshoot.
func readUntil(t *testing.T, r io.Reader, marker string) string {
	t.Helper()
	var acc strings.Builder
	buf := make([]byte, 256)
	for !strings.Contains(acc.String(), marker) {
		n, err := r.Read(buf)
		if n > 0 {
			acc.Write(buf[:n])
		}
		require.NoErrorf(t, err, "stream ended waiting for %q, got %q", marker, acc.String())
	}
	return acc.String()
}

func TestScriptedCommand(t *testing.T) {
	addr := startTestServer(t, &Config{})
	client := dialTestServer(t, addr, ssh.Password("password"))

	session, err := client.NewSession()
	require.NoError(t, err)
	defer session.Close()

	out, err := session.Output("ls /simple")
	require.NoError(t, err)
	require.Equal(t, "some output", string(out))
}

func TestUnknownCommand(t *testing.T) {
	addr := startTestServer(t, &Config{})
	client := dialTestServer(t, addr, ssh.Password("password"))

	session, err := client.NewSession()
	require.NoError(t, err)
	defer session.Close()

	var stderr strings.Builder
	session.Stderr = &stderr

	err = session.Run("frobnicate --now")
	var exitErr *ssh.ExitError
	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, 1, exitErr.ExitStatus())
	require.Equal(t, constants.UnknownCommand, stderr.String())
}

func TestInterleavedStreams(t *testing.T) {
	addr := startTestServer(t, &Config{
		Responses: map[string]script.Response{
			"make noise": {
				Stdout: "out1\nout2\nout3",
				Stderr: "err1",
				Status: 7,
			},
		},
	})
	client := dialTestServer(t, addr, ssh.Password("password"))

	session, err := client.NewSession()
	require.NoError(t, err)
	defer session.Close()

	var stdout, stderr strings.Builder
	session.Stdout = &stdout
	session.Stderr = &stderr

	err = session.Run("make noise")
	var exitErr *ssh.ExitError
	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, 7, exitErr.ExitStatus())
	require.Equal(t, "out1\nout2\nout3", stdout.String())
	require.Equal(t, "err1", stderr.String())
}

func TestSudoSuccess(t *testing.T) {
	addr := startTestServer(t, &Config{})
	client := dialTestServer(t, addr, ssh.Password("password"))

	session, err := client.NewSession()
	require.NoError(t, err)
	defer session.Close()

	stdin, err := session.StdinPipe()
	require.NoError(t, err)
	stdout, err := session.StdoutPipe()
	require.NoError(t, err)

	require.NoError(t, session.Start(constants.SudoPrefix+" ls /simple"))

	readUntil(t, stdout, constants.SudoPrompt)
	_, err = stdin.Write([]byte("password\n"))
	require.NoError(t, err)

	rest, err := io.ReadAll(stdout)
	require.NoError(t, err)
	require.Equal(t, "\nsome output", string(rest))
	require.NoError(t, session.Wait())
}

func TestSudoLockout(t *testing.T) {
	addr := startTestServer(t, &Config{})
	client := dialTestServer(t, addr, ssh.Password("password"))

	session, err := client.NewSession()
	require.NoError(t, err)
	defer session.Close()

	stdin, err := session.StdinPipe()
	require.NoError(t, err)
	stdout, err := session.StdoutPipe()
	require.NoError(t, err)

	require.NoError(t, session.Start(constants.SudoPrefix+" ls /simple"))

	for i := 0; i < constants.SudoAttempts; i++ {
		out := readUntil(t, stdout, constants.SudoPrompt)
		if i > 0 {
			require.Contains(t, out, constants.SudoRetryMessage)
		}
		_, err = stdin.Write([]byte("letmein\n"))
		require.NoError(t, err)
	}

	rest, err := io.ReadAll(stdout)
	require.NoError(t, err)
	require.Contains(t, string(rest), constants.SudoLockout)

	// the connection drops without ever sending an exit status
	var missing *ssh.ExitMissingError
	require.ErrorAs(t, session.Wait(), &missing)
}

func TestPasswordRejected(t *testing.T) {
	addr := startTestServer(t, &Config{})

	_, err := ssh.Dial("tcp", addr, &ssh.ClientConfig{
		User:            DefaultUser,
		Auth:            []ssh.AuthMethod{ssh.Password("not-the-password")},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         5 * time.Second,
	})
	require.Error(t, err)
}

func TestPublicKeyAuth(t *testing.T) {
	key, err := sshd.NewECDSAKey()
	require.NoError(t, err)
	signer, err := key.Signer()
	require.NoError(t, err)

	t.Run("disabled", func(t *testing.T) {
		addr := startTestServer(t, &Config{})
		_, err := ssh.Dial("tcp", addr, &ssh.ClientConfig{
			User:            DefaultUser,
			Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
			HostKeyCallback: ssh.InsecureIgnoreHostKey(),
			Timeout:         5 * time.Second,
		})
		require.Error(t, err)
	})

	t.Run("enabled", func(t *testing.T) {
		addr := startTestServer(t, &Config{PublicKeyAuth: true})
		client := dialTestServer(t, addr, ssh.PublicKeys(signer))

		session, err := client.NewSession()
		require.NoError(t, err)
		defer session.Close()

		out, err := session.Output("ls /simple")
		require.NoError(t, err)
		require.Equal(t, "some output", string(out))
	})
}

func TestSftpSubsystem(t *testing.T) {
	addr := startTestServer(t, &Config{})
	client := dialTestServer(t, addr, ssh.Password("password"))

	sftpClient, err := sftp.NewClient(client)
	require.NoError(t, err)
	defer sftpClient.Close()

	infos, err := sftpClient.ReadDir("/tree")
	require.NoError(t, err)
	var names []string
	for _, info := range infos {
		names = append(names, info.Name())
	}
	require.ElementsMatch(t, []string{"file1.txt", "file2.txt", "subfolder"}, names)

	data, err := sftpClient.Open("/file.txt")
	require.NoError(t, err)
	contents, err := io.ReadAll(data)
	require.NoError(t, err)
	require.NoError(t, data.Close())
	require.Equal(t, "contents", string(contents))

	_, err = sftpClient.ReadDir("/nowhere")
	require.Error(t, err)
}

func TestSftpUpload(t *testing.T) {
	addr := startTestServer(t, &Config{})
	client := dialTestServer(t, addr, ssh.Password("password"))

	sftpClient, err := sftp.NewClient(client)
	require.NoError(t, err)
	defer sftpClient.Close()

	f, err := sftpClient.Create("/upload.txt")
	require.NoError(t, err)
	_, err = f.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	info, err := sftpClient.Stat("/upload.txt")
	require.NoError(t, err)
	require.Equal(t, int64(5), info.Size())

	back, err := sftpClient.Open("/upload.txt")
	require.NoError(t, err)
	contents, err := io.ReadAll(back)
	require.NoError(t, err)
	require.Equal(t, "hello", string(contents))
	require.NoError(t, back.Close())
}

func TestSftpSessionIsolation(t *testing.T) {
	addr := startTestServer(t, &Config{
		Files: map[string]vfs.Node{"file.txt": {Content: "contents"}},
	})

	first := dialTestServer(t, addr, ssh.Password("password"))
	firstSftp, err := sftp.NewClient(first)
	require.NoError(t, err)

	f, err := firstSftp.Create("/file.txt")
	require.NoError(t, err)
	_, err = f.Write([]byte("CHANGED!"))
	require.NoError(t, err)
	require.NoError(t, f.Close())
	require.NoError(t, firstSftp.Close())

	// a fresh connection gets a fresh copy of the template tree
	second := dialTestServer(t, addr, ssh.Password("password"))
	secondSftp, err := sftp.NewClient(second)
	require.NoError(t, err)
	defer secondSftp.Close()

	back, err := secondSftp.Open("/file.txt")
	require.NoError(t, err)
	contents, err := io.ReadAll(back)
	require.NoError(t, err)
	require.Equal(t, "contents", string(contents))
}
