package server

import (
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"sshmock/internal/common/constants"
	"sshmock/internal/script"
	"sshmock/internal/sshd"
)

// sudoPrefixRe splits an optional "run as superuser" prefix off the front
// of an exec command. Only the prefix form sudo itself produces when asked
// to read the password from stdin is recognized.
var sudoPrefixRe = regexp.MustCompile(
	`^(` + regexp.QuoteMeta(strings.TrimRight(constants.SudoPrefix, " \t")) + ` +)?(.*)$`,
)

func splitSudoPrefix(command string) (prefix, rest string) {
	m := sudoPrefixRe.FindStringSubmatch(command)
	if m == nil {
		return "", command
	}
	return m[1], m[2]
}

// session runs the per-connection command loop: wait for a channel, wait
// for a command, resolve it against the scripted table, optionally run the
// sudo password challenge, reply, close the channel, repeat.
type session struct {
	lg        *zap.SugaredLogger
	gate      *gate
	responses *script.Table
	passwords map[string]string
	done      <-chan struct{}

	channel *sshd.ExtendedChannel
	// waiting marks that a channel is open but no command arrived yet, so
	// the next iteration keeps the channel instead of polling for a new one.
	waiting bool
}

func (s *session) run() error {
	for {
		if !s.waiting {
			select {
			case <-s.done:
				return nil
			case channel := <-s.gate.Channels():
				s.channel = channel
			case <-time.After(constants.ChannelWait):
				continue
			}
		}

		select {
		case <-s.done:
			return nil
		case <-s.gate.Ready():
		case <-time.After(constants.CommandWait):
		}

		command, ok := s.gate.TakeCommand()
		if !ok {
			// A shell request (or nothing at all) arrived: keep the channel
			// and stay ready for a late exec request on it.
			s.waiting = true
			continue
		}

		sudoPrefix, command := splitSudoPrefix(command)
		if response, found := s.responses.Lookup(command); found {
			if sudoPrefix != "" && !s.sudoChallenge() {
				s.lg.Infof("Sudo lockout for command %q", command)
				s.channel.Write([]byte(constants.SudoLockout))
				// drop the connection without an exit status
				time.Sleep(constants.DrainDelay)
				return nil
			}
			s.lg.Debugf("Responding to command %q", command)
			s.respond(response)
		} else {
			s.lg.Debugf("Unrecognized command %q", command)
			s.channel.Stderr().Write([]byte(constants.UnknownCommand))
			s.channel.SendExitStatus(1)
		}

		s.gate.Reset()
		s.waiting = false
		time.Sleep(constants.DrainDelay)
		s.channel.Close()
	}
}

// respond interleaves the equalized stdout/stderr lines by index and
// finishes with the exit status.
func (s *session) respond(response script.Response) {
	stdout, stderr := response.Lines()
	for i := range stdout {
		if stdout[i].OK {
			s.channel.Write([]byte(stdout[i].Text))
		}
		if stderr[i].OK {
			s.channel.Stderr().Write([]byte(stderr[i].Text))
		}
	}
	s.channel.SendExitStatus(response.Status)
}

// sudoChallenge prompts for the authenticated user's password, echoing a
// newline after each attempt the way a terminal would. Three strikes and
// the caller drops the session.
func (s *session) sudoChallenge() bool {
	expected := s.passwords[s.gate.Username()]
	buf := make([]byte, 1024)
	for attempt := 0; attempt < constants.SudoAttempts; attempt++ {
		if _, err := s.channel.Write([]byte(constants.SudoPrompt)); err != nil {
			return false
		}
		n, err := s.channel.Read(buf)
		if err != nil {
			return false
		}
		password := strings.TrimSpace(string(buf[:n]))
		// fake the echo of the user's newline
		s.channel.Write([]byte("\n"))
		if password == expected {
			return true
		}
		s.channel.Write([]byte(constants.SudoRetryMessage))
	}
	return false
}
