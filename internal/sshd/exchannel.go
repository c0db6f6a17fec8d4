package sshd

import "golang.org/x/crypto/ssh"

type ExitStatus struct {
	Status uint32
}

// ExtendedChannel wraps an ssh.Channel with exit-status signaling.
type ExtendedChannel struct {
	ssh.Channel
}

func NewExtendedChannel(channel ssh.Channel) *ExtendedChannel {
	return &ExtendedChannel{
		Channel: channel,
	}
}

// SendExitStatus reports the command's exit status to the client without
// closing the channel.
func (e *ExtendedChannel) SendExitStatus(status int) {
	e.SendRequest("exit-status", false, ssh.Marshal(&ExitStatus{Status: uint32(status)}))
}
