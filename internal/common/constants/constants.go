package constants

import "time"

const (
	DefaultHost = "127.0.0.1"
	DefaultPort = 2200

	// ChannelWait bounds one poll for an incoming session channel so the
	// worker can observe server shutdown between polls.
	ChannelWait = 1 * time.Second
	// CommandWait bounds the wait for an exec/shell request on an
	// already-open channel.
	CommandWait = 10 * time.Second
	// DrainDelay gives the client time to read buffered output before the
	// channel is torn down.
	DrainDelay = 500 * time.Millisecond

	// deadline for the accept loop, so Stop is observed promptly
	AcceptDeadline = 2 * time.Second
	SshTimeout     = 30 * time.Second

	SudoPrompt       = "sudo password:"
	SudoPrefix       = "sudo -S -p '" + SudoPrompt + "'"
	SudoAttempts     = 3
	SudoRetryMessage = "Sorry, try again.\n"
	SudoLockout      = "sudo: 3 incorrect password attempts\n"

	UnknownCommand = "Sorry, I don't recognize that command.\n"
)
