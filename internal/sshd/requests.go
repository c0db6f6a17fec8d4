package sshd

import (
	"fmt"

	"golang.org/x/crypto/ssh"
)

type PtyReq struct {
	Term          string
	Columns, Rows uint32
	Width, Height uint32
	Modes         string
}

func ParsePtyReq(req *ssh.Request) (*PtyReq, error) {
	var data PtyReq
	if err := ssh.Unmarshal(req.Payload, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pty request: %w", err)
	}
	return &data, nil
}
