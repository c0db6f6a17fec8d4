package sshd

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/ssh"
)

type ECDSAKey struct {
	privateKey *ecdsa.PrivateKey
}

// NewECDSAKey generates a fresh host key. The test double never persists
// keys, so every server instance gets its own.
func NewECDSAKey() (*ECDSAKey, error) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate private key: %w", err)
	}
	return &ECDSAKey{privateKey: privateKey}, nil
}

// Signer returns the key as an SSH host-key signer.
func (k *ECDSAKey) Signer() (ssh.Signer, error) {
	signer, err := ssh.NewSignerFromKey(k.privateKey)
	if err != nil {
		return nil, fmt.Errorf("new signer: %w", err)
	}
	return signer, nil
}

// GetPublicKey returns the public key in SSH authorized-keys format.
func (k *ECDSAKey) GetPublicKey() ([]byte, error) {
	sshPubKey, err := ssh.NewPublicKey(&k.privateKey.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("new public key: %w", err)
	}
	return ssh.MarshalAuthorizedKey(sshPubKey), nil
}

