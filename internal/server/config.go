package server

import (
	"sshmock/internal/common/constants"
	"sshmock/internal/script"
	"sshmock/internal/vfs"
)

// DefaultUser is the account most client tests authenticate with.
const DefaultUser = "username"

// Config carries the construction parameters of a Server. Zero-value
// fields fall back to defaults suitable for standalone testing.
type Config struct {
	Host string
	// Port 0 binds an ephemeral port; read it back with Server.Addr.
	Port int
	// Responses maps exact command strings to scripted replies.
	Responses map[string]script.Response
	// Files seeds the virtual filesystem served over SFTP.
	Files map[string]vfs.Node
	// Passwords is the credential table for password auth and sudo
	// challenges.
	Passwords map[string]string
	// PublicKeyAuth makes public-key authentication succeed for any key.
	PublicKeyAuth bool
}

func (c *Config) applyDefaults() {
	if c.Host == "" {
		c.Host = constants.DefaultHost
	}
	if c.Responses == nil {
		c.Responses = DefaultResponses()
	}
	if c.Files == nil {
		c.Files = DefaultFiles()
	}
	if c.Passwords == nil {
		c.Passwords = DefaultPasswords()
	}
}

// DefaultResponses returns the built-in scripted command table.
func DefaultResponses() map[string]script.Response {
	return map[string]script.Response{
		"ls /simple": {Stdout: "some output"},
		"ls /": {Stdout: `AUTHORS
LICENSE
README.md
build
cmd
docs
go.mod
go.sum
internal
scripts`},
	}
}

// DefaultFiles returns the built-in SFTP file tree.
func DefaultFiles() map[string]vfs.Node {
	return map[string]vfs.Node{
		"file.txt":                  {Content: "contents"},
		"file2.txt":                 {Content: "contents2"},
		"folder/file3.txt":          {Content: "contents3"},
		"empty_folder":              {Dir: true},
		"tree/file1.txt":            {Content: "x"},
		"tree/file2.txt":            {Content: "y"},
		"tree/subfolder/file3.txt":  {Content: "z"},
		"/etc/apache2/apache2.conf": {Content: "Include other.conf"},
	}
}

// DefaultPasswords returns the built-in credential table.
func DefaultPasswords() map[string]string {
	return map[string]string{
		"root":      "root",
		DefaultUser: "password",
	}
}
