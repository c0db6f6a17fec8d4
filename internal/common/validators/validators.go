package validators

import (
	"net"
	"regexp"
	"strconv"
)

var hostnameRegex = regexp.MustCompile(`^(([a-zA-Z0-9]|[a-zA-Z0-9][a-zA-Z0-9\-]*[a-zA-Z0-9])\.)*([A-Za-z]|[A-Za-z][A-Za-z0-9\-]*[A-Za-z0-9])$`)

func ValidateAddr(addr string) bool {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}

	return ValidateHost(host) && ValidatePort(port)
}

func ValidateHost(host string) bool {
	// Check if ip address
	ip := net.ParseIP(host)
	if ip != nil {
		return true
	}

	// Check if hostname
	return hostnameRegex.MatchString(host)
}

// ValidatePort accepts 1-65535 plus 0, which binds an ephemeral port.
func ValidatePort(port any) bool {
	switch port := port.(type) {
	case string:
		portInt, err := strconv.Atoi(port)
		if err != nil {
			return false
		}
		return ValidatePort(portInt)
	case int:
		return port >= 0 && port <= 65535
	default:
		return false
	}
}
