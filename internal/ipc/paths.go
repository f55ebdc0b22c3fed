package ipc

import (
	"os"
	"path/filepath"
	"strings"
)

// SocketPath returns the Unix domain socket path and ensures its parent
// directory exists with private permissions. A non-empty override wins;
// otherwise $XDG_RUNTIME_DIR/binderctl.sock, then
// ~/.local/share/binderctl/ipc.sock.
func SocketPath(override string) (string, error) {
	var p string
	switch {
	case strings.TrimSpace(override) != "":
		p = override
	case os.Getenv("XDG_RUNTIME_DIR") != "":
		p = filepath.Join(os.Getenv("XDG_RUNTIME_DIR"), "binderctl.sock")
	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		p = filepath.Join(home, ".local", "share", "binderctl", "ipc.sock")
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return "", err
	}
	return p, nil
}
