//go:build linux

package keyboard

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// ydotoolSocketReachable reports whether ydotoold's socket exists and is writable
// by this user; without the daemon every ydotool call fails.
func ydotoolSocketReachable() bool {
	for _, path := range ydotoolSocketCandidates() {
		if unix.Access(path, unix.W_OK) == nil {
			return true
		}
	}
	return false
}

func ydotoolSocketCandidates() []string {
	var paths []string
	if p := os.Getenv("YDOTOOL_SOCKET"); p != "" {
		paths = append(paths, p)
	}
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		paths = append(paths, dir+"/.ydotool_socket")
	}
	paths = append(paths,
		fmt.Sprintf("/run/user/%d/.ydotool_socket", unix.Getuid()),
		"/tmp/.ydotool_socket",
	)
	return paths
}
