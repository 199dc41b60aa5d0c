//go:build windows

package secret

// mlock is a no-op on Windows; VirtualLock is not wired here since the
// daemon's primary deployment targets are Unix loopback hosts.
func mlock(_ []byte) bool { return false }

func munlock(_ []byte) {}
