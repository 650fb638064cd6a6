//go:build !windows

package util

// IsRunFromGUI reports whether the process was started from a file
// manager rather than a shell. Only Windows can tell.
func IsRunFromGUI() bool {
	return false
}
