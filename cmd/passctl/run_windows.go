//go:build windows

package main

import "os"

// signalsToNotify returns the signals forwarded to the child process.
// Windows only delivers os.Interrupt (Ctrl+C).
func signalsToNotify() []os.Signal {
	return []os.Signal{os.Interrupt}
}

// terminateSignal returns the signal sent for graceful termination. Windows
// has no SIGTERM equivalent, so the process is killed.
func terminateSignal() os.Signal {
	return os.Kill
}

// disableCoreDumps is a no-op on Windows, which routes crash dumps through
// Windows Error Reporting rather than RLIMIT_CORE.
func disableCoreDumps() error {
	return nil
}
