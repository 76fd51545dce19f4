//go:build !windows && !linux

package input

import "context"

// StubMonitor is used on platforms without global input support.
type StubMonitor struct{}

func newPlatformMonitor(Options) Monitor {
	return StubMonitor{}
}

// Available returns false on unsupported platforms.
func (StubMonitor) Available() (bool, string) {
	return false, "global input monitoring not implemented for this platform"
}

// Start returns ErrNotAvailable.
func (StubMonitor) Start(context.Context, Sink) error {
	return ErrNotAvailable
}

// Stop is a no-op.
func (StubMonitor) Stop() error {
	return nil
}
