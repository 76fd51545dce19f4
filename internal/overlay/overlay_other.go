//go:build !windows

package overlay

func newPlatformRenderer(Options) (Renderer, error) {
	return unsupported{}, nil
}

// CursorPos is not available without a windowing backend.
func CursorPos() (Point, error) {
	return Point{}, ErrUnsupported
}
