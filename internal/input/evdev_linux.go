//go:build linux

package input

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	devicesPath = "/proc/bus/input/devices"

	// pollTimeoutMs bounds how long a reader waits before rechecking ctx.
	pollTimeoutMs = 200

	eventsPerRead = 64
)

// LinuxMonitor reads keyboards and pointers from /dev/input/event*.
type LinuxMonitor struct {
	opts Options

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	fds     []int

	edges EdgeTracker
	pos   position
}

func newPlatformMonitor(opts Options) Monitor {
	return &LinuxMonitor{opts: opts}
}

type inputDevice struct {
	path     string
	name     string
	keyboard bool
	pointer  bool
}

func findDevices() ([]inputDevice, error) {
	f, err := os.Open(devicesPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	infos, err := parseDevices(f)
	if err != nil {
		return nil, err
	}

	var devices []inputDevice
	for _, d := range infos {
		node := d.EventNode()
		if node == "" {
			continue
		}
		kbd, ptr := d.IsKeyboard(), d.IsPointer()
		if kbd || ptr {
			devices = append(devices, inputDevice{path: node, name: d.Name, keyboard: kbd, pointer: ptr})
		}
	}
	return devices, nil
}

// Available checks that at least one keyboard can be read.
func (l *LinuxMonitor) Available() (bool, string) {
	devices, err := findDevices()
	if err != nil {
		return false, fmt.Sprintf("cannot list input devices: %v", err)
	}
	for _, d := range devices {
		if !d.keyboard {
			continue
		}
		fd, err := unix.Open(d.path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
		if err == nil {
			unix.Close(fd)
			return true, fmt.Sprintf("found keyboard %q at %s", d.name, d.path)
		}
	}
	return false, "cannot read keyboard devices (need to be in 'input' group or run as root)"
}

// Start opens every readable keyboard and pointer and starts a reader per device.
func (l *LinuxMonitor) Start(ctx context.Context, sink Sink) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running {
		return ErrAlreadyRunning
	}

	devices, err := findDevices()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotAvailable, err)
	}

	type opened struct {
		fd  int
		dev inputDevice
	}
	var open []opened
	var errs []error
	haveKeyboard := false
	for _, d := range devices {
		fd, err := unix.Open(d.path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d.path, err))
			continue
		}
		open = append(open, opened{fd: fd, dev: d})
		haveKeyboard = haveKeyboard || d.keyboard
	}
	if !haveKeyboard {
		for _, o := range open {
			unix.Close(o.fd)
		}
		return fmt.Errorf("%w: no readable keyboard: %v", ErrNotAvailable, errors.Join(errs...))
	}

	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.running = true
	l.edges.Reset()
	l.fds = l.fds[:0]

	for _, o := range open {
		l.fds = append(l.fds, o.fd)
		l.opts.Logger.Debug("reading input device", "path", o.dev.path, "name", o.dev.name,
			"keyboard", o.dev.keyboard, "pointer", o.dev.pointer)
		l.wg.Add(1)
		go l.readLoop(ctx, o.fd, sink)
	}
	for _, err := range errs {
		l.opts.Logger.Warn("skipping input device", "error", err)
	}
	return nil
}

func (l *LinuxMonitor) readLoop(ctx context.Context, fd int, sink Sink) {
	defer l.wg.Done()
	defer l.opts.Crash.RecoverGoroutine()

	size := int(unsafe.Sizeof(unix.Timeval{})) + 8
	buf := make([]byte, size*eventsPerRead)
	var ptr pointerState
	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}

	for ctx.Err() == nil {
		n, err := unix.Poll(fds, pollTimeoutMs)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			l.opts.Logger.Warn("poll input device", "error", err)
			return
		}
		if n == 0 {
			continue
		}
		if fds[0].Revents&(unix.POLLHUP|unix.POLLERR|unix.POLLNVAL) != 0 {
			l.opts.Logger.Info("input device went away")
			return
		}

		n, err = unix.Read(fd, buf)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
				continue
			}
			l.opts.Logger.Warn("read input device", "error", err)
			return
		}
		for off := 0; off+size <= n; off += size {
			ev, ok := decodeEvent(buf[off : off+size])
			if ok {
				ptr.translate(ev, &l.edges, &l.pos, l.opts.Gate, sink)
			}
		}
	}
}

// Stop cancels the readers, waits for them and closes the devices.
func (l *LinuxMonitor) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.running {
		return nil
	}
	l.cancel()
	l.wg.Wait()

	var errs []error
	for _, fd := range l.fds {
		if err := unix.Close(fd); err != nil {
			errs = append(errs, err)
		}
	}
	l.fds = nil
	l.running = false
	return errors.Join(errs...)
}
