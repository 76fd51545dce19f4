// Package notify tells the user about problems the process cannot fix by
// itself, such as failing to install input hooks.
package notify

import (
	"fmt"
	"log/slog"
)

// Level is the severity of a notice.
type Level int

const (
	Info Level = iota
	Warning
	Error
)

func (l Level) String() string {
	switch l {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// urgency maps a level onto the freedesktop notification urgency byte.
func (l Level) urgency() byte {
	switch l {
	case Info:
		return 0
	case Error:
		return 2
	default:
		return 1
	}
}

// Notifier shows a notice. Implementations may block until the user has
// acknowledged it.
type Notifier interface {
	Notify(level Level, title, body string) error
}

// New returns the notifier for this platform. Every notice is also logged.
func New(appName string, logger *slog.Logger) Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &logged{
		next:   newPlatform(appName, logger),
		logger: logger.With("component", "notify"),
	}
}

type logged struct {
	next   Notifier
	logger *slog.Logger
}

func (n *logged) Notify(level Level, title, body string) error {
	n.logger.Info("user notice", "level", level, "title", title, "body", body)
	if n.next == nil {
		return nil
	}
	if err := n.next.Notify(level, title, body); err != nil {
		n.logger.Warn("could not show notice", "error", err)
		return err
	}
	return nil
}
