package notify

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeNotifier struct {
	calls []string
	err   error
}

func (f *fakeNotifier) Notify(level Level, title, body string) error {
	f.calls = append(f.calls, level.String()+":"+title+":"+body)
	return f.err
}

func TestLoggedNotifier(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	next := &fakeNotifier{}
	n := &logged{next: next, logger: logger}

	assert.NoError(t, n.Notify(Error, "SpotCursor", "hooks failed"))
	assert.Equal(t, []string{"error:SpotCursor:hooks failed"}, next.calls)
	assert.Contains(t, buf.String(), "user notice")
	assert.Contains(t, buf.String(), "hooks failed")

	next.err = errors.New("no bus")
	assert.ErrorIs(t, n.Notify(Info, "t", "b"), next.err)
	assert.Contains(t, buf.String(), "could not show notice")
}

func TestLoggedWithoutBackend(t *testing.T) {
	n := &logged{logger: slog.Default()}
	assert.NoError(t, n.Notify(Warning, "t", "b"))
}

func TestLevel(t *testing.T) {
	assert.Equal(t, "warning", Warning.String())
	assert.Equal(t, "level(7)", Level(7).String())
	assert.Equal(t, byte(0), Info.urgency())
	assert.Equal(t, byte(1), Warning.urgency())
	assert.Equal(t, byte(2), Error.urgency())
}
