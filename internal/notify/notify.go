// Package notify delivers user-visible failure notices raised while
// searching. Failures are never fatal; they are logged and recorded so a
// client can show them next to the (possibly degraded) results.
package notify

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/usestring/netquery-mcp/pkg/client"
)

// Notifier receives human-readable failure notices.
type Notifier interface {
	Error(title, message string)
}

// Notice is a single recorded notification.
type Notice struct {
	Title   string    `json:"title"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// ErrorMessage derives the message shown to users from err. Store API
// errors contribute their message body; anything else its error string.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}

// Log is a Notifier that writes notices to the default slog logger.
type Log struct{}

// Error logs the notice at warn level.
func (Log) Error(title, message string) {
	slog.Warn(title, slog.String("message", message))
}

// Recorder keeps the most recent notices in a fixed size ring and
// forwards each notice to an optional next Notifier.
type Recorder struct {
	mu     sync.Mutex
	ring   []Notice
	next   int
	full   bool
	now    func() time.Time
	notify Notifier
}

// NewRecorder creates a Recorder holding up to size notices. Notices are
// forwarded to next when it is non-nil.
func NewRecorder(size int, next Notifier) *Recorder {
	if size <= 0 {
		size = 1
	}
	return &Recorder{
		ring:   make([]Notice, size),
		now:    time.Now,
		notify: next,
	}
}

// Error records the notice.
func (r *Recorder) Error(title, message string) {
	r.mu.Lock()
	r.ring[r.next] = Notice{Title: title, Message: message, Time: r.now()}
	r.next = (r.next + 1) % len(r.ring)
	if r.next == 0 {
		r.full = true
	}
	r.mu.Unlock()

	if r.notify != nil {
		r.notify.Error(title, message)
	}
}

// Recent returns recorded notices, oldest first.
func (r *Recorder) Recent() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.full {
		out := make([]Notice, r.next)
		copy(out, r.ring[:r.next])
		return out
	}
	out := make([]Notice, 0, len(r.ring))
	out = append(out, r.ring[r.next:]...)
	out = append(out, r.ring[:r.next]...)
	return out
}

// Since returns notices recorded at or after t, oldest first.
func (r *Recorder) Since(t time.Time) []Notice {
	var out []Notice
	for _, n := range r.Recent() {
		if !n.Time.Before(t) {
			out = append(out, n)
		}
	}
	return out
}
