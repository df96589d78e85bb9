// Package notify delivers best-effort operator notifications (email).
//
// Delivery itself belongs to an external mailer; this package only hands
// messages off. Callers must treat every error as non-fatal.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oggyb/talenthub/internal/cache"
	"github.com/oggyb/talenthub/internal/config"
)

// Notifier sends an email to a single recipient.
type Notifier interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// Noop drops everything.
type Noop struct{}

func (Noop) SendEmail(context.Context, string, string, string) error { return nil }

// Log writes notifications to the structured log instead of sending them.
type Log struct {
	Logger *slog.Logger
}

func (l Log) SendEmail(_ context.Context, to, subject, body string) error {
	l.Logger.Info("notification", "to", to, "subject", subject, "body_len", len(body))
	return nil
}

// Email is the payload pushed onto the Redis queue.
type Email struct {
	To       string    `json:"to"`
	Subject  string    `json:"subject"`
	Body     string    `json:"body"`
	QueuedAt time.Time `json:"queuedAt"`
}

// RedisQueue pushes JSON encoded emails onto a list drained by the mailer worker.
type RedisQueue struct {
	Cache *cache.RedisCache
	Queue string
}

func (q RedisQueue) SendEmail(ctx context.Context, to, subject, body string) error {
	payload, err := json.Marshal(Email{To: to, Subject: subject, Body: body, QueuedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("encode email: %w", err)
	}
	if err := q.Cache.Push(ctx, q.Queue, payload); err != nil {
		return fmt.Errorf("enqueue email: %w", err)
	}
	return nil
}

// FromConfig picks the implementation named by NOTIFY_DRIVER.
func FromConfig(cfg *config.Config, rc *cache.RedisCache, log *slog.Logger) Notifier {
	switch cfg.Notify.Driver {
	case "redis":
		return RedisQueue{Cache: rc, Queue: cfg.Notify.Queue}
	case "none", "noop":
		return Noop{}
	default:
		return Log{Logger: log}
	}
}

// Broadcast sends the same email to every recipient. It keeps going after a
// failure and returns all errors joined.
func Broadcast(ctx context.Context, n Notifier, recipients []string, subject, body string) error {
	var errs []error
	for _, to := range recipients {
		if err := n.SendEmail(ctx, to, subject, body); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", to, err))
		}
	}
	return errors.Join(errs...)
}

// Recorder keeps every email in memory. Safe for concurrent use.
type Recorder struct {
	mu   sync.Mutex
	sent []Email
	// Err, when set, is returned from every send after recording it.
	Err error
}

func (r *Recorder) SendEmail(_ context.Context, to, subject, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, Email{To: to, Subject: subject, Body: body, QueuedAt: time.Now().UTC()})
	return r.Err
}

// Sent returns a copy of the recorded emails.
func (r *Recorder) Sent() []Email {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Email(nil), r.sent...)
}
