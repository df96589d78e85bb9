package db

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NextStamp returns a ULID and the creation time it encodes. Messages and
// reports use it so that (created_at, id) follows insertion order.
//
// Both are taken under one lock, so ordering by (created_at, id) and by id
// alone agree. Time is truncated to microseconds to match DATETIME(6).
func NextStamp() (string, time.Time) {
	entropyMu.Lock()
	defer entropyMu.Unlock()

	now := time.Now().UTC().Truncate(time.Microsecond)
	return ulid.MustNew(ulid.Timestamp(now), entropy).String(), now
}

func (m *Message) BeforeCreate(*gorm.DB) error {
	if m.ID == "" {
		id, at := NextStamp()
		m.ID = id
		if m.CreatedAt.IsZero() {
			m.CreatedAt = at
		}
	}
	return nil
}

func (r *ContentReport) BeforeCreate(*gorm.DB) error {
	if r.ID == "" {
		id, at := NextStamp()
		r.ID = id
		if r.CreatedAt.IsZero() {
			r.CreatedAt = at
		}
	}
	return nil
}
