package monitor

import (
	"context"
	"time"
)

// GiftEvent is one gift observed on a live stream.
type GiftEvent struct {
	GiftID      string
	GiftName    string
	RepeatCount int
	At          time.Time
}

// EventConn is an open feed of gift events for one target. Next blocks until
// an event arrives or the connection is closed; Close unblocks a pending
// Next.
type EventConn interface {
	Next() (*GiftEvent, error)
	Close() error
}

// EventSource opens connections to the upstream live-stream feed. The core
// treats it as opaque: it either yields gift events or fails.
type EventSource interface {
	Open(ctx context.Context, username string) (EventConn, error)
}
