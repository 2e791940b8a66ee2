package store

import (
	"context"

	"github.com/joeyportfolio/portfolio/types"
)

// FeedbackTable is the logical name of the table every adapter operates on.
const FeedbackTable = "feedback"

// RecordClient is the hosted record store the feedback subsystem talks to.
// Every error returned by an implementation is a *Error carrying a Kind.
type RecordClient interface {
	// Probe performs a bounded read of at most limit rows. It fails with
	// KindNotFound when the feedback table does not exist.
	Probe(ctx context.Context, limit int) error
	// CreateSchema creates the feedback table, its constraints and its access
	// policies. It is safe to call when the table already exists.
	CreateSchema(ctx context.Context) error
	// Insert stores a row and returns it with its generated id and created_at.
	Insert(ctx context.Context, fb types.FeedbackCreate) (types.Feedback, error)
	// List returns all rows ordered by created_at, newest first.
	List(ctx context.Context) ([]types.Feedback, error)
	// Subscribe delivers rows inserted by any client from now on.
	Subscribe(ctx context.Context) (Subscription, error)
	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error
	Close() error
}

// Subscription is a live stream of inserted feedback rows.
type Subscription interface {
	// Events is closed once the subscription has been torn down.
	Events() <-chan types.Feedback
	// Close stops delivery. No row is sent on Events after Close returns.
	Close() error
}
