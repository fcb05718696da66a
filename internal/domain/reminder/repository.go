package reminder

import "context"

// Store persists one kind of record as a whole collection.
type Store[T any] interface {
	Load(ctx context.Context) ([]T, error)
	Save(ctx context.Context, records []T) error
}

// Scheduler registers recurring jobs for rules.
type Scheduler interface {
	Schedule(rule Rule, job func()) (JobHandle, error)
	// Cancel stops future fires. Unknown or zero handles are ignored.
	Cancel(h JobHandle)
}

// Delivery is an immutable snapshot of what a fire sends.
type Delivery struct {
	Target   Target
	Mentions []int64
	Text     string
}

// Notifier delivers text to a chat destination.
type Notifier interface {
	Notify(ctx context.Context, d Delivery) error
}
