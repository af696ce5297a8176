// Package docstore provides the document store the core components run on:
// point reads, prefix scans, optimistic multi-document transactions with
// conflict detection and bounded rerun, and atomic idempotent set updates.
//
// Two implementations ship: an in-memory store used by tests and local
// development, and a PostgreSQL store that keeps documents in a single jsonb
// table and relies on SERIALIZABLE isolation for conflict detection.
package docstore

import (
	"context"
	"errors"
)

// Sentinel errors shared by all store implementations.
var (
	// ErrNotFound is returned when a requested document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrConflictExhausted is returned when a transaction kept colliding
	// with concurrent writers until the rerun budget ran out. Callers may
	// retry the whole operation.
	ErrConflictExhausted = errors.New("transaction conflict: retries exhausted")

	// ErrUnavailable is returned when the store itself could not be
	// reached. Transient; callers may retry.
	ErrUnavailable = errors.New("document store unavailable")

	// ErrReadAfterWrite is returned when a transaction function reads a
	// document after it has already staged a write. All reads must happen
	// before the first write so the conflict check covers every read.
	ErrReadAfterWrite = errors.New("transactional read after write")
)

// Doc is a raw document returned by a prefix scan.
type Doc struct {
	Path string
	Body []byte
}

// Tx is the transactional context handed to a transaction function. Reads
// must precede writes. Writes are staged and only become visible if the
// whole transaction commits.
type Tx interface {
	// Get reads a document into dst, returning ErrNotFound if absent.
	// The read (including a not-found outcome) joins the conflict set.
	Get(path string, dst any) error

	// Create stages a new document. The commit fails and the transaction
	// reruns if the path was created concurrently.
	Create(path string, v any) error

	// Update stages a replacement for an existing document.
	Update(path string, v any) error
}

// Store is the persistence contract for the registration ledger, the
// engagement toggle and the analytics aggregator.
type Store interface {
	// Get reads the document at path into dst.
	Get(ctx context.Context, path string, dst any) error

	// List returns the documents directly under the collection prefix,
	// excluding documents in sub-collections. The scan is a best-effort
	// snapshot with no ordering guarantee.
	List(ctx context.Context, prefix string) ([]Doc, error)

	// RunTransaction executes fn against a fresh Tx. If any document fn
	// read or wrote was modified concurrently between the first read and
	// the commit attempt, the staged writes are discarded and fn is rerun
	// from scratch, up to the configured attempt budget. Errors returned
	// by fn abort immediately, stage nothing, and propagate verbatim.
	RunTransaction(ctx context.Context, fn func(tx Tx) error) error

	// Delete removes the document at path along with any documents in its
	// sub-collections. Deleting an absent document returns ErrNotFound.
	Delete(ctx context.Context, path string) error

	// AddMember atomically adds member to the set stored in the named
	// field of the document at path. Adding an existing member is a no-op.
	AddMember(ctx context.Context, path, field, member string) error

	// RemoveMember atomically removes member from the set stored in the
	// named field. Removing an absent member is a no-op.
	RemoveMember(ctx context.Context, path, field, member string) error
}

// defaultMaxAttempts bounds transaction reruns when no option overrides it.
const defaultMaxAttempts = 5

type options struct {
	maxAttempts int
	onRerun     func()
}

// Option configures a store implementation.
type Option func(*options)

// WithMaxAttempts sets how many times a transaction function may run before
// the store gives up with ErrConflictExhausted. Values below 2 are raised to
// 2 so at least one rerun is always visible to callers.
func WithMaxAttempts(n int) Option {
	return func(o *options) {
		if n < 2 {
			n = 2
		}
		o.maxAttempts = n
	}
}

// WithRerunHook registers a callback invoked once per transaction rerun,
// used to feed the rerun counter metric.
func WithRerunHook(fn func()) Option {
	return func(o *options) {
		o.onRerun = fn
	}
}

func buildOptions(opts []Option) options {
	o := options{maxAttempts: defaultMaxAttempts}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
