// Package store persists letters and who may read them.
//
// A letter is an encoded document plus its author. Delivery is tracked per
// recipient: the author is delivered their own letter on creation (already
// read), and [Store.Send] delivers it to further users. Every recipient has
// an independent read flag and arrival time, and [Store.List] orders a
// user's letters by arrival, most recent first.
//
// Three backends share the same contract: [Memory] for tests and local use,
// [SQLite] for a single server, and [Mongo] for deployments with several API
// instances.
package store

import (
	"context"
	"sort"
	"time"

	perrors "github.com/matzehuels/pictoswap/pkg/errors"
	"github.com/matzehuels/pictoswap/pkg/observability"
)

// Store is the letter persistence contract.
type Store interface {
	// Create stores payload as a new letter by author and returns its id.
	Create(ctx context.Context, author string, payload []byte, at time.Time) (string, error)

	// Send delivers letter id to recipients. Only the author may send;
	// users who already received the letter are skipped.
	Send(ctx context.Context, author, id string, recipients []string, at time.Time) error

	// Get returns letter id as seen by recipient and marks it read. The
	// returned Read flag is the state before this call.
	Get(ctx context.Context, recipient, id string) (*Letter, error)

	// List returns the letters delivered to recipient, most recent first.
	List(ctx context.Context, recipient string) ([]Summary, error)

	Close() error
}

// Summary describes one delivery of a letter.
type Summary struct {
	ID     string    `json:"letter_id"`
	Author string    `json:"from"`
	At     time.Time `json:"timestamp"`
	Read   bool      `json:"read"`
	Own    bool      `json:"own"`
}

// Letter is a delivered letter with its content.
type Letter struct {
	Summary
	Payload []byte `json:"-"`
}

func errNotFound(id string) error {
	return perrors.New(perrors.ErrCodeNotFound, "no such letter: %s", id)
}

func errNotRecipient(id string) error {
	return perrors.New(perrors.ErrCodeForbidden, "letter %s was not sent to you", id)
}

func errNotAuthor(id string) error {
	return perrors.New(perrors.ErrCodeForbidden, "letter %s is not yours to send", id)
}

func validateUsers(author string, recipients []string) error {
	if err := perrors.ValidateIdentifier("user id", author); err != nil {
		return err
	}
	for _, r := range recipients {
		if err := perrors.ValidateIdentifier("recipient", r); err != nil {
			return err
		}
	}
	return nil
}

// sortSummaries orders by arrival, newest first. Ties keep a stable order
// by id so listings do not shuffle between calls.
func sortSummaries(s []Summary) {
	sort.Slice(s, func(i, j int) bool {
		if !s[i].At.Equal(s[j].At) {
			return s[i].At.After(s[j].At)
		}
		return s[i].ID < s[j].ID
	})
}

// observe reports one store operation to the registered hooks.
func observe(ctx context.Context, backend, op string, start time.Time, err error) {
	observability.Store().OnStoreOp(ctx, backend, op, time.Since(start), err)
}
