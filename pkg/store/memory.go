package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	perrors "github.com/matzehuels/pictoswap/pkg/errors"
)

type memLetter struct {
	author     string
	payload    []byte
	deliveries map[string]*memDelivery
}

type memDelivery struct {
	at   time.Time
	read bool
}

// Memory is an in-process Store. It is safe for concurrent use.
type Memory struct {
	mu      sync.Mutex
	letters map[string]*memLetter
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{letters: make(map[string]*memLetter)}
}

func (m *Memory) Create(ctx context.Context, author string, payload []byte, at time.Time) (id string, err error) {
	defer func(start time.Time) { observe(ctx, "memory", "create", start, err) }(time.Now())
	if err := perrors.ValidateIdentifier("user id", author); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	id = uuid.NewString()
	m.letters[id] = &memLetter{
		author:     author,
		payload:    append([]byte(nil), payload...),
		deliveries: map[string]*memDelivery{author: {at: at, read: true}},
	}
	return id, nil
}

func (m *Memory) Send(ctx context.Context, author, id string, recipients []string, at time.Time) (err error) {
	defer func(start time.Time) { observe(ctx, "memory", "send", start, err) }(time.Now())
	if err := validateUsers(author, recipients); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.letters[id]
	if !ok {
		return errNotFound(id)
	}
	if l.author != author {
		return errNotAuthor(id)
	}
	for _, r := range recipients {
		if _, ok := l.deliveries[r]; !ok {
			l.deliveries[r] = &memDelivery{at: at}
		}
	}
	return nil
}

func (m *Memory) Get(ctx context.Context, recipient, id string) (letter *Letter, err error) {
	defer func(start time.Time) { observe(ctx, "memory", "get", start, err) }(time.Now())

	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.letters[id]
	if !ok {
		return nil, errNotFound(id)
	}
	d, ok := l.deliveries[recipient]
	if !ok {
		return nil, errNotRecipient(id)
	}
	letter = &Letter{
		Summary: Summary{ID: id, Author: l.author, At: d.at, Read: d.read, Own: l.author == recipient},
		Payload: append([]byte(nil), l.payload...),
	}
	d.read = true
	return letter, nil
}

func (m *Memory) List(ctx context.Context, recipient string) (out []Summary, err error) {
	defer func(start time.Time) { observe(ctx, "memory", "list", start, err) }(time.Now())

	m.mu.Lock()
	defer m.mu.Unlock()
	out = []Summary{}
	for id, l := range m.letters {
		if d, ok := l.deliveries[recipient]; ok {
			out = append(out, Summary{ID: id, Author: l.author, At: d.at, Read: d.read, Own: l.author == recipient})
		}
	}
	sortSummaries(out)
	return out, nil
}

func (m *Memory) Close() error { return nil }

var _ Store = (*Memory)(nil)
