package store

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"

	perrors "github.com/matzehuels/pictoswap/pkg/errors"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

const mongoURIEnv = "PICTOSWAP_TEST_MONGO_URI"

// openTestMongo connects to the server named by PICTOSWAP_TEST_MONGO_URI
// using a throwaway database, or skips the test.
func openTestMongo(t *testing.T) *Mongo {
	t.Helper()
	uri := os.Getenv(mongoURIEnv)
	if uri == "" {
		t.Skipf("%s not set", mongoURIEnv)
	}
	ctx := context.Background()
	db := "pictoswap_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	m, err := NewMongo(ctx, uri, db)
	if err != nil {
		t.Fatalf("NewMongo: %v", err)
	}
	t.Cleanup(func() { _ = m.client.Database(db).Drop(context.Background()) })
	return m
}

// stores returns every backend available in this environment. MongoDB is
// only exercised when PICTOSWAP_TEST_MONGO_URI points at a server.
func stores(t *testing.T) map[string]Store {
	t.Helper()
	ctx := context.Background()
	out := map[string]Store{"memory": NewMemory()}

	sqlite, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "db", "letters.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	out["sqlite"] = sqlite

	if os.Getenv(mongoURIEnv) != "" {
		out["mongo"] = openTestMongo(t)
	}

	for _, s := range out {
		t.Cleanup(func() { s.Close() })
	}
	return out
}

func TestCreateDeliversToAuthor(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			id, err := s.Create(ctx, "alice", []byte(`{"pages":[]}`), t0)
			if err != nil {
				t.Fatal(err)
			}
			if _, err := uuid.Parse(id); err != nil {
				t.Errorf("id %q is not a uuid: %v", id, err)
			}

			list, err := s.List(ctx, "alice")
			if err != nil {
				t.Fatal(err)
			}
			if len(list) != 1 {
				t.Fatalf("List = %v, want one letter", list)
			}
			got := list[0]
			if got.ID != id || got.Author != "alice" || !got.Read || !got.Own || !got.At.Equal(t0) {
				t.Errorf("List[0] = %+v, want own read letter %s at %v", got, id, t0)
			}
		})
	}
}

func TestSendAndRead(t *testing.T) {
	ctx := context.Background()
	payload := []byte(`{"background":"green-letter.png"}`)
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			id, err := s.Create(ctx, "alice", payload, t0)
			if err != nil {
				t.Fatal(err)
			}
			sent := t0.Add(time.Hour)
			if err := s.Send(ctx, "alice", id, []string{"bob", "carol", "bob", "alice"}, sent); err != nil {
				t.Fatal(err)
			}
			// A second send is ignored for users who already have the letter.
			if err := s.Send(ctx, "alice", id, []string{"bob"}, sent.Add(time.Hour)); err != nil {
				t.Fatal(err)
			}

			list, err := s.List(ctx, "bob")
			if err != nil {
				t.Fatal(err)
			}
			if len(list) != 1 {
				t.Fatalf("List(bob) = %v, want one letter", list)
			}
			if list[0].Read || list[0].Own || !list[0].At.Equal(sent) {
				t.Errorf("List(bob)[0] = %+v, want unread foreign letter at %v", list[0], sent)
			}

			letter, err := s.Get(ctx, "bob", id)
			if err != nil {
				t.Fatal(err)
			}
			if letter.Read {
				t.Error("first Get reported the letter as already read")
			}
			if letter.Author != "alice" || letter.Own {
				t.Errorf("Get = %+v, want alice's letter", letter.Summary)
			}
			if !bytes.Equal(letter.Payload, payload) {
				t.Errorf("Payload = %s, want %s", letter.Payload, payload)
			}

			again, err := s.Get(ctx, "bob", id)
			if err != nil {
				t.Fatal(err)
			}
			if !again.Read {
				t.Error("second Get reported the letter as unread")
			}

			author, err := s.List(ctx, "alice")
			if err != nil {
				t.Fatal(err)
			}
			if len(author) != 1 || !author[0].At.Equal(t0) {
				t.Errorf("List(alice) = %v, want the original delivery only", author)
			}
		})
	}
}

func TestAccessErrors(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			id, err := s.Create(ctx, "alice", []byte("{}"), t0)
			if err != nil {
				t.Fatal(err)
			}
			tests := []struct {
				name string
				call func() error
				want perrors.Code
			}{
				{"send by stranger", func() error { return s.Send(ctx, "mallory", id, []string{"mallory"}, t0) }, perrors.ErrCodeForbidden},
				{"send unknown", func() error { return s.Send(ctx, "alice", "missing", []string{"bob"}, t0) }, perrors.ErrCodeNotFound},
				{"send bad recipient", func() error { return s.Send(ctx, "alice", id, []string{"../x"}, t0) }, perrors.ErrCodeInvalidInput},
				{"get by stranger", func() error { _, err := s.Get(ctx, "mallory", id); return err }, perrors.ErrCodeForbidden},
				{"get unknown", func() error { _, err := s.Get(ctx, "alice", "missing"); return err }, perrors.ErrCodeNotFound},
				{"create anonymous", func() error { _, err := s.Create(ctx, "", nil, t0); return err }, perrors.ErrCodeInvalidInput},
			}
			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					if err := tt.call(); !perrors.Is(err, tt.want) {
						t.Errorf("error = %v, want %s", err, tt.want)
					}
				})
			}

			list, err := s.List(ctx, "mallory")
			if err != nil {
				t.Fatal(err)
			}
			if list == nil || len(list) != 0 {
				t.Errorf("List(mallory) = %#v, want empty slice", list)
			}
		})
	}
}

func TestListMostRecentFirst(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			var ids []string
			for i := 0; i < 3; i++ {
				id, err := s.Create(ctx, "alice", []byte("{}"), t0.Add(time.Duration(i)*time.Minute))
				if err != nil {
					t.Fatal(err)
				}
				ids = append(ids, id)
			}
			// bob receives the oldest letter last.
			for i, id := range []string{ids[1], ids[2], ids[0]} {
				if err := s.Send(ctx, "alice", id, []string{"bob"}, t0.Add(time.Duration(i+10)*time.Minute)); err != nil {
					t.Fatal(err)
				}
			}

			tests := []struct {
				user string
				want []string
			}{
				{"alice", []string{ids[2], ids[1], ids[0]}},
				{"bob", []string{ids[0], ids[2], ids[1]}},
			}
			for _, tt := range tests {
				list, err := s.List(ctx, tt.user)
				if err != nil {
					t.Fatal(err)
				}
				if len(list) != len(tt.want) {
					t.Fatalf("List(%s) has %d letters, want %d", tt.user, len(list), len(tt.want))
				}
				for i, id := range tt.want {
					if list[i].ID != id {
						t.Errorf("List(%s)[%d] = %s, want %s", tt.user, i, list[i].ID, id)
					}
				}
			}
		})
	}
}

func TestSQLitePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "letters.db")

	s, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	id, err := s.Create(ctx, "alice", []byte("{}"), t0)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = OpenSQLite(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	letter, err := s.Get(ctx, "alice", id)
	if err != nil {
		t.Fatal(err)
	}
	if letter.ID != id || !letter.At.Equal(t0) {
		t.Errorf("Get after reopen = %+v", letter.Summary)
	}
}

func TestSQLiteSchemaMismatch(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "letters.db")

	s, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.db.ExecContext(ctx, "UPDATE schema_version SET version = ?", schemaVersion+1); err != nil {
		t.Fatal(err)
	}
	s.Close()

	if _, err := OpenSQLite(ctx, path); !errors.Is(err, ErrSchemaMismatch) {
		t.Errorf("OpenSQLite error = %v, want ErrSchemaMismatch", err)
	}
}

func TestIsSQLiteBusy(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("database is locked"), true},
		{errors.New("SQLITE_BUSY: try again"), true},
		{errors.New("no such table"), false},
	}
	for _, tt := range tests {
		if got := isSQLiteBusy(tt.err); got != tt.want {
			t.Errorf("isSQLiteBusy(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestMongoCreateRemovesLetterWhenDeliveryFails(t *testing.T) {
	ctx := context.Background()
	m := openTestMongo(t)
	defer m.Close()

	const id = "0b7c3c55-8a7e-4d9f-9d8e-1f5a0c2b6e41"
	m.newID = func() string { return id }
	// Occupy the author's delivery slot so the second insert hits the
	// unique index.
	if _, err := m.deliveries.InsertOne(ctx, mongoDelivery{LetterID: id, UserID: "alice", ReceivedAt: t0}); err != nil {
		t.Fatal(err)
	}

	if _, err := m.Create(ctx, "alice", []byte(`{}`), t0); err == nil {
		t.Fatal("Create succeeded despite a conflicting delivery")
	}
	n, err := m.letters.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("letters with id %s = %d, want 0", id, n)
	}
}
