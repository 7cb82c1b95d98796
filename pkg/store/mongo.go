package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	perrors "github.com/matzehuels/pictoswap/pkg/errors"
)

// Collection names.
const (
	mongoLetters    = "letters"
	mongoDeliveries = "letter_recipients"
)

type mongoLetter struct {
	ID        string    `bson:"_id"`
	Author    string    `bson:"author"`
	CreatedAt time.Time `bson:"created_at"`
	Content   []byte    `bson:"content"`
}

type mongoDelivery struct {
	LetterID   string    `bson:"letter_id"`
	UserID     string    `bson:"user_id"`
	Read       bool      `bson:"read"`
	ReceivedAt time.Time `bson:"received_at"`
}

// Mongo is a Store backed by MongoDB.
type Mongo struct {
	client     *mongo.Client
	letters    *mongo.Collection
	deliveries *mongo.Collection
	ownsClient bool
	newID      func() string
}

// NewMongo connects to uri and uses database db.
func NewMongo(ctx context.Context, uri, db string) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	m, err := NewMongoFromClient(ctx, client, db)
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	m.ownsClient = true
	return m, nil
}

// NewMongoFromClient uses an existing client. Close leaves the client
// connected.
func NewMongoFromClient(ctx context.Context, client *mongo.Client, db string) (*Mongo, error) {
	database := client.Database(db)
	m := &Mongo{
		client:     client,
		letters:    database.Collection(mongoLetters),
		deliveries: database.Collection(mongoDeliveries),
		newID:      uuid.NewString,
	}
	_, err := m.deliveries.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "letter_id", Value: 1}, {Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "received_at", Value: -1}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create indexes: %w", err)
	}
	return m, nil
}

func (m *Mongo) Create(ctx context.Context, author string, payload []byte, at time.Time) (id string, err error) {
	defer func(start time.Time) { observe(ctx, "mongo", "create", start, err) }(time.Now())
	if err := perrors.ValidateIdentifier("user id", author); err != nil {
		return "", err
	}

	id = m.newID()
	at = at.UTC().Truncate(time.Millisecond)
	if _, err := m.letters.InsertOne(ctx, mongoLetter{ID: id, Author: author, CreatedAt: at, Content: payload}); err != nil {
		return "", fmt.Errorf("insert letter: %w", err)
	}
	if _, err := m.deliveries.InsertOne(ctx, mongoDelivery{LetterID: id, UserID: author, Read: true, ReceivedAt: at}); err != nil {
		// A letter without its author delivery is unreachable.
		if _, derr := m.letters.DeleteOne(context.WithoutCancel(ctx), bson.M{"_id": id}); derr != nil {
			return "", fmt.Errorf("insert author delivery: %w (cleanup: %v)", err, derr)
		}
		return "", fmt.Errorf("insert author delivery: %w", err)
	}
	return id, nil
}

func (m *Mongo) author(ctx context.Context, id string) (*mongoLetter, error) {
	var l mongoLetter
	err := m.letters.FindOne(ctx, bson.M{"_id": id}).Decode(&l)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("load letter: %w", err)
	}
	return &l, nil
}

func (m *Mongo) Send(ctx context.Context, author, id string, recipients []string, at time.Time) (err error) {
	defer func(start time.Time) { observe(ctx, "mongo", "send", start, err) }(time.Now())
	if err := validateUsers(author, recipients); err != nil {
		return err
	}

	l, err := m.author(ctx, id)
	if err != nil {
		return err
	}
	if l.Author != author {
		return errNotAuthor(id)
	}
	at = at.UTC().Truncate(time.Millisecond)
	for _, r := range recipients {
		_, err := m.deliveries.UpdateOne(ctx,
			bson.M{"letter_id": id, "user_id": r},
			bson.M{"$setOnInsert": bson.M{"read": false, "received_at": at}},
			options.Update().SetUpsert(true),
		)
		if err != nil && !mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("deliver to %s: %w", r, err)
		}
	}
	return nil
}

func (m *Mongo) Get(ctx context.Context, recipient, id string) (letter *Letter, err error) {
	defer func(start time.Time) { observe(ctx, "mongo", "get", start, err) }(time.Now())

	l, err := m.author(ctx, id)
	if err != nil {
		return nil, err
	}
	var d mongoDelivery
	err = m.deliveries.FindOneAndUpdate(ctx,
		bson.M{"letter_id": id, "user_id": recipient},
		bson.M{"$set": bson.M{"read": true}},
		options.FindOneAndUpdate().SetReturnDocument(options.Before),
	).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errNotRecipient(id)
	}
	if err != nil {
		return nil, fmt.Errorf("mark read: %w", err)
	}
	return &Letter{
		Summary: Summary{ID: id, Author: l.Author, At: d.ReceivedAt.UTC(), Read: d.Read, Own: l.Author == recipient},
		Payload: l.Content,
	}, nil
}

func (m *Mongo) List(ctx context.Context, recipient string) (out []Summary, err error) {
	defer func(start time.Time) { observe(ctx, "mongo", "list", start, err) }(time.Now())

	cur, err := m.deliveries.Find(ctx,
		bson.M{"user_id": recipient},
		options.Find().SetSort(bson.D{{Key: "received_at", Value: -1}, {Key: "letter_id", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	var deliveries []mongoDelivery
	if err := cur.All(ctx, &deliveries); err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}

	ids := make([]string, len(deliveries))
	for i, d := range deliveries {
		ids[i] = d.LetterID
	}
	authors := make(map[string]string, len(ids))
	if len(ids) > 0 {
		cur, err := m.letters.Find(ctx,
			bson.M{"_id": bson.M{"$in": ids}},
			options.Find().SetProjection(bson.M{"author": 1}),
		)
		if err != nil {
			return nil, fmt.Errorf("load authors: %w", err)
		}
		var letters []mongoLetter
		if err := cur.All(ctx, &letters); err != nil {
			return nil, fmt.Errorf("load authors: %w", err)
		}
		for _, l := range letters {
			authors[l.ID] = l.Author
		}
	}

	out = make([]Summary, 0, len(deliveries))
	for _, d := range deliveries {
		author, ok := authors[d.LetterID]
		if !ok {
			continue
		}
		out = append(out, Summary{
			ID:     d.LetterID,
			Author: author,
			At:     d.ReceivedAt.UTC(),
			Read:   d.Read,
			Own:    author == recipient,
		})
	}
	return out, nil
}

// Close disconnects the client if NewMongo created it.
func (m *Mongo) Close() error {
	if !m.ownsClient {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

var _ Store = (*Mongo)(nil)
