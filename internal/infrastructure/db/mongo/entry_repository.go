package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/daylog/time-tracker/internal/core/domain"
)

const collectionEntries = "time_entries"

// EntryRepository stores time entries in one collection. A partial unique
// index on user_id over running documents backs the single-running-entry rule.
type EntryRepository struct {
	client *mongo.Client
	col    *mongo.Collection
}

func NewEntryRepository(db *mongo.Database) *EntryRepository {
	return &EntryRepository{client: db.Client(), col: db.Collection(collectionEntries)}
}

type entryDocument struct {
	ID              primitive.ObjectID `bson:"_id"`
	UserID          string             `bson:"user_id"`
	Category        string             `bson:"category"`
	StartTime       time.Time          `bson:"start_time"`
	EndTime         *time.Time         `bson:"end_time"`
	Description     string             `bson:"description"`
	DurationSeconds *int64             `bson:"duration_seconds"`
	Running         bool               `bson:"running"`
}

func (d entryDocument) toDomain() *domain.TimeEntry {
	return &domain.TimeEntry{
		ID:              d.ID.Hex(),
		UserID:          d.UserID,
		Category:        domain.Category(d.Category),
		StartTime:       d.StartTime,
		EndTime:         d.EndTime,
		Description:     d.Description,
		DurationSeconds: d.DurationSeconds,
	}
}

// Append inserts a new entry document and assigns its id.
func (r *EntryRepository) Append(ctx context.Context, e *domain.TimeEntry) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return r.insert(ctx, e)
}

// FindRunning returns the most recently started running entry.
func (r *EntryRepository) FindRunning(ctx context.Context, userID string) (*domain.TimeEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return r.findRunning(ctx, userID)
}

// CloseRunning closes the running entry with a compare-and-set on running=true.
func (r *EntryRepository) CloseRunning(ctx context.Context, userID string, end time.Time) (*domain.TimeEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return r.closeRunning(ctx, userID, end)
}

// SwitchRunning closes the running entry and inserts next in one transaction.
func (r *EntryRepository) SwitchRunning(ctx context.Context, userID string, next *domain.TimeEntry) (*domain.TimeEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	sess, err := r.client.StartSession()
	if err != nil {
		return nil, unavailable("switch running: start session", err)
	}
	defer sess.EndSession(ctx)

	out, err := sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		closed, err := r.closeRunning(sc, userID, next.StartTime)
		if err != nil && !errors.Is(err, domain.ErrNoRunningEntry) {
			return nil, err
		}
		if _, err := r.insert(sc, next); err != nil {
			return nil, err
		}
		return closed, nil
	})
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrEntryConflict),
		errors.Is(err, domain.ErrStoreUnavailable),
		errors.Is(err, domain.ErrInvalidInterval):
		return nil, err
	default:
		return nil, unavailable("switch running: commit", err)
	}

	closed, _ := out.(*domain.TimeEntry)
	return closed, nil
}

// EntriesInRange returns entries with start_time in [from, to), oldest first.
func (r *EntryRepository) EntriesInRange(ctx context.Context, userID string, from, to time.Time) ([]*domain.TimeEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := bson.M{
		"user_id":    userID,
		"start_time": bson.M{"$gte": from, "$lt": to},
	}
	opts := options.Find().SetSort(bson.D{{Key: "start_time", Value: 1}})

	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, unavailable("entries in range", err)
	}
	defer cur.Close(ctx)

	var docs []entryDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, unavailable("entries in range: decode", err)
	}

	out := make([]*domain.TimeEntry, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

// EnsureIndexes creates the indexes the queries above rely on.
func (r *EntryRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "start_time", Value: 1}}},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().
				SetName("one_running_per_user").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"running": true}),
		},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

func (r *EntryRepository) insert(ctx context.Context, e *domain.TimeEntry) (string, error) {
	doc := entryDocument{
		ID:              primitive.NewObjectID(),
		UserID:          e.UserID,
		Category:        string(e.Category),
		StartTime:       e.StartTime,
		EndTime:         e.EndTime,
		Description:     e.Description,
		DurationSeconds: e.DurationSeconds,
		Running:         e.Running(),
	}

	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", domain.ErrEntryConflict
		}
		return "", unavailable("insert entry", err)
	}

	e.ID = doc.ID.Hex()
	return e.ID, nil
}

func (r *EntryRepository) findRunning(ctx context.Context, userID string) (*domain.TimeEntry, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "start_time", Value: -1}})

	var doc entryDocument
	err := r.col.FindOne(ctx, bson.M{"user_id": userID, "running": true}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNoRunningEntry
		}
		return nil, unavailable("find running", err)
	}
	return doc.toDomain(), nil
}

func (r *EntryRepository) closeRunning(ctx context.Context, userID string, end time.Time) (*domain.TimeEntry, error) {
	e, err := r.findRunning(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := e.Close(end); err != nil {
		return nil, err
	}

	oid, err := primitive.ObjectIDFromHex(e.ID)
	if err != nil {
		return nil, unavailable("close running", err)
	}

	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": oid, "running": true},
		bson.M{"$set": bson.M{
			"end_time":         e.EndTime,
			"duration_seconds": e.DurationSeconds,
			"running":          false,
		}},
	)
	if err != nil {
		return nil, unavailable("close running", err)
	}
	if res.MatchedCount == 0 {
		// closed by someone else between the read and the write
		return nil, domain.ErrNoRunningEntry
	}
	return e, nil
}
