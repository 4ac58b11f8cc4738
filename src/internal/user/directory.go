package user

import (
	"context"
	"time"

	"konung-miniapp-svc/src/clients"
	"konung-miniapp-svc/src/internal/models"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	regexKey   = "$regex"
	optionsKey = "$options"
)

// Directory is the durable MongoDB mirror of registered users, backing the
// admin listing and stats endpoints. The keyed store stays authoritative for
// the auth path; directory writes are best-effort.
type Directory interface {
	Upsert(ctx context.Context, u *User) error
	ListUsers(ctx context.Context, req *ListUsersRequest) ([]*User, int64, error)
	GetUserStats(ctx context.Context) (*Stats, error)
}

type directory struct {
	collection *mongo.Collection
}

func NewUserDirectory(db *clients.MongoDB, collectionName string) Directory {
	collection := db.Database.Collection(collectionName)
	return &directory{collection: collection}
}

func (d *directory) Upsert(ctx context.Context, u *User) error {
	filter := bson.M{"telegram_id": u.ID}
	update := bson.M{"$set": u}
	opts := options.Update().SetUpsert(true)

	if _, err := d.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		logrus.WithError(err).WithField("user_id", u.ID).Error("Failed to upsert user into directory")
		return models.ErrDatabaseInsert
	}

	return nil
}

func (d *directory) ListUsers(ctx context.Context, req *ListUsersRequest) ([]*User, int64, error) {
	filter := bson.M{}
	if req.Search != "" {
		filter["$or"] = []bson.M{
			{"name": bson.M{regexKey: req.Search, optionsKey: "i"}},
			{"username": bson.M{regexKey: req.Search, optionsKey: "i"}},
			{"first_name": bson.M{regexKey: req.Search, optionsKey: "i"}},
			{"last_name": bson.M{regexKey: req.Search, optionsKey: "i"}},
		}
	}

	totalCount, err := d.collection.CountDocuments(ctx, filter)
	if err != nil {
		logrus.WithError(err).Error("Failed to count users")
		return nil, 0, models.ErrDatabaseQuery
	}

	skip := (req.Page - 1) * req.Limit

	opts := options.Find().
		SetLimit(int64(req.Limit)).
		SetSkip(int64(skip)).
		SetSort(bson.M{"registered_at": -1})

	cursor, err := d.collection.Find(ctx, filter, opts)
	if err != nil {
		logrus.WithError(err).Error("Failed to find users")
		return nil, 0, models.ErrDatabaseQuery
	}
	defer cursor.Close(ctx)

	var users []*User
	for cursor.Next(ctx) {
		var u User
		if err := cursor.Decode(&u); err != nil {
			logrus.WithError(err).Error("Failed to decode user")
			continue
		}
		users = append(users, &u)
	}

	if err := cursor.Err(); err != nil {
		logrus.WithError(err).Error("Cursor error")
		return nil, 0, models.ErrDatabaseQuery
	}

	logrus.WithFields(logrus.Fields{
		"count": len(users),
		"total": totalCount,
		"page":  req.Page,
		"limit": req.Limit,
	}).Debug("Retrieved users successfully")

	return users, totalCount, nil
}

func (d *directory) GetUserStats(ctx context.Context) (*Stats, error) {
	total, err := d.countUsers(ctx, bson.M{})
	if err != nil {
		return nil, err
	}

	newThisMonth, err := d.countNewUsersThisMonth(ctx)
	if err != nil {
		return nil, err
	}

	withUsername, err := d.countUsers(ctx, bson.M{"username": bson.M{"$exists": true, "$ne": ""}})
	if err != nil {
		return nil, err
	}

	return &Stats{
		Total:        total,
		NewThisMonth: newThisMonth,
		WithUsername: withUsername,
	}, nil
}

func (d *directory) countUsers(ctx context.Context, filter bson.M) (int64, error) {
	count, err := d.collection.CountDocuments(ctx, filter)
	if err != nil {
		logrus.WithError(err).Error("Failed to count users")
		return 0, models.ErrDatabaseQuery
	}
	return count, nil
}

func (d *directory) countNewUsersThisMonth(ctx context.Context) (int64, error) {
	now := time.Now()
	startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	filter := bson.M{"registered_at": bson.M{"$gte": startOfMonth}}
	return d.countUsers(ctx, filter)
}
