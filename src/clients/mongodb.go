package clients

import (
	"context"
	"time"

	"konung-miniapp-svc/src/internal/config"
	"konung-miniapp-svc/src/internal/models"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoDB struct {
	Client   *mongo.Client
	Database *mongo.Database
}

func NewMongoDB(cfg *config.Configuration) (*MongoDB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.Timeout)*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Database.Url))
	if err != nil {
		log.WithError(err).Errorf("Failed to connect to MongoDB at %s", cfg.Database.Url)
		return nil, models.ErrDatabaseConnection
	}

	if err := client.Ping(ctx, nil); err != nil {
		log.WithError(err).Error("Failed to ping MongoDB")
		return nil, models.ErrDatabaseConnection
	}

	log.Infof("Connected to MongoDB database %s", cfg.Database.DbName)

	return &MongoDB{
		Client:   client,
		Database: client.Database(cfg.Database.DbName),
	}, nil
}

func (m *MongoDB) Close(ctx context.Context) error {
	if err := m.Client.Disconnect(ctx); err != nil {
		log.WithError(err).Error("Failed to close MongoDB connection")
		return err
	}
	log.Info("MongoDB connection closed")
	return nil
}
