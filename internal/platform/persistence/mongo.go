package persistence

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/securebank-ledger/internal/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoDB holds the client backing the report run history
type MongoDB struct {
	client *mongo.Client
	db     *mongo.Database
	logger *slog.Logger
}

func mongoClientOptions(cfg *config.MongoDBConfig) (*options.ClientOptions, error) {
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(cfg.MaxPoolSize).
		SetMinPoolSize(cfg.MinPoolSize).
		SetMaxConnIdleTime(cfg.MaxConnIdleTime).
		SetTimeout(cfg.Timeout)
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid MongoDB client options: %w", err)
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf("invalid MongoDB client options: database name is empty")
	}
	return opts, nil
}

// NewMongoDB connects and waits for the primary to answer within cfg.Timeout
func NewMongoDB(ctx context.Context, logger *slog.Logger, cfg *config.MongoDBConfig) (*MongoDB, error) {
	opts, err := mongoClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("MongoDB primary did not answer: %w", err)
	}

	logger.Info("Connected to MongoDB", "database", cfg.Database, "hosts", opts.Hosts)
	return &MongoDB{client: client, db: client.Database(cfg.Database), logger: logger}, nil
}

func (m *MongoDB) Database() *mongo.Database {
	return m.db
}

func (m *MongoDB) Close(ctx context.Context) error {
	if err := m.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %w", err)
	}
	m.logger.Info("Closed MongoDB connection")
	return nil
}
