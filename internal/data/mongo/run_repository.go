package mongo

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/securebank-ledger/internal/domain/report"
)

const (
	// RunCollectionName is the collection holding scheduled report run history
	RunCollectionName = "report_runs"
)

// RunRepository implements report.RunRepository for MongoDB
type RunRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

var _ report.RunRepository = (*RunRepository)(nil)

func NewRunRepository(logger *slog.Logger, db *mongo.Database) *RunRepository {
	return &RunRepository{
		db:     db,
		logger: logger,
	}
}

// EnsureIndexes creates the lookup index used by ListByJob
func (r *RunRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.db.Collection(RunCollectionName).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "job_id", Value: 1}, {Key: "started_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create report run index: %w", err)
	}
	return nil
}

// Record appends one run to the history
func (r *RunRepository) Record(ctx context.Context, run *report.RunRecord) error {
	if _, err := r.db.Collection(RunCollectionName).InsertOne(ctx, run); err != nil {
		r.logger.Error("Failed to record report run",
			"job_id", run.JobID.String(),
			"outcome", string(run.Outcome),
			"error", err)
		return fmt.Errorf("failed to record report run: %w", err)
	}
	return nil
}

// ListByJob returns the most recent runs of a job, newest first
func (r *RunRepository) ListByJob(ctx context.Context, jobID uuid.UUID, limit int) ([]*report.RunRecord, error) {
	filter := bson.M{"job_id": jobID}
	opts := options.Find().
		SetSort(bson.D{{Key: "started_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.db.Collection(RunCollectionName).Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to list report runs", "job_id", jobID.String(), "error", err)
		return nil, fmt.Errorf("failed to list report runs: %w", err)
	}
	defer cursor.Close(ctx)

	runs := make([]*report.RunRecord, 0)
	if err := cursor.All(ctx, &runs); err != nil {
		r.logger.Error("Failed to decode report runs", "job_id", jobID.String(), "error", err)
		return nil, fmt.Errorf("failed to decode report runs: %w", err)
	}

	return runs, nil
}
