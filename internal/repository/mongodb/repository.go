package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/tally/internal/domain/models"
)

const (
	inventoryCollection = "inventory_batches"
	reportCollection    = "monthly_reports"
)

// Repository defines the interface for archiving parse runs and calendars.
type Repository interface {
	SaveInventoryBatch(ctx context.Context, batch *models.InventoryBatch) error
	SaveMonthlyReport(ctx context.Context, report *models.MonthlyReport) error
	LatestMonthlyReport(ctx context.Context, year, month int) (*models.MonthlyReport, error)
}

// MongoDBRepository implements the Repository interface for MongoDB.
type MongoDBRepository struct {
	client *mongo.Client
	dbName string
}

// NewMongoDBRepository creates a new MongoDB repository.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string) (*MongoDBRepository, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoDBRepository{
		client: client,
		dbName: dbName,
	}, nil
}

// SaveInventoryBatch stores a parse run, assigning its id and timestamp when unset.
func (r *MongoDBRepository) SaveInventoryBatch(ctx context.Context, batch *models.InventoryBatch) error {
	stamp(&batch.ID, &batch.CreatedAt)
	if _, err := r.collection(inventoryCollection).InsertOne(ctx, batch); err != nil {
		return fmt.Errorf("failed to insert inventory batch: %w", err)
	}
	return nil
}

// SaveMonthlyReport stores a calendar build, assigning its id and timestamp when unset.
func (r *MongoDBRepository) SaveMonthlyReport(ctx context.Context, report *models.MonthlyReport) error {
	stamp(&report.ID, &report.CreatedAt)
	if _, err := r.collection(reportCollection).InsertOne(ctx, report); err != nil {
		return fmt.Errorf("failed to insert monthly report: %w", err)
	}
	return nil
}

// LatestMonthlyReport returns the most recent archive for a period, or nil when none exists.
func (r *MongoDBRepository) LatestMonthlyReport(ctx context.Context, year, month int) (*models.MonthlyReport, error) {
	filter := bson.M{"calendar.period.year": year, "calendar.period.month": month}
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})

	var report models.MonthlyReport
	err := r.collection(reportCollection).FindOne(ctx, filter, opts).Decode(&report)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load monthly report %04d-%02d: %w", year, month, err)
	}
	return &report, nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func (r *MongoDBRepository) collection(name string) *mongo.Collection {
	return r.client.Database(r.dbName).Collection(name)
}

func stamp(id *string, createdAt *time.Time) {
	if *id == "" {
		*id = uuid.NewString()
	}
	if createdAt.IsZero() {
		*createdAt = time.Now().UTC()
	}
}
