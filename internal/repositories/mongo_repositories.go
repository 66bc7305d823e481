package repositories

import (
	"context"
	"time"

	"golang-storefront-backend/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Order Snapshot Repository
type orderSnapshotRepository struct {
	collection *mongo.Collection
}

func NewOrderSnapshotRepository(db *mongo.Database) OrderSnapshotRepository {
	return &orderSnapshotRepository{
		collection: db.Collection("order_snapshots"),
	}
}

func (r *orderSnapshotRepository) Upsert(ctx context.Context, snapshot *models.OrderSnapshot) error {
	snapshot.MirroredAt = time.Now()

	filter := bson.M{"_id": snapshot.OrderID}
	update := bson.M{"$set": snapshot}
	opts := options.Update().SetUpsert(true)

	_, err := r.collection.UpdateOne(ctx, filter, update, opts)
	return err
}

func (r *orderSnapshotRepository) GetByID(ctx context.Context, orderID string) (*models.OrderSnapshot, error) {
	var snapshot models.OrderSnapshot
	err := r.collection.FindOne(ctx, bson.M{"_id": orderID}).Decode(&snapshot)
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (r *orderSnapshotRepository) GetByUserID(ctx context.Context, userID string) ([]models.OrderSnapshot, error) {
	var snapshots []models.OrderSnapshot

	filter := bson.M{"user_id": userID}
	opts := options.Find().SetSort(bson.M{"created_at": -1})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err := cursor.All(ctx, &snapshots); err != nil {
		return nil, err
	}
	return snapshots, nil
}

func (r *orderSnapshotRepository) UpdateStatus(ctx context.Context, orderID string, status string) error {
	filter := bson.M{"_id": orderID}
	update := bson.M{"$set": bson.M{"status": status, "mirrored_at": time.Now()}}

	_, err := r.collection.UpdateOne(ctx, filter, update)
	return err
}
