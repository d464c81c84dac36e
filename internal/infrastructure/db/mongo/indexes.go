package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/docbook/booking-system/internal/core/domain"
	"github.com/docbook/booking-system/internal/core/ports"
)

// directoryIndexes lists the indexes of the directory collections.
// The partial unique slot index lets the database reject a second
// non-cancelled appointment for a slot even when two processes race past
// the check. Partial filters cannot use $ne, so the occupying statuses are
// listed.
func directoryIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		ports.CollectionAppointments: {
			{
				Keys:    bson.D{{Key: "userId", Value: 1}},
				Options: options.Index().SetName("user"),
			},
			{
				Keys: bson.D{
					{Key: "doctorId", Value: 1},
					{Key: "appointmentDate", Value: 1},
					{Key: "appointmentTime", Value: 1},
				},
				Options: options.Index().
					SetName("slot_occupied_unique").
					SetUnique(true).
					SetPartialFilterExpression(bson.M{"status": bson.M{"$in": occupyingStatuses()}}),
			},
		},
		ports.CollectionDoctors: {
			{
				Keys:    bson.D{{Key: "speciality", Value: 1}},
				Options: options.Index().SetName("speciality"),
			},
		},
	}
}

func occupyingStatuses() bson.A {
	return bson.A{string(domain.StatusPending), string(domain.StatusCompleted)}
}

// EnsureIndexes creates the directory indexes.
func (d *Directory) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	for coll, models := range directoryIndexes() {
		if _, err := d.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("indexes %s: %w", coll, err)
		}
	}
	return nil
}
