package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"flowengine/entity"
)

// SaveDelayTimer inserts a pending timer. The timer is written before the
// user state update so the scheduler never observes delay state without a
// timer backing it.
func (m *MongoDB) SaveDelayTimer(ctx context.Context, timer *entity.DelayTimer) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(delaysCollection)
	_, err = collection.InsertOne(ctx, timer)
	return err
}

// ClaimExpiredDelayTimers atomically flips processed=false to true on timers
// whose completes_at has passed and returns the claimed rows, one at a time
// up to limit. A claimed row lost to a failure is released for the next
// tick via ReleaseDelayTimer.
func (m *MongoDB) ClaimExpiredDelayTimers(ctx context.Context, now time.Time, limit int) ([]entity.DelayTimer, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(delaysCollection)

	var claimed []entity.DelayTimer
	for len(claimed) < limit {
		filter := bson.D{
			{Key: "processed", Value: false},
			{Key: "completes_at", Value: bson.D{{Key: "$lte", Value: now}}},
		}
		update := bson.D{{Key: "$set", Value: bson.D{{Key: "processed", Value: true}}}}
		opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

		var timer entity.DelayTimer
		err = collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&timer)
		if err != nil {
			if findErr := m.findError(err); findErr != nil {
				return claimed, findErr
			}
			break
		}
		claimed = append(claimed, timer)
	}
	return claimed, nil
}

// ReleaseDelayTimer puts a claimed timer back so the next tick retries it.
func (m *MongoDB) ReleaseDelayTimer(ctx context.Context, id string) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(delaysCollection)
	filter := bson.D{{Key: "id", Value: id}}
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "processed", Value: false}}}}

	_, err = collection.UpdateOne(ctx, filter, update)
	return err
}

// CancelDelayTimers marks all pending timers for a user processed without
// firing them.
func (m *MongoDB) CancelDelayTimers(ctx context.Context, key entity.UserKey) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(delaysCollection)
	filter := bson.D{
		{Key: "user_key", Value: key},
		{Key: "processed", Value: false},
	}
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "processed", Value: true}}}}

	_, err = collection.UpdateMany(ctx, filter, update)
	return err
}
