package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"flowengine/entity"
)

// SaveWebhookMessage stores a raw inbound webhook before processing.
func (m *MongoDB) SaveWebhookMessage(ctx context.Context, msg *entity.WebhookMessage) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(webhooksCollection)
	_, err = collection.InsertOne(ctx, msg)
	return err
}

// UpdateWebhookStatus records the processing outcome of a stored webhook.
func (m *MongoDB) UpdateWebhookStatus(ctx context.Context, id, status, detail string) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(webhooksCollection)
	filter := bson.D{{Key: "id", Value: id}}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "status", Value: status},
		{Key: "detail", Value: detail},
		{Key: "updated_at", Value: time.Now().UTC()},
	}}}

	_, err = collection.UpdateOne(ctx, filter, update)
	return err
}
