package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"flowengine/entity"
)

// GetFlowVariables returns all variables stored for a (user, flow) pair.
func (m *MongoDB) GetFlowVariables(ctx context.Context, key entity.UserKey, flowID string) (map[string]string, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(flowContextCollection)
	filter := bson.D{
		{Key: "user_key", Value: key},
		{Key: "flow_id", Value: flowID},
	}

	cursor, err := collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []entity.FlowUserContext
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, err
	}

	vars := make(map[string]string, len(rows))
	for _, r := range rows {
		vars[r.Name] = r.Value
	}
	return vars, nil
}

// SaveFlowVariable upserts one variable for a (user, flow) pair.
func (m *MongoDB) SaveFlowVariable(ctx context.Context, key entity.UserKey, flowID, name, value string) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(flowContextCollection)
	filter := bson.D{
		{Key: "user_key", Value: key},
		{Key: "flow_id", Value: flowID},
		{Key: "name", Value: name},
	}
	update := bson.D{{Key: "$set", Value: entity.FlowUserContext{
		UserKey:   key,
		FlowID:    flowID,
		Name:      name,
		Value:     value,
		UpdatedAt: time.Now().UTC(),
	}}}
	opts := options.Update().SetUpsert(true)

	_, err = collection.UpdateOne(ctx, filter, update, opts)
	return err
}
