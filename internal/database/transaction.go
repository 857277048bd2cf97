package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"flowengine/entity"
)

// SaveTransaction appends a node-entry record.
func (m *MongoDB) SaveTransaction(ctx context.Context, tx *entity.Transaction) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(transactionsCollection)
	_, err = collection.InsertOne(ctx, tx)
	return err
}

// CountTransactionsByNode aggregates transaction counts per node for one
// flow.
func (m *MongoDB) CountTransactionsByNode(ctx context.Context, flowID string) (map[string]int64, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(transactionsCollection)

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.D{{Key: "flow_id", Value: flowID}}}},
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$node_id"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}

	cursor, err := collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		NodeID string `bson:"_id"`
		Count  int64  `bson:"count"`
	}
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.NodeID] = r.Count
	}
	return counts, nil
}
