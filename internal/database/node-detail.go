package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"flowengine/entity"
)

// EnsureNodeDetails seeds the node-type catalog; existing rows are
// overwritten so flag changes ship with deploys.
func (m *MongoDB) EnsureNodeDetails(ctx context.Context) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(nodeDetailsCollection)
	opts := options.Update().SetUpsert(true)

	for _, detail := range entity.DefaultNodeCatalog() {
		filter := bson.D{{Key: "node_id", Value: detail.NodeID}}
		update := bson.D{{Key: "$set", Value: detail}}
		if _, err = collection.UpdateOne(ctx, filter, update, opts); err != nil {
			return err
		}
	}
	return nil
}

func (m *MongoDB) GetNodeDetails(ctx context.Context) ([]entity.NodeDetail, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(nodeDetailsCollection)

	cursor, err := collection.Find(ctx, bson.D{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var details []entity.NodeDetail
	if err = cursor.All(ctx, &details); err != nil {
		return nil, err
	}
	return details, nil
}

func (m *MongoDB) GetNodeDetail(ctx context.Context, nodeID string) (*entity.NodeDetail, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(nodeDetailsCollection)
	filter := bson.D{{Key: "node_id", Value: nodeID}}

	var detail entity.NodeDetail
	err = collection.FindOne(ctx, filter).Decode(&detail)
	if err != nil {
		return nil, m.findError(err)
	}
	return &detail, nil
}

func (m *MongoDB) GetNodeDetailsByCategory(ctx context.Context, category string) ([]entity.NodeDetail, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(nodeDetailsCollection)
	filter := bson.D{{Key: "category", Value: category}}

	cursor, err := collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var details []entity.NodeDetail
	if err = cursor.All(ctx, &details); err != nil {
		return nil, err
	}
	return details, nil
}
