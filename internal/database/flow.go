package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"flowengine/entity"
)

// SaveFlow upserts the flow document and mirrors its nodes, edges and
// derived triggers into their own collections (delete-then-insert per flow).
func (m *MongoDB) SaveFlow(ctx context.Context, flow *entity.Flow) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	db := connection.Database(m.database)

	flow.UpdatedAt = time.Now().UTC()

	filter := bson.D{{Key: "id", Value: flow.ID}}
	update := bson.D{{Key: "$set", Value: flow}}
	opts := options.Update().SetUpsert(true)
	if _, err = db.Collection(flowsCollection).UpdateOne(ctx, filter, update, opts); err != nil {
		return err
	}

	byFlow := bson.D{{Key: "flow_id", Value: flow.ID}}

	if _, err = db.Collection(flowNodesCollection).DeleteMany(ctx, byFlow); err != nil {
		return err
	}
	if len(flow.Nodes) > 0 {
		docs := make([]interface{}, 0, len(flow.Nodes))
		for _, n := range flow.Nodes {
			docs = append(docs, bson.D{
				{Key: "flow_id", Value: flow.ID},
				{Key: "brand_id", Value: flow.BrandID},
				{Key: "node", Value: n},
				{Key: "updated_at", Value: flow.UpdatedAt},
			})
		}
		if _, err = db.Collection(flowNodesCollection).InsertMany(ctx, docs); err != nil {
			return err
		}
	}

	if _, err = db.Collection(flowEdgesCollection).DeleteMany(ctx, byFlow); err != nil {
		return err
	}
	if len(flow.Edges) > 0 {
		docs := make([]interface{}, 0, len(flow.Edges))
		for _, e := range flow.Edges {
			docs = append(docs, bson.D{
				{Key: "flow_id", Value: flow.ID},
				{Key: "brand_id", Value: flow.BrandID},
				{Key: "edge", Value: e},
				{Key: "updated_at", Value: flow.UpdatedAt},
			})
		}
		if _, err = db.Collection(flowEdgesCollection).InsertMany(ctx, docs); err != nil {
			return err
		}
	}

	if _, err = db.Collection(flowTriggersCollection).DeleteMany(ctx, byFlow); err != nil {
		return err
	}
	triggers := entity.TriggersFromFlow(flow)
	if len(triggers) > 0 {
		docs := make([]interface{}, 0, len(triggers))
		for _, t := range triggers {
			docs = append(docs, t)
		}
		if _, err = db.Collection(flowTriggersCollection).InsertMany(ctx, docs); err != nil {
			return err
		}
	}

	return nil
}

func (m *MongoDB) GetFlowByID(ctx context.Context, flowID string) (*entity.Flow, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(flowsCollection)
	filter := bson.D{{Key: "id", Value: flowID}}

	var flow entity.Flow
	err = collection.FindOne(ctx, filter).Decode(&flow)
	if err != nil {
		return nil, m.findError(err)
	}
	return &flow, nil
}

// GetFlowsByAuthor lists flows owned by the given author, newest first.
func (m *MongoDB) GetFlowsByAuthor(ctx context.Context, userID int64) ([]entity.Flow, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(flowsCollection)
	filter := bson.D{{Key: "user_id", Value: userID}}
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var flows []entity.Flow
	if err = cursor.All(ctx, &flows); err != nil {
		return nil, err
	}
	return flows, nil
}

// GetPublishedFlows returns published flows for a brand sorted by
// updated_at descending; the order is the trigger tie-breaker.
func (m *MongoDB) GetPublishedFlows(ctx context.Context, brandID int64) ([]entity.Flow, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(flowsCollection)
	filter := bson.D{
		{Key: "brand_id", Value: brandID},
		{Key: "status", Value: entity.FlowStatusPublished},
	}
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var flows []entity.Flow
	if err = cursor.All(ctx, &flows); err != nil {
		return nil, err
	}
	return flows, nil
}

func (m *MongoDB) UpdateFlowStatus(ctx context.Context, flowID, status string) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(flowsCollection)
	filter := bson.D{{Key: "id", Value: flowID}}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "status", Value: status},
		{Key: "updated_at", Value: time.Now().UTC()},
	}}}

	_, err = collection.UpdateOne(ctx, filter, update)
	return err
}

// GetFlowEdges reads the mirrored edge records for a flow.
func (m *MongoDB) GetFlowEdges(ctx context.Context, flowID string) ([]entity.Edge, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(flowEdgesCollection)
	filter := bson.D{{Key: "flow_id", Value: flowID}}

	cursor, err := collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Edge entity.Edge `bson:"edge"`
	}
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, err
	}

	edges := make([]entity.Edge, 0, len(rows))
	for _, r := range rows {
		edges = append(edges, r.Edge)
	}
	return edges, nil
}
