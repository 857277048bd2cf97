package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"flowengine/entity"
)

func userKeyFilter(key entity.UserKey) bson.D {
	return bson.D{
		{Key: "user_identifier", Value: key.UserIdentifier},
		{Key: "brand_id", Value: key.BrandID},
		{Key: "channel", Value: key.Channel},
		{Key: "channel_account_id", Value: key.ChannelAccountID},
	}
}

// GetUserState returns the user's automation state, nil when the user has
// never been seen.
func (m *MongoDB) GetUserState(ctx context.Context, key entity.UserKey) (*entity.UserState, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(usersCollection)

	var state entity.UserState
	err = collection.FindOne(ctx, userKeyFilter(key)).Decode(&state)
	if err != nil {
		return nil, m.findError(err)
	}
	return &state, nil
}

// GetUserStateByID looks a user up by state id; used by delay_complete
// events which carry the id rather than the key.
func (m *MongoDB) GetUserStateByID(ctx context.Context, id string) (*entity.UserState, error) {
	connection, err := m.connect()
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(usersCollection)
	filter := bson.D{{Key: "id", Value: id}}

	var state entity.UserState
	err = collection.FindOne(ctx, filter).Decode(&state)
	if err != nil {
		return nil, m.findError(err)
	}
	return &state, nil
}

// SaveUserState upserts the user's automation state by user key.
func (m *MongoDB) SaveUserState(ctx context.Context, state *entity.UserState) error {
	connection, err := m.connect()
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(usersCollection)

	state.UpdatedAt = time.Now().UTC()

	update := bson.D{{Key: "$set", Value: state}}
	opts := options.Update().SetUpsert(true)

	_, err = collection.UpdateOne(ctx, userKeyFilter(state.Key), update, opts)
	return err
}
