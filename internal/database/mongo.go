package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"flowengine/internal/config"
	"flowengine/internal/lib/sl"
)

const (
	flowsCollection        = "flows"
	flowNodesCollection    = "flow_nodes"
	flowEdgesCollection    = "flow_edges"
	flowTriggersCollection = "flow_triggers"
	usersCollection        = "users"
	flowContextCollection  = "flow_user_context"
	nodeDetailsCollection  = "node_details"
	transactionsCollection = "user_transactions"
	delaysCollection       = "delays"
	webhooksCollection     = "webhook_messages"
)

type MongoDB struct {
	ctx           context.Context
	clientOptions *options.ClientOptions
	database      string
	log           *slog.Logger
}

func NewMongoClient(conf *config.Config, logger *slog.Logger) (*MongoDB, error) {
	connectionUri := fmt.Sprintf("mongodb://%s:%s", conf.Mongo.Host, conf.Mongo.Port)
	clientOptions := options.Client().ApplyURI(connectionUri)
	if conf.Mongo.Username != "" {
		clientOptions.SetAuth(options.Credential{
			Username:   conf.Mongo.Username,
			Password:   conf.Mongo.Password,
			AuthSource: conf.Mongo.AuthSource,
		})
	}
	client := &MongoDB{
		ctx:           context.Background(),
		clientOptions: clientOptions,
		database:      conf.Mongo.Database,
		log:           logger.With(sl.Module("mongodb")),
	}
	return client, nil
}

func (m *MongoDB) connect() (*mongo.Client, error) {
	connection, err := mongo.Connect(m.ctx, m.clientOptions)
	if err != nil {
		return nil, fmt.Errorf("mongodb connect error: %w", err)
	}
	return connection, nil
}

func (m *MongoDB) disconnect(connection *mongo.Client) {
	_ = connection.Disconnect(m.ctx)
}

func (m *MongoDB) findError(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	return fmt.Errorf("mongodb find error: %w", err)
}
