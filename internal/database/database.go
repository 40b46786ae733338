package database

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.mongodb.org/mongo-driver/v2/mongo/writeconcern"
)

// Collection names.
const (
	UsersCollection    = "users"
	ChildrenCollection = "children"
	PathsCollection    = "paths"
	EventsCollection   = "events"
)

// Options configures the MongoDB client.
type Options struct {
	URI                    string
	Database               string
	AppName                string
	TLS                    bool
	MaxPoolSize            uint64
	MinPoolSize            uint64
	MaxConnIdleTime        time.Duration
	ConnectTimeout         time.Duration
	ServerSelectionTimeout time.Duration
	OperationTimeout       time.Duration
	HeartbeatInterval      time.Duration
}

// DefaultOptions returns the pool and timeout settings used in production.
func DefaultOptions(uri, database string) Options {
	return Options{
		URI:                    uri,
		Database:               database,
		AppName:                "growthpath",
		TLS:                    true,
		MaxPoolSize:            10,
		MinPoolSize:            5,
		MaxConnIdleTime:        60 * time.Second,
		ConnectTimeout:         30 * time.Second,
		ServerSelectionTimeout: 30 * time.Second,
		OperationTimeout:       45 * time.Second,
		HeartbeatInterval:      10 * time.Second,
	}
}

// DB is a connected handle to the application database.
type DB struct {
	client   *mongo.Client
	database *mongo.Database
}

// Collection returns a handle to the named collection.
func (db *DB) Collection(name string) *mongo.Collection {
	return db.database.Collection(name)
}

// Ping checks that the primary is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the underlying client and drains its pool.
func (db *DB) Close(ctx context.Context) error {
	return db.client.Disconnect(ctx)
}

// EnsureIndexes creates the indexes the repositories rely on.
func (db *DB) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		UsersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		ChildrenCollection: {
			{Keys: bson.D{{Key: "userId", Value: 1}}},
		},
		PathsCollection: {
			{Keys: bson.D{{Key: "slug", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "children", Value: 1}}},
		},
		EventsCollection: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "createdAt", Value: 1}}},
		},
	}

	for name, models := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", name, err)
		}
	}
	return nil
}

// ClientOptions translates Options into driver options.
func ClientOptions(o Options) *options.ClientOptions {
	opts := options.Client().
		ApplyURI(o.URI).
		SetAppName(o.AppName).
		SetMaxPoolSize(o.MaxPoolSize).
		SetMinPoolSize(o.MinPoolSize).
		SetMaxConnIdleTime(o.MaxConnIdleTime).
		SetConnectTimeout(o.ConnectTimeout).
		SetServerSelectionTimeout(o.ServerSelectionTimeout).
		SetTimeout(o.OperationTimeout).
		SetHeartbeatInterval(o.HeartbeatInterval).
		SetRetryWrites(true).
		SetWriteConcern(writeconcern.Majority())

	if o.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	return opts
}

// open dials MongoDB and verifies the connection with a ping.
func open(ctx context.Context, o Options) (*DB, error) {
	if o.URI == "" {
		return nil, errors.New("mongodb uri is required")
	}
	if o.Database == "" {
		return nil, errors.New("mongodb database name is required")
	}

	client, err := mongo.Connect(ClientOptions(o))
	if err != nil {
		return nil, fmt.Errorf("failed to create mongodb client: %w", err)
	}

	db := &DB{client: client, database: client.Database(o.Database)}
	if err := db.Ping(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to reach mongodb: %w", err)
	}
	return db, nil
}

// Connector owns the process-wide database handle. It is built once at
// startup and passed to whatever needs the database.
type Connector struct {
	opts Options
	dial func(ctx context.Context, o Options) (*DB, error)

	mu sync.Mutex
	db *DB
}

// NewConnector creates a Connector for the given options. No connection is
// made until Connect is called.
func NewConnector(opts Options) *Connector {
	return &Connector{opts: opts, dial: open}
}

// Connect returns the shared handle, dialing on first use. Concurrent callers
// wait for the same dial. A failed dial is returned and not remembered, so a
// later call may try again.
func (c *Connector) Connect(ctx context.Context) (*DB, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db != nil {
		return c.db, nil
	}

	db, err := c.dial(ctx, c.opts)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("database", c.opts.Database).
		Uint64("max_pool", c.opts.MaxPoolSize).
		Bool("tls", c.opts.TLS).
		Msg("Connected to MongoDB")
	c.db = db
	return db, nil
}

// Close disconnects the shared handle if one was opened.
func (c *Connector) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db == nil {
		return nil
	}
	err := c.db.Close(ctx)
	c.db = nil
	return err
}
