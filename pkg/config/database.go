package config

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type connState int

const (
	stateIdle connState = iota
	stateConnecting
	stateConnected
)

// attempt is one in-flight connection attempt shared by concurrent callers.
type attempt struct {
	done chan struct{}
	err  error
}

// DB holds the database connections. Connect is idempotent: callers arriving
// while a connection is in progress wait for it instead of dialing again.
type DB struct {
	cfg *Config
	log logrus.FieldLogger

	mu      sync.Mutex
	state   connState
	current *attempt

	Postgres *gorm.DB
	Mongo    *mongo.Client
	Database *mongo.Database
}

// NewDB returns an unconnected DB.
func NewDB(cfg *Config, log logrus.FieldLogger) *DB {
	return &DB{cfg: cfg, log: log}
}

// Connect establishes both connections unless they are already up.
func (db *DB) Connect(ctx context.Context) error {
	db.mu.Lock()
	switch db.state {
	case stateConnected:
		db.mu.Unlock()
		return nil
	case stateConnecting:
		a := db.current
		db.mu.Unlock()
		select {
		case <-a.done:
			return a.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	a := &attempt{done: make(chan struct{})}
	db.current = a
	db.state = stateConnecting
	db.mu.Unlock()

	pg, client, err := db.open(ctx)

	db.mu.Lock()
	if err != nil {
		db.state = stateIdle
	} else {
		db.Postgres, db.Mongo = pg, client
		db.Database = client.Database(db.cfg.MongoDatabase)
		db.state = stateConnected
	}
	a.err = err
	close(a.done)
	db.mu.Unlock()
	return err
}

func (db *DB) open(ctx context.Context) (*gorm.DB, *mongo.Client, error) {
	pg, err := initPostgres(db.cfg.PostgresConnStr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	db.log.Info("connected to PostgreSQL")

	client, err := initMongo(ctx, db.cfg.MongoURI)
	if err != nil {
		closePostgres(pg)
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	db.log.Info("connected to MongoDB")
	return pg, client, nil
}

// Ping checks both connections.
func (db *DB) Ping(ctx context.Context) error {
	db.mu.Lock()
	pg, client := db.Postgres, db.Mongo
	db.mu.Unlock()
	if pg == nil || client == nil {
		return fmt.Errorf("database not connected")
	}
	sqlDB, err := pg.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("mongo: %w", err)
	}
	return nil
}

// initPostgres initializes the PostgreSQL database connection using GORM
func initPostgres(connStr string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(connStr), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err = sqlDB.Ping(); err != nil {
		return nil, err
	}
	return db, nil
}

// initMongo initializes the MongoDB connection
func initMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err = client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	return client, nil
}

func closePostgres(pg *gorm.DB) error {
	sqlDB, err := pg.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Close closes the database connections
func (db *DB) Close() {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.Postgres != nil {
		if err := closePostgres(db.Postgres); err != nil {
			db.log.WithError(err).Error("closing PostgreSQL connection")
		} else {
			db.log.Info("PostgreSQL connection closed")
		}
	}
	if db.Mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Mongo.Disconnect(ctx); err != nil {
			db.log.WithError(err).Error("closing MongoDB connection")
		} else {
			db.log.Info("MongoDB connection closed")
		}
	}
	db.Postgres, db.Mongo, db.Database = nil, nil, nil
	db.state = stateIdle
}
