package database

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DB owns the process-wide Mongo connection. It is created once at startup
// and handed to the services explicitly instead of living as package state.
type DB struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials MongoDB, pings it, and ensures the indexes the queries
// depend on. The URI is resolved from the environment.
func Connect(ctx context.Context) (*DB, error) {
	cfg, reason := resolveConfig()

	start := time.Now()
	log.Printf("mongo: connecting uri=%s db=%s (%s)", redactURI(cfg.URI), cfg.DBName, reason)

	dctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	c, err := mongo.Connect(dctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err = c.Ping(dctx, nil); err != nil {
		_ = c.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	d := &DB{client: c, db: c.Database(cfg.DBName)}

	if err := d.ensureIndexes(); err != nil {
		log.Printf("mongo: index creation warnings: %v", err)
	}

	log.Printf("mongo: connected ok in %s", time.Since(start).Round(time.Millisecond))
	return d, nil
}

func (d *DB) Disconnect(ctx context.Context) error {
	if d.client == nil {
		return nil
	}
	return d.client.Disconnect(ctx)
}

// Reports returns the reports collection.
func (d *DB) Reports() *mongo.Collection { return d.db.Collection("reports") }

// Users returns the users collection.
func (d *DB) Users() *mongo.Collection { return d.db.Collection("users") }

// --- internal ---

type config struct {
	URI    string
	DBName string
}

// resolveConfig returns the chosen config and a human-readable reason.
func resolveConfig() (config, string) {
	dbname := getenv("MONGO_DB", "ecotech")

	explicit := strings.TrimSpace(os.Getenv("MONGODB_URI"))
	local := getenv("MONGO_URI_LOCAL", "mongodb://localhost:27017")

	if explicit != "" {
		return config{URI: explicit, DBName: dbname}, "MONGODB_URI present"
	}
	return config{URI: local, DBName: dbname}, "fallback to local"
}

func (d *DB) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var errs []string

	reports := d.Reports()
	reportIndexes := []mongo.IndexModel{
		// 2dsphere enables the $near radius queries on report locations.
		{Keys: bson.D{{Key: "location", Value: "2dsphere"}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "userId", Value: 1}}},
		{Keys: bson.D{{Key: "category", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	}
	for _, m := range reportIndexes {
		if _, err := reports.Indexes().CreateOne(ctx, m); err != nil {
			errs = append(errs, "reports: "+err.Error())
		}
	}

	if _, err := d.Users().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		errs = append(errs, "users: "+err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// --- utils ---

func redactURI(raw string) string {
	if raw == "" || !strings.Contains(raw, "://") {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	u.User = url.UserPassword("****", "****")
	return u.String()
}

func getenv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}
