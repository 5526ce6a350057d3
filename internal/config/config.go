package config

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"creditdesk/internal/config/connections/mongo"
	"creditdesk/internal/config/connections/postgres"
	"creditdesk/internal/config/connections/redis"
	"creditdesk/internal/config/connections/s3"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     string
	S3       *s3.S3
	Mongo    *mongo.Mongo
	Postgres *postgres.Postgres
	Redis    *redis.Redis

	ScoreCacheTTL time.Duration
	Import        ImportConfig
}

// ImportConfig points the scheduler at the customer and loan sheets. Empty
// paths disable the corresponding load; an empty schedule disables re-runs.
type ImportConfig struct {
	CustomersPath string
	LoansPath     string
	Schedule      string
	BatchSize     int
}

func Init(ctx context.Context) *Config {
	_ = godotenv.Load()
	port := getenv("SERVER_PORT", "8070")

	s3c, err := s3.NewConnection(s3.ConnectionInfo{
		Endpoint:  getenv("AWS_ENDPOINT", "localhost:9000"),
		AccessKey: getenv("AWS_ACCESS_KEY_ID", "minioadmin"),
		SecretKey: getenv("AWS_SECRET_ACCESS_KEY", "minioadmin"),
		Region:    getenv("AWS_DEFAULT_REGION", "us-east-1"),
		Bucket:    getenv("AWS_BUCKET", "credit-imports"),
		UseSSL:    getenv("AWS_USE_SSL", "false") == "true",
	})
	if err != nil {
		log.Fatal("S3 connect error:", err)
	}

	mg, err := mongo.NewConnection(ctx, mongo.ConnectionInfo{
		Scheme:     getenv("MONGO_SCHEME", "mongodb"),
		User:       getenv("MONGO_USER", "root"),
		Password:   getenv("MONGO_PASSWORD", "secret"),
		Host:       getenv("MONGO_HOST", "127.0.0.1"),
		Port:       getenv("MONGO_PORT", "27017"),
		DB:         getenv("MONGO_DB", "creditdesk"),
		AuthSource: getenv("MONGO_AUTH_SOURCE", "admin"),
	})
	if err != nil {
		log.Fatal("Mongo connect error:", err)
	}

	pg, err := postgres.NewConnection(ctx, postgres.ConnectionInfo{
		Host:     getenv("PG_HOST", "127.0.0.1"),
		Port:     getenv("PG_PORT", "5432"),
		User:     getenv("PG_USER", "root"),
		Password: getenv("PG_PASSWORD", "hello-world"),
		DB:       getenv("PG_DB", "creditdesk"),
		SSLMode:  getenv("PG_SSLMODE", "disable"),
		MaxConns: int32(getenvInt("PG_MAX_CONNS", 10)),
	})
	if err != nil {
		log.Fatal("Postgres connect error:", err)
	}

	rd, err := redis.NewConnection(ctx, redis.ConnectionInfo{
		Addr:     getenv("REDIS_ADDR", "127.0.0.1:6379"),
		Password: getenv("REDIS_PASSWORD", ""),
		DB:       getenvInt("REDIS_DB", 0),
	})
	if err != nil {
		log.Fatal("Redis connect error:", err)
	}

	return &Config{
		S3:            s3c,
		Mongo:         mg,
		Postgres:      pg,
		Redis:         rd,
		Port:          port,
		ScoreCacheTTL: time.Duration(getenvInt("SCORE_CACHE_TTL_MINUTES", 360)) * time.Minute,
		Import: ImportConfig{
			CustomersPath: getenv("IMPORT_CUSTOMERS_PATH", ""),
			LoansPath:     getenv("IMPORT_LOANS_PATH", ""),
			Schedule:      getenv("IMPORT_SCHEDULE", ""),
			BatchSize:     getenvInt("IMPORT_BATCH_SIZE", 1000),
		},
	}
}

func (c *Config) CheckConnections(ctx context.Context) error {
	var errs []error

	if c.Postgres == nil || c.Postgres.Pool == nil {
		errs = append(errs, errors.New("postgres not initialized"))
	} else if err := c.Postgres.Pool.Ping(ctx); err != nil {
		errs = append(errs, fmt.Errorf("postgres ping failed: %w", err))
	}

	if c.Mongo == nil || c.Mongo.Client == nil {
		errs = append(errs, errors.New("mongo not initialized"))
	} else if err := c.Mongo.Client.Ping(ctx, nil); err != nil {
		errs = append(errs, fmt.Errorf("mongo ping failed: %w", err))
	}

	if c.S3 == nil || c.S3.Client == nil {
		errs = append(errs, errors.New("s3 not initialized"))
	} else if ok, err := c.S3.Client.BucketExists(ctx, c.S3.Bucket); err != nil {
		errs = append(errs, fmt.Errorf("s3 bucket check failed: %w", err))
	} else if !ok {
		errs = append(errs, fmt.Errorf("s3 bucket %q not found", c.S3.Bucket))
	}

	if c.Redis == nil || c.Redis.Client == nil {
		errs = append(errs, errors.New("redis not initialized"))
	} else if err := c.Redis.Client.Ping(ctx).Err(); err != nil {
		errs = append(errs, fmt.Errorf("redis ping failed: %w", err))
	}

	return errors.Join(errs...)
}

// Close releases every connection that was opened.
func (c *Config) Close(ctx context.Context) {
	if c.Postgres != nil {
		c.Postgres.Close()
	}
	if c.Mongo != nil {
		if err := c.Mongo.Close(ctx); err != nil {
			log.Printf("[CONFIG][CLOSE] mongo: %v", err)
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			log.Printf("[CONFIG][CLOSE] redis: %v", err)
		}
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[CONFIG][WARN] %s=%q is not an integer, using %d", k, v, def)
		return def
	}
	return n
}
