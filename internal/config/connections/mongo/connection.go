package mongo

import (
	"context"
	"net/url"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	appName                = "creditdesk"
	serverSelectionTimeout = 5 * time.Second
)

type ConnectionInfo struct {
	Scheme     string
	User       string
	Password   string
	Host       string
	Port       string
	DB         string
	AuthSource string
}

// Mongo holds the database behind import records, import items and the
// credit decision log.
type Mongo struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// URI renders the connection string. Credentials are escaped so passwords
// with '@' or ':' survive.
func (info ConnectionInfo) URI() string {
	u := url.URL{Scheme: info.Scheme, Host: info.Host, Path: "/" + info.DB}
	if u.Scheme == "" {
		u.Scheme = "mongodb"
	}
	if info.Port != "" {
		u.Host += ":" + info.Port
	}
	if info.User != "" {
		if info.Password != "" {
			u.User = url.UserPassword(info.User, info.Password)
		} else {
			u.User = url.User(info.User)
		}
	}
	if info.AuthSource != "" {
		u.RawQuery = url.Values{"authSource": {info.AuthSource}}.Encode()
	}
	return u.String()
}

func NewConnection(ctx context.Context, info ConnectionInfo) (*Mongo, error) {
	opts := options.Client().
		ApplyURI(info.URI()).
		SetAppName(appName).
		SetServerSelectionTimeout(serverSelectionTimeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, serverSelectionTimeout)
	defer cancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	return &Mongo{Client: client, Database: client.Database(info.DB)}, nil
}

// Collection reports nil on a zero Mongo so callers can treat a missing
// connection as absent storage.
func (m *Mongo) Collection(name string) *mongo.Collection {
	if m == nil || m.Database == nil {
		return nil
	}
	return m.Database.Collection(name)
}

func (m *Mongo) Close(ctx context.Context) error {
	if m == nil || m.Client == nil {
		return nil
	}
	return m.Client.Disconnect(ctx)
}
