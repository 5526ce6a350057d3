package mongo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectionURI(t *testing.T) {
	cases := []struct {
		name string
		info ConnectionInfo
		want string
	}{
		{
			name: "bare host",
			info: ConnectionInfo{Host: "localhost", Port: "27017", DB: "creditdesk"},
			want: "mongodb://localhost:27017/creditdesk",
		},
		{
			name: "escaped credentials and auth source",
			info: ConnectionInfo{User: "desk", Password: "p@ss:word", Host: "db", Port: "27017", DB: "creditdesk", AuthSource: "admin"},
			want: "mongodb://desk:p%40ss%3Aword@db:27017/creditdesk?authSource=admin",
		},
		{
			name: "srv scheme without port",
			info: ConnectionInfo{Scheme: "mongodb+srv", User: "desk", Host: "cluster0.example.net", DB: "creditdesk"},
			want: "mongodb+srv://desk@cluster0.example.net/creditdesk",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.info.URI())
		})
	}
}

func TestZeroMongo(t *testing.T) {
	var m *Mongo
	assert.Nil(t, m.Collection("import_records"))
	require.NoError(t, m.Close(context.Background()))
}
