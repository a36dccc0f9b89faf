package pgcluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/clusterha/pkg/clusterha"
)

func TestNormalizeDSN(t *testing.T) {
	tests := []struct {
		name string
		dsn  string
		want string
	}{
		{
			name: "uri unchanged",
			dsn:  "postgres://app@db-1,db-2/app?sslmode=disable",
			want: "postgres://app@db-1,db-2/app?sslmode=disable",
		},
		{
			name: "keyword value unchanged",
			dsn:  "host=db-1 port=5432 dbname=app",
			want: "host=db-1 port=5432 dbname=app",
		},
		{
			name: "ado.net rewritten",
			dsn:  "Host=db-1,db-2;Port=5432;Database=app;Username=app;Target Session Attributes=read-write",
			want: "dbname=app host=db-1,db-2 port=5432 target_session_attrs=read-write user=app",
		},
		{
			name: "ado.net aliases and quoting",
			dsn:  "Server=db-1; User Id=app; Pwd=p w'd; Initial Catalog=ledger;",
			want: `dbname=ledger host=db-1 password='p w\'d' user=app`,
		},
		{
			name: "unknown keys passed through",
			dsn:  "Host=db-1;Search Path=billing",
			want: "host=db-1 search_path=billing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizeDSN(tt.dsn)
			require.NoError(t, err)
			if got != tt.want {
				t.Errorf("normalizeDSN(%q) = %q, want %q", tt.dsn, got, tt.want)
			}
		})
	}
}

func TestNormalizeDSN_InvalidPort(t *testing.T) {
	_, err := normalizeDSN("Host=db-1;Port=abc")
	require.Error(t, err)
	assert.ErrorIs(t, err, clusterha.ErrInvalidConfig)
}

func TestNew_ADONETMultiHost(t *testing.T) {
	v, err := New(Config{DSN: "Host=db-1,db-2;Port=5433;Database=app;Username=app;Password=secret"})
	require.NoError(t, err)

	cc := v.poolConfig.ConnConfig
	assert.Equal(t, "db-1", cc.Host)
	assert.Equal(t, uint16(5433), cc.Port)
	assert.Equal(t, "app", cc.Database)
	assert.Equal(t, "secret", cc.Password)
	require.Len(t, cc.Fallbacks, 1)
	assert.Equal(t, "db-2", cc.Fallbacks[0].Host)
}
