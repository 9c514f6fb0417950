package clickhouse

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDSN(t *testing.T) {
	dsn := buildDSN(&ClientConfig{
		Host:        "ch.local",
		Port:        9000,
		Database:    "quantlab",
		User:        "reader",
		Password:    "p@ss",
		DialTimeout: 5 * time.Second,
		MaxExecTime: time.Minute,
		AsyncInsert: true,
	})
	u, err := url.Parse(dsn)
	require.NoError(t, err)
	assert.Equal(t, "clickhouse", u.Scheme)
	assert.Equal(t, "ch.local:9000", u.Host)
	assert.Equal(t, "/quantlab", u.Path)
	pw, _ := u.User.Password()
	assert.Equal(t, "p@ss", pw)
	assert.Equal(t, "5s", u.Query().Get("dial_timeout"))
	assert.Equal(t, "60", u.Query().Get("max_execution_time"))
	assert.Equal(t, "1", u.Query().Get("wait_for_async_insert"))
	assert.Empty(t, u.Query().Get("read_timeout"))
}

func TestBuildDSNHTTP(t *testing.T) {
	dsn := buildDSN(&ClientConfig{Host: "ch", Port: 8123, Database: "db", User: "default", UseHTTP: true})
	assert.True(t, strings.HasPrefix(dsn, "http://"))
}

func TestNewClientRequiresHost(t *testing.T) {
	_, err := NewClient(context.Background())
	assert.EqualError(t, err, "host is required")
}

func TestPriceSchema(t *testing.T) {
	stmts := PriceSchema("quantlab", "daily_prices")
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[1], "quantlab.daily_prices")
	assert.Contains(t, stmts[1], "ReplacingMergeTree")
}
