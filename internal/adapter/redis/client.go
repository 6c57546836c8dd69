// Package redis stores live polls in Redis so several instances of the
// service can share them.
package redis

import (
	"context"
	"crypto/tls"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

// NewClient parses redisURL, installs hooks and verifies the connection.
func NewClient(ctx context.Context, redisURL string, hooks ...goredis.Hook) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	rdb := goredis.NewClient(opts)
	for _, h := range hooks {
		rdb.AddHook(h)
	}

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return rdb, nil
}

// Endpoint is the connection part of a Redis URL, for clients other than
// go-redis that must reach the same server.
type Endpoint struct {
	Addr      string
	Username  string
	Password  string
	DB        int
	TLSConfig *tls.Config
}

// ParseEndpoint extracts address, credentials, database and TLS settings
// from redisURL.
func ParseEndpoint(redisURL string) (Endpoint, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return Endpoint{}, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	return Endpoint{
		Addr:      opts.Addr,
		Username:  opts.Username,
		Password:  opts.Password,
		DB:        opts.DB,
		TLSConfig: opts.TLSConfig,
	}, nil
}
