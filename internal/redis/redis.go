package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Network  string `yaml:"network"` // "tcp" or "unix" for socket path
	Prefix   string `yaml:"prefix"`
}

// Enabled reports whether an address was configured
func (c Config) Enabled() bool {
	return c.Addr != ""
}

type Client struct {
	client *redis.Client
	prefix string
}

// ErrMiss is returned by Get when the key does not exist
var ErrMiss = errors.New("redis: key not found")

func New(ctx context.Context, cfg Config) (*Client, error) {
	network := "tcp"
	if cfg.Network != "" {
		network = cfg.Network
	}

	// If addr looks like a socket path, automatically use unix
	if len(cfg.Addr) > 0 && cfg.Addr[0] == '/' {
		network = "unix"
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "antinuke:"
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		Network:      network,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		PoolTimeout:  4 * time.Second,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{client: rdb, prefix: prefix}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) Set(ctx context.Context, key, value string, expiration time.Duration) error {
	return c.client.Set(ctx, c.prefix+key, value, expiration).Err()
}

func (c *Client) Get(ctx context.Context, key string) (string, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrMiss
	}
	return val, err
}
