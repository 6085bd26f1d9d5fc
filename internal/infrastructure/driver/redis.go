package driver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisClient .
type RedisClient struct {
	conn *redis.Client
}

var _ KeyValueDB = &RedisClient{}

// NewRedisClient create a redis client
func NewRedisClient(host string, port int, password string) *RedisClient {
	return NewRedisClientWithAddr(fmt.Sprintf("%s:%d", host, port), password)
}

// NewRedisClientWithAddr create a redis client from a host:port address
func NewRedisClientWithAddr(addr string, password string) *RedisClient {
	conn := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	return &RedisClient{
		conn: conn,
	}
}

// SetEX implement KeyValueDB
func (rdb *RedisClient) SetEX(ctx context.Context, key string, value string, expiration time.Duration) error {
	return rdb.conn.Set(ctx, key, value, expiration).Err()
}

// Get implement KeyValueDB
func (rdb *RedisClient) Get(ctx context.Context, key string) (string, error) {
	v, err := rdb.conn.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrKeyNotFound
	}
	return v, err
}

// Exists implement KeyValueDB
func (rdb *RedisClient) Exists(ctx context.Context, key string) (bool, error) {
	n, err := rdb.conn.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Delete implement KeyValueDB
func (rdb *RedisClient) Delete(ctx context.Context, key string) error {
	return rdb.conn.Del(ctx, key).Err()
}

// Ping implement KeyValueDB
func (rdb *RedisClient) Ping(ctx context.Context) error {
	return rdb.conn.Ping(ctx).Err()
}

// Close implement KeyValueDB
func (rdb *RedisClient) Close() error {
	return rdb.conn.Close()
}
