// Package kv はRedisを使ったキーバリューストアを提供する。
// 値はJSONとして保存し、TTLで期限切れにする。
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionPrefix はセッションレコードのキー名前空間。
const SessionPrefix = "auth:session:"

// Store はJSON値を保存するキーバリューストアのインターフェース。
type Store interface {
	// Get はkeyの値をdestにデコードする。キーが存在しない場合はfalse, nilを返す。
	Get(ctx context.Context, key string, dest any) (bool, error)
	// Set はvalueをJSONにエンコードして保存する。ttlが0以下の場合は期限なし。
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	// Delete はkeyを削除する。存在しないキーの削除はエラーにしない。
	Delete(ctx context.Context, key string) error
	// Ping はストアへの疎通を確認する。
	Ping(ctx context.Context) error
}

// NewClient はREDIS_URL形式の接続文字列からRedisクライアントを生成する。
// 接続は最初のコマンド実行時に確立される。
func NewClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

// RedisStore はStoreのRedis実装。
type RedisStore struct {
	client *redis.Client
	prefix string
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore はprefixで名前空間を区切ったRedisStoreを生成する。
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

// key はストア上のキー名を組み立てる。
// キー中の "/" は "-" に置き換える。
func (s *RedisStore) key(k string) string {
	return s.prefix + strings.ReplaceAll(k, "/", "-")
}

// Get はkeyの値をdestにデコードする。
func (s *RedisStore) Get(ctx context.Context, key string, dest any) (bool, error) {
	val, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get key: %w", err)
	}

	if err := json.Unmarshal(val, dest); err != nil {
		return false, fmt.Errorf("failed to decode value: %w", err)
	}
	return true, nil
}

// Set はvalueをJSONとして保存する。
func (s *RedisStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode value: %w", err)
	}

	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Set(ctx, s.key(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}
	return nil
}

// Delete はkeyを削除する。
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}
	return nil
}

// Ping はRedisへの疎通を確認する。
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}
	return nil
}
