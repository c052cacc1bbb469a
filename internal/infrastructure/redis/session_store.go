package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrSessionNotFound = errors.New("セッションが見つかりません")
)

// SessionStore は管理者セッションをRedisで管理する
// トークンはTTL付きで保存され、ログアウトまたは失効で消える
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionStore は新しいSessionStoreインスタンスを作成する
func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

// Create は新しいセッショントークンを発行する
func (s *SessionStore) Create(ctx context.Context, username string) (string, error) {
	token := uuid.New().String()
	key := s.sessionKey(token)
	if err := s.client.Set(ctx, key, username, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("セッション作成に失敗: %w", err)
	}
	return token, nil
}

// Validate はトークンを検証し、対応するユーザー名を返す
func (s *SessionStore) Validate(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrSessionNotFound
	}
	username, err := s.client.Get(ctx, s.sessionKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrSessionNotFound
		}
		return "", fmt.Errorf("セッション検証に失敗: %w", err)
	}
	return username, nil
}

// Delete はセッションを破棄する（ログアウト）
func (s *SessionStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, s.sessionKey(token)).Err(); err != nil {
		return fmt.Errorf("セッション破棄に失敗: %w", err)
	}
	return nil
}

func (s *SessionStore) sessionKey(token string) string {
	return fmt.Sprintf("admin:session:%s", token)
}
