package redis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRedisClient_NotConfigured(t *testing.T) {
	rdb, err := NewRedisClient(context.Background(), Config{})
	assert.Nil(t, rdb)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

// TestNewRedisClient_Unreachable は接続できないアドレスでエラーが返ることを検証します。
func TestNewRedisClient_Unreachable(t *testing.T) {
	rdb, err := NewRedisClient(context.Background(), Config{Addr: "127.0.0.1:1"})
	assert.Nil(t, rdb)
	assert.Error(t, err)
}
