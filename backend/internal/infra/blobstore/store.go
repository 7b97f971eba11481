package blobstore

import (
	"context"
	"errors"
)

// ErrNotFound 表示指定 key 尚未写入。
var ErrNotFound = errors.New("blob not found")

// Store 是目录数据的键值持久化抽象，对应浏览器端的 localStorage。
// Load 在 key 不存在时返回 ErrNotFound。
type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
