package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"time"
)

var jsonNull = []byte("null")

// GetOrLoadJSON load 的结果按 JSON 存；load 返回 nil 也缓存（存 null），查不到的内容同样挡在 DB 前面
// 缓存里的旧结构解不开时删 key 重新 load
func GetOrLoadJSON[T any](c *Cache, ctx context.Context, key string, ttl time.Duration, load func(context.Context) (*T, error)) (*T, error) {
	loadBytes := func(ctx context.Context) ([]byte, error) {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(v)
	}

	b, err := c.GetOrLoad(ctx, key, ttl, loadBytes)
	if err != nil {
		return nil, err
	}
	v, err := decodeJSON[T](b)
	if err == nil {
		return v, nil
	}

	_ = c.Invalidate(ctx, key)
	if b, err = c.GetOrLoad(ctx, key, ttl, loadBytes); err != nil {
		return nil, err
	}
	return decodeJSON[T](b)
}

func decodeJSON[T any](b []byte) (*T, error) {
	if bytes.Equal(bytes.TrimSpace(b), jsonNull) {
		return nil, nil
	}
	out := new(T)
	if err := json.Unmarshal(b, out); err != nil {
		return nil, err
	}
	return out, nil
}
