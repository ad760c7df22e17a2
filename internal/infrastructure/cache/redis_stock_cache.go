package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const (
	keyPrefix     = "stockledger:available:"
	versionPrefix = "stockledger:version:"
	// versionTTL debe superar con holgura la duración de una lectura del ledger.
	versionTTL = 24 * time.Hour
)

// RedisStockCache guarda el stock disponible por (producto, tienda) como texto decimal con TTL.
// Junto a cada valor mantiene un contador de versión que Invalidate incrementa.
type RedisStockCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStockCache crea el cliente Redis.
func NewRedisStockCache(addr, password string, db int, ttl time.Duration) *RedisStockCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisStockCache{client: client, ttl: ttl}
}

func (c *RedisStockCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisStockCache) Close() error {
	return c.client.Close()
}

func (c *RedisStockCache) Get(ctx context.Context, productID, storeID string) (decimal.Decimal, bool, error) {
	val, err := c.client.Get(ctx, key(productID, storeID)).Result()
	if errors.Is(err, redis.Nil) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, err
	}
	qty, err := decimal.NewFromString(val)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("valor en caché inválido %q: %w", val, err)
	}
	return qty, true, nil
}

// Version devuelve el contador de invalidaciones del par; 0 si nunca se invalidó.
func (c *RedisStockCache) Version(ctx context.Context, productID, storeID string) (int64, error) {
	v, err := c.client.Get(ctx, versionKey(productID, storeID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// Fill guarda qty sólo si la versión del par sigue siendo version. La comprobación y la
// escritura van en una transacción WATCH/MULTI sobre la clave de versión.
func (c *RedisStockCache) Fill(ctx context.Context, productID, storeID string, qty decimal.Decimal, version int64) (bool, error) {
	vkey := versionKey(productID, storeID)
	stored := false
	err := c.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, vkey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != version {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key(productID, storeID), qty.String(), c.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		stored = true
		return nil
	}, vkey)
	if errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return stored, nil
}

// Invalidate incrementa la versión del par y borra el valor guardado.
func (c *RedisStockCache) Invalidate(ctx context.Context, productID, storeID string) error {
	vkey := versionKey(productID, storeID)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, vkey)
		pipe.Expire(ctx, vkey, versionTTL)
		pipe.Del(ctx, key(productID, storeID))
		return nil
	})
	return err
}

func key(productID, storeID string) string {
	return keyPrefix + productID + ":" + storeID
}

func versionKey(productID, storeID string) string {
	return versionPrefix + productID + ":" + storeID
}
