package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-checkout-core.git/internal/apperr"
	"github.com/ariefcatur/go-checkout-core.git/internal/redisx"
	"github.com/redis/go-redis/v9"
)

// RedisStore: implementasi Service di atas redis (cart service eksternal
// nge-share storage yang sama di deployment demo).
type RedisStore struct {
	RDB *redis.Client
}

func (s *RedisStore) GetCart(ctx context.Context, ref string) (Cart, error) {
	key := fmt.Sprintf(redisx.KeyCart, ref)
	raw, err := s.RDB.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return Cart{}, apperr.Newf(apperr.KindNotFound, "cart not found: %s", ref)
	}
	if err != nil {
		return Cart{}, err
	}
	var c Cart
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return Cart{}, fmt.Errorf("decode cart %s: %w", ref, err)
	}
	c.Ref = ref
	return c, nil
}

func (s *RedisStore) ClearCart(ctx context.Context, ref string) error {
	key := fmt.Sprintf(redisx.KeyCart, ref)
	return s.RDB.Del(ctx, key).Err()
}

// PutCart dipakai seeding/testing; bukan bagian kontrak Service.
func (s *RedisStore) PutCart(ctx context.Context, c Cart) error {
	key := fmt.Sprintf(redisx.KeyCart, c.Ref)
	b, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return s.RDB.Set(ctx, key, b, redisx.TTLCart).Err()
}
