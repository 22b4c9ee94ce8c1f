package cart

import (
	"context"
	"sync"

	"github.com/ariefcatur/go-checkout-core.git/internal/apperr"
)

// Memory: fake in-process untuk test & demo tanpa redis.
type Memory struct {
	mu    sync.RWMutex
	carts map[string]Cart
}

func NewMemory() *Memory { return &Memory{carts: map[string]Cart{}} }

func (m *Memory) GetCart(_ context.Context, ref string) (Cart, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.carts[ref]
	if !ok {
		return Cart{}, apperr.Newf(apperr.KindNotFound, "cart not found: %s", ref)
	}
	return c, nil
}

func (m *Memory) ClearCart(_ context.Context, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, ref)
	return nil
}

func (m *Memory) Put(c Cart) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[c.Ref] = c
}
