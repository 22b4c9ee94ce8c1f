package checkout

import (
	"context"
	"time"
)

// Store: persistence session. CASStatus atomik terhadap status sekarang --
// guard linearisasi completeSession (dua complete bersamaan, satu yang menang).
type Store interface {
	Create(ctx context.Context, s Session) error
	Get(ctx context.Context, id string) (Session, error)
	// Update menolak kalau status row sudah bukan expect (conflict).
	Update(ctx context.Context, s Session, expect SessionStatus) error
	CASStatus(ctx context.Context, id string, from, to SessionStatus) error
	// SetCompleted: locked -> completed + simpan order id + step confirmation.
	SetCompleted(ctx context.Context, id, orderID string) error
	Expired(ctx context.Context, now time.Time, limit int) ([]Session, error)
}
