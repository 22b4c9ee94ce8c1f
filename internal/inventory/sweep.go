package inventory

import "context"

const sweepBatch = 200

// ReleaseExpired: satu-satunya aktor yang boleh me-release reservasi tanpa
// permintaan pemiliknya. Idempotent, aman dipanggil dobel.
func (l *Ledger) ReleaseExpired(ctx context.Context) (int, error) {
	expired, err := l.Store.ExpiredReservations(ctx, l.Now(), sweepBatch)
	if err != nil {
		return 0, err
	}
	released := 0
	for _, res := range expired {
		if err := l.Release(ctx, res.ID, "reservation expired"); err != nil {
			l.Log.WithError(err).WithField("reservation_id", res.ID).Warn("expiry release failed")
			continue
		}
		released++
	}
	return released, nil
}
