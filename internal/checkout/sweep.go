package checkout

import "context"

const sweepBatch = 200

// AbandonExpired: session active/locked yang lewat expiry -> abandoned,
// reservasi yang dia pegang dilepas. Idempotent.
func (m *Manager) AbandonExpired(ctx context.Context) (int, error) {
	expired, err := m.Store.Expired(ctx, m.Now(), sweepBatch)
	if err != nil {
		return 0, err
	}
	abandoned := 0
	for _, s := range expired {
		if err := m.Store.CASStatus(ctx, s.ID, s.Status, SessionAbandoned); err != nil {
			m.Log.WithError(err).WithField("session_id", s.ID).Warn("expiry abandon failed")
			continue
		}
		if _, err := m.Ledger.ReleaseByOwner(ctx, s.ID, "session expired"); err != nil {
			m.Log.WithError(err).WithField("session_id", s.ID).Warn("expiry release failed")
		}
		abandoned++
	}
	return abandoned, nil
}
