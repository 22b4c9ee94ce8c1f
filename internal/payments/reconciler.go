package payments

import (
	"context"
	"fmt"

	"github.com/ariefcatur/go-checkout-core.git/internal/apperr"
	kafkax "github.com/ariefcatur/go-checkout-core.git/internal/kafka"
	"github.com/ariefcatur/go-checkout-core.git/internal/orders"
	"github.com/ariefcatur/go-checkout-core.git/internal/redisx"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// Reconciler: consumer event pembayaran. Kalau push status order synchronous
// gagal saat konfirmasi, event PaymentConfirmed yang sama akan diputar lagi
// di sini sampai status order menyusul.
type Reconciler struct {
	Engine      *orders.Engine
	Orders      orders.Repo
	Redis       *redis.Client
	Log         logrus.FieldLogger
	ServiceName string
}

// HandlePaymentEvent dipasang sebagai handler consumer.
func (r *Reconciler) HandlePaymentEvent(ctx context.Context, m kafkago.Message) error {
	var env kafkax.Envelope
	if err := kafkax.UnmarshalEnvelope(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != orders.EventPaymentConfirmed {
		return nil // bukan urusan kita
	}

	// dedup via redis pakai event_id
	dkey := fmt.Sprintf(redisx.KeyDedup, r.ServiceName, env.EventID)
	fresh, err := redisx.MarkOnce(ctx, r.Redis, dkey, redisx.TTLDedup)
	if err != nil {
		r.Log.WithError(err).Warn("dedup check failed, processing anyway")
	} else if !fresh {
		return nil
	}

	p, err := kafkax.UnwrapPayload[orders.PaymentConfirmedPayload](env.Payload)
	if err != nil {
		return err
	}

	o, err := r.Orders.GetOrder(ctx, p.OrderRef)
	if err != nil {
		return err
	}
	if o.Status != orders.StatusPending {
		return nil // sudah tersinkron
	}
	_, warns, err := r.Engine.UpdateOrderStatus(ctx, o.ID, orders.StatusConfirmed, "reconciler", "payment "+p.PaymentRef)
	if err != nil {
		if apperr.IsKind(err, apperr.KindConflict) {
			return nil // transisi keburu dilakukan orang lain
		}
		return err
	}
	for _, wmsg := range warns {
		r.Log.WithField("order_id", o.ID).Warn(wmsg)
	}
	return nil
}
