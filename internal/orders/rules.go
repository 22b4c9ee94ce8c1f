package orders

import (
	"context"
	"fmt"

	"github.com/ariefcatur/go-checkout-core.git/internal/inventory"
)

// DefaultRules: tabel otomasi bawaan per status. Urutan deklarasi = urutan
// eksekusi di dalam satu status.
func DefaultRules(repo Repo, ledger *inventory.Ledger, notifier Notifier) []AutomationRule {
	return []AutomationRule{
		{
			Name:     "finalize-reservations",
			OnStatus: StatusConfirmed,
			Critical: true,
			Run: func(ctx context.Context, o Order) error {
				// sisa reservasi aktif dari sesi checkout dilepas; konsumsi
				// sudah terjadi saat order dibuat
				_, err := ledger.ReleaseByOwner(ctx, o.SessionRef, "order confirmed")
				return err
			},
		},
		{
			Name:     "confirmation-notification",
			OnStatus: StatusConfirmed,
			Run: func(ctx context.Context, o Order) error {
				notifier.Notify(ctx, EventOrderConfirmed, o.ID, statusPayload(o, "", ""))
				return nil
			},
		},
		{
			Name:     "warehouse-notification",
			OnStatus: StatusProcessing,
			Run: func(ctx context.Context, o Order) error {
				items := make([]ItemQty, 0, len(o.Items))
				for _, it := range o.Items {
					items = append(items, ItemQty{ProductID: it.ProductID, Qty: it.Qty})
				}
				notifier.Notify(ctx, EventWarehousePickList, o.ID, map[string]any{
					"order_id": o.ID, "number": o.Number, "items": items,
				})
				return nil
			},
		},
		{
			Name:     "create-tracking",
			OnStatus: StatusShipped,
			Run: func(ctx context.Context, o Order) error {
				notifier.Notify(ctx, EventTrackingCreated, o.ID, map[string]any{
					"order_id": o.ID, "number": o.Number,
				})
				notifier.Notify(ctx, EventOrderShipped, o.ID, statusPayload(o, "", ""))
				return nil
			},
		},
		{
			Name:     "delivered-notification",
			OnStatus: StatusDelivered,
			Run: func(ctx context.Context, o Order) error {
				notifier.Notify(ctx, EventOrderDelivered, o.ID, statusPayload(o, "", ""))
				return nil
			},
		},
		{
			Name:     "restock-cancelled",
			OnStatus: StatusCancelled,
			Critical: true,
			Run: func(ctx context.Context, o Order) error {
				// stok yang sudah dikonsumsi order kembali ke gudang
				for _, it := range o.Items {
					if _, err := ledger.AdjustQuantity(ctx, it.ProductID, it.Qty,
						fmt.Sprintf("order %s cancelled", o.Number), inventory.SourceReturn, "status-engine"); err != nil {
						return err
					}
				}
				if _, err := ledger.ReleaseByOwner(ctx, o.SessionRef, "order cancelled"); err != nil {
					return err
				}
				return nil
			},
		},
		{
			Name:     "cancelled-notification",
			OnStatus: StatusCancelled,
			Run: func(ctx context.Context, o Order) error {
				notifier.Notify(ctx, EventOrderCancelled, o.ID, statusPayload(o, "", ""))
				return nil
			},
		},
		{
			Name:     "mark-refunded",
			OnStatus: StatusRefunded,
			Critical: true,
			Run: func(ctx context.Context, o Order) error {
				return repo.UpdatePaymentStatus(ctx, o.ID, PaymentRefunded)
			},
		},
		{
			Name:     "refunded-notification",
			OnStatus: StatusRefunded,
			Run: func(ctx context.Context, o Order) error {
				notifier.Notify(ctx, EventOrderRefunded, o.ID, statusPayload(o, "", ""))
				return nil
			},
		},
	}
}

func statusPayload(o Order, actor, notes string) StatusChangedPayload {
	return StatusChangedPayload{OrderID: o.ID, Number: o.Number, To: o.Status, Actor: actor, Notes: notes}
}
