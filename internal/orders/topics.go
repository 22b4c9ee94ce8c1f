package orders

// Semua notifikasi keluar lewat satu topic; consumer milih via event_type.
const (
	TopicNotifications = "shop.notifications"
)
