package recorder

// CheckEvent records one successful price observation for a tracked product.
type CheckEvent struct {
	ASIN         string
	Price        int
	Availability string
}

// NotificationEvent records a price-drop notification attempt.
type NotificationEvent struct {
	ASIN     string
	OldPrice int
	NewPrice int
	Posted   bool
}

// Recorder persists check history for analysis.
type Recorder interface {
	RecordCheck(evt *CheckEvent) error
	RecordNotification(evt *NotificationEvent) error
	Close() error
}
