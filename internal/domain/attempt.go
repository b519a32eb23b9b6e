package domain

import "time"

// DeliveryAttempt records a single processing attempt for a queued notification.
type DeliveryAttempt struct {
	ID             string
	NotificationID int64
	AttemptNumber  int
	StatusCode     *int
	ResponseBody   *string
	Error          *string
	CreatedAt      time.Time
}
