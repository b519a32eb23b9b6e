package domain

// QueueStats summarizes queue records over a trailing window, used for
// operational alerting.
type QueueStats struct {
	Total   int64
	Pending int64
	Sent    int64
	Failed  int64
}
