package operations

import "time"

// ProgressUpdate is one broadcastable progress event. Updates are
// advisory; dropping them never affects the run.
type ProgressUpdate struct {
	RunID     string    `json:"run_id"`
	Stage     string    `json:"stage"`
	Status    string    `json:"status"`
	Current   int       `json:"current"`
	Total     int       `json:"total"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ProgressSink receives progress updates, typically a websocket hub.
type ProgressSink interface {
	BroadcastProgress(update ProgressUpdate)
}

// nopSink discards updates when no sink is wired.
type nopSink struct{}

func (nopSink) BroadcastProgress(ProgressUpdate) {}

func progressEvent(runID, stage, status string, current, total int, message string) ProgressUpdate {
	return ProgressUpdate{
		RunID:     runID,
		Stage:     stage,
		Status:    status,
		Current:   current,
		Total:     total,
		Message:   message,
		Timestamp: time.Now(),
	}
}
