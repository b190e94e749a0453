package domain

import "time"

// HistoryRecord captures a query asked from this machine.
type HistoryRecord struct {
	QueryID     string    `json:"query_id"`
	QueryText   string    `json:"query_text"`
	CreateTime  float64   `json:"create_time"`
	SubmittedAt time.Time `json:"submitted_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Complete    bool      `json:"complete"`
	AnswerText  string    `json:"answer_text,omitempty"`
	Sources     []string  `json:"sources,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// RecordFromState builds a history record from a session snapshot.
func RecordFromState(state SessionState, now time.Time) (HistoryRecord, bool) {
	if state.Result == nil || state.Result.QueryID == "" {
		return HistoryRecord{}, false
	}
	q := state.Result
	return HistoryRecord{
		QueryID:     q.QueryID,
		QueryText:   q.QueryText,
		CreateTime:  q.CreateTime,
		SubmittedAt: now,
		UpdatedAt:   now,
		Complete:    q.IsComplete,
		AnswerText:  q.Answer(),
		Sources:     append([]string(nil), q.Sources...),
		Error:       state.Error,
	}, true
}
