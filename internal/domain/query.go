// Package domain defines core entities and value objects for pdqa.
//
// The domain layer is independent of transport and storage concerns: it holds
// the query contract shared with the backend, citation parsing, the session
// state snapshot and the error taxonomy.
package domain

// Query is one question/answer/citations record tracked by QueryID.
// It mirrors the JSON body returned by the backend for both submission and
// status requests.
type Query struct {
	QueryID    string   `json:"query_id"`
	CreateTime float64  `json:"create_time"`
	QueryText  string   `json:"query_text"`
	AnswerText *string  `json:"answer_text,omitempty"`
	Sources    []string `json:"sources"`
	IsComplete bool     `json:"is_complete"`
}

// Answer returns the answer text, or "" while generation has produced nothing.
func (q Query) Answer() string {
	if q.AnswerText == nil {
		return ""
	}
	return *q.AnswerText
}

// HasAnswer reports whether the backend produced (at least partial) output.
func (q Query) HasAnswer() bool {
	return q.AnswerText != nil && *q.AnswerText != ""
}

// SubmitQueryRequest is the body of POST /submit_query.
type SubmitQueryRequest struct {
	QueryText string `json:"query_text"`
}

// SessionState is the UI-facing state owned by a query session.
type SessionState struct {
	Loading bool
	Result  *Query
	Error   string
	Polling bool
}

// Idle reports whether the session has nothing outstanding.
func (s SessionState) Idle() bool {
	return !s.Loading && !s.Polling
}

// QueryID returns the tracked identifier, if any.
func (s SessionState) QueryID() string {
	if s.Result == nil {
		return ""
	}
	return s.Result.QueryID
}
