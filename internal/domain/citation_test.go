package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/doeshing/pdqa/internal/domain"
)

// TestParseCitation covers the path:page:chunk convention
func TestParseCitation(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantError bool
		want      domain.Citation
	}{
		{
			name: "parses nested path",
			raw:  "papers/foo-bar.pdf:3:1",
			want: domain.Citation{
				Raw:         "papers/foo-bar.pdf:3:1",
				Path:        "papers/foo-bar.pdf",
				Filename:    "foo-bar.pdf",
				Page:        3,
				ChunkIndex:  1,
				DisplayName: "Foo bar",
			},
		},
		{
			name: "keeps colons inside the path",
			raw:  "s3:bucket/src/data/source/alpha_synuclein-review.pdf:12:0",
			want: domain.Citation{
				Raw:         "s3:bucket/src/data/source/alpha_synuclein-review.pdf:12:0",
				Path:        "s3:bucket/src/data/source/alpha_synuclein-review.pdf",
				Filename:    "alpha_synuclein-review.pdf",
				Page:        12,
				ChunkIndex:  0,
				DisplayName: "Alpha synuclein review",
			},
		},
		{
			name: "bare filename",
			raw:  "tremor.pdf:1:4",
			want: domain.Citation{
				Raw:         "tremor.pdf:1:4",
				Path:        "tremor.pdf",
				Filename:    "tremor.pdf",
				Page:        1,
				ChunkIndex:  4,
				DisplayName: "Tremor",
			},
		},
		{name: "no colons", raw: "no-colons-here", wantError: true},
		{name: "only two fields", raw: "foo.pdf:3", wantError: true},
		{name: "page not numeric", raw: "foo.pdf:three:1", wantError: true},
		{name: "chunk not numeric", raw: "foo.pdf:3:x", wantError: true},
		{name: "empty filename", raw: "papers/:3:1", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := domain.ParseCitation(tt.raw)

			if tt.wantError {
				var parseErr *domain.ParseError
				if !errors.As(err, &parseErr) {
					t.Fatalf("expected ParseError, got %v", err)
				}
				if parseErr.Raw != tt.raw {
					t.Errorf("ParseError.Raw = %q, want %q", parseErr.Raw, tt.raw)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseCitationsKeepsMalformedEntries(t *testing.T) {
	entries := domain.ParseCitations([]string{"a.pdf:1:0", "garbage", "b.pdf:2:3"})
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Citation == nil || entries[2].Citation == nil {
		t.Fatalf("valid entries were not parsed: %+v", entries)
	}
	if entries[1].Citation != nil || entries[1].Err == nil {
		t.Fatalf("malformed entry should carry an error, got %+v", entries[1])
	}
	if entries[1].Raw != "garbage" {
		t.Errorf("malformed entry lost its raw text: %q", entries[1].Raw)
	}
}

func TestDisplayName(t *testing.T) {
	cases := map[string]string{
		"foo-bar.pdf":        "Foo bar",
		"levodopa_trial.pdf": "Levodopa trial",
		"already Spaced.pdf": "Already Spaced",
		"":                   "",
	}
	for in, want := range cases {
		if got := domain.DisplayName(in); got != want {
			t.Errorf("DisplayName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTransportErrorMessages(t *testing.T) {
	cause := errors.New("connection refused")
	err := &domain.TransportError{Op: "submit_query", URL: "http://backend/submit_query", Err: cause}

	if !errors.Is(err, cause) {
		t.Fatal("TransportError must unwrap to the transport error")
	}
	if msg := err.UserMessage(); msg == "" || msg == err.Error() {
		t.Fatalf("user message should be generic, got %q", msg)
	}

	status := &domain.TransportError{Op: "get_query", URL: "http://backend/get_query", StatusCode: 503}
	if status.Error() == "" {
		t.Fatal("expected error text")
	}
}

var domainNow = time.Date(2026, 4, 11, 9, 30, 0, 0, time.UTC)

func TestRecordFromState(t *testing.T) {
	answer := "Loss of dopaminergic neurons."
	state := domain.SessionState{Result: &domain.Query{
		QueryID:    "q1",
		QueryText:  "What causes tremor?",
		AnswerText: &answer,
		Sources:    []string{"a.pdf:1:0"},
		IsComplete: true,
	}}

	rec, ok := domain.RecordFromState(state, domainNow)
	if !ok {
		t.Fatal("expected a record")
	}
	if rec.QueryID != "q1" || !rec.Complete || rec.AnswerText != answer {
		t.Fatalf("unexpected record %+v", rec)
	}

	if _, ok := domain.RecordFromState(domain.SessionState{}, domainNow); ok {
		t.Fatal("empty state must not produce a record")
	}
}
