package helpers

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/doeshing/pdqa/internal/domain"
	"github.com/doeshing/pdqa/internal/infrastructure/viewer"
)

func testLinks() viewer.Links {
	return viewer.NewLinks(domain.ViewerSettings{
		BaseURL:       "http://localhost:8080/pdf-viewer",
		PDFStorageURL: "https://bucket.example/pdfs/",
	})
}

func text(s string) *string { return &s }

func TestRenderSources(t *testing.T) {
	var buf bytes.Buffer
	RenderSources(&buf, []string{"papers/foo-bar.pdf:3:1", "garbage", "deep/dir/levodopa_trial.pdf:12:0"}, testLinks())
	out := buf.String()

	for _, want := range []string{
		domain.MsgSourcesHeading,
		"1. Foo bar (Page 3)",
		"View: http://localhost:8080/pdf-viewer?chunk=1&file=foo-bar.pdf&page=3",
		"PDF:  https://bucket.example/pdfs/foo-bar.pdf",
		"2. garbage " + domain.MsgUnparsedSource,
		"3. Levodopa trial (Page 12)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderQuery(t *testing.T) {
	tests := []struct {
		name    string
		query   domain.Query
		want    []string
		notWant []string
	}{
		{
			name:    "complete with sources",
			query:   domain.Query{QueryText: "What is PD?", AnswerText: text("A disorder."), Sources: []string{"pd.pdf:1:0"}, IsComplete: true},
			want:    []string{"Question: What is PD?", "Answer:\nA disorder.", domain.MsgSourcesHeading},
			notWant: []string{"in progress"},
		},
		{
			name:    "partial",
			query:   domain.Query{QueryText: "q", AnswerText: text("A dis"), Sources: []string{}},
			want:    []string{"Answer (in progress):\nA dis"},
			notWant: []string{domain.MsgSourcesHeading},
		},
		{
			name:  "nothing yet",
			query: domain.Query{QueryText: "q"},
			want:  []string{domain.MsgGenerating},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			RenderQuery(&buf, tt.query, testLinks())
			for _, w := range tt.want {
				if !strings.Contains(buf.String(), w) {
					t.Errorf("output missing %q:\n%s", w, buf.String())
				}
			}
			for _, w := range tt.notWant {
				if strings.Contains(buf.String(), w) {
					t.Errorf("output unexpectedly has %q:\n%s", w, buf.String())
				}
			}
		})
	}
}

func TestRenderShareHint(t *testing.T) {
	var buf bytes.Buffer
	RenderShareHint(&buf, "q-42", testLinks())
	out := buf.String()
	if !strings.Contains(out, "http://localhost:8080/?query_id=q-42") {
		t.Errorf("share link missing:\n%s", out)
	}
	if !strings.Contains(out, "pdqa status q-42") {
		t.Errorf("resume hint missing:\n%s", out)
	}

	buf.Reset()
	RenderShareHint(&buf, "", testLinks())
	if buf.Len() != 0 {
		t.Errorf("empty id should print nothing, got %q", buf.String())
	}
}

func TestProgressLabel(t *testing.T) {
	tests := []struct {
		state domain.SessionState
		want  string
	}{
		{domain.SessionState{Loading: true}, domain.MsgProcessing},
		{domain.SessionState{Polling: true}, domain.MsgGenerating},
		{domain.SessionState{Polling: true, Result: &domain.Query{AnswerText: text("x")}}, domain.MsgGenerating},
		{domain.SessionState{}, ""},
	}
	for _, tt := range tests {
		if got := ProgressLabel(tt.state); got != tt.want {
			t.Errorf("ProgressLabel(%+v) = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestProgressPlainOutput(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf)
	p.Update(domain.SessionState{Loading: true})
	p.Update(domain.SessionState{Loading: true})
	p.Update(domain.SessionState{Polling: true})
	p.Update(domain.SessionState{Polling: true, Result: &domain.Query{AnswerText: text("partial")}})
	p.Update(domain.SessionState{})
	p.Stop()

	want := domain.MsgProcessing + "\n" + domain.MsgGenerating + "\n"
	if buf.String() != want {
		t.Errorf("progress output = %q, want %q", buf.String(), want)
	}
}

func TestRenderHistory(t *testing.T) {
	at := time.Date(2026, 4, 11, 9, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	RenderHistory(&buf, []domain.HistoryRecord{
		{QueryID: "a", QueryText: "done", SubmittedAt: at, Complete: true},
		{QueryID: "b", QueryText: "broken", SubmittedAt: at, Error: "boom"},
		{QueryID: "c", QueryText: strings.Repeat("long ", 30), SubmittedAt: at},
	})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d:\n%s", len(lines), buf.String())
	}
	for i, status := range []string{"complete", "failed", "pending"} {
		if !strings.Contains(lines[i], status) {
			t.Errorf("line %d = %q, want status %s", i, lines[i], status)
		}
	}
	if !strings.HasSuffix(lines[2], "...") {
		t.Errorf("long question not truncated: %q", lines[2])
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short", 10, "short"},
		{"a  b\n c", 10, "a b c"},
		{"abcdefghij", 8, "abcde..."},
		{"ünïcödé text", 8, "ünïcö..."},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.width); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}

func TestAnalyzeHistory(t *testing.T) {
	stats := AnalyzeHistory([]domain.HistoryRecord{
		{QueryText: "What is PD?", Complete: true, Sources: []string{"a/foo.pdf:1:0", "foo.pdf:2:1", "bad"}},
		{QueryText: "what is  pd?", Complete: true, Sources: []string{"bar.pdf:1:0"}},
		{QueryText: "Tremor?", Error: "failed"},
		{QueryText: "Gait?"},
	})

	if stats.Total != 4 || stats.Completed != 2 || stats.Failed != 1 || stats.Pending != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if rate := stats.CompletionRate(); rate < 66.6 || rate > 66.7 {
		t.Errorf("CompletionRate() = %.2f", rate)
	}
	top := stats.TopQuestions(1)
	if len(top) != 1 || top[0].Question != "what is pd?" || top[0].Count != 2 {
		t.Errorf("TopQuestions(1) = %+v", top)
	}
	if stats.Documents["Foo"] != 2 || stats.Documents["Bar"] != 1 {
		t.Errorf("Documents = %v", stats.Documents)
	}

	var buf bytes.Buffer
	RenderHistoryStatistics(&buf, stats)
	if !strings.Contains(buf.String(), "Completion rate: 66.7%") {
		t.Errorf("statistics output:\n%s", buf.String())
	}
}

func TestSetNestedMapValue(t *testing.T) {
	root := map[string]interface{}{"viewer": "scalar"}
	if !SetNestedMapValue(root, []string{"viewer", "base_url"}, "http://x") {
		t.Fatal("SetNestedMapValue() = false")
	}
	viewerMap, ok := root["viewer"].(map[string]interface{})
	if !ok || viewerMap["base_url"] != "http://x" {
		t.Errorf("root = %v", root)
	}
	if SetNestedMapValue(root, nil, 1) {
		t.Error("empty path should fail")
	}
}

func TestParseYAMLValue(t *testing.T) {
	tests := []struct {
		in   string
		want interface{}
	}{
		{"true", true},
		{"42", 42},
		{"5s", "5s"},
		{"http://localhost:8000", "http://localhost:8000"},
		{"[unclosed", "[unclosed"},
	}
	for _, tt := range tests {
		if got := ParseYAMLValue(tt.in); got != tt.want {
			t.Errorf("ParseYAMLValue(%q) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}

func TestConfigMapRoundTrip(t *testing.T) {
	cfg := domain.Config{
		ConfigFormatVersion: "1",
		Polling:             domain.PollingSettings{Interval: 2 * time.Second},
		Viewer:              domain.ViewerSettings{RateBurst: 5},
	}
	m, err := ConfigToMap(cfg)
	if err != nil {
		t.Fatalf("ConfigToMap() error = %v", err)
	}
	SetNestedMapValue(m, []string{"polling", "interval"}, ParseYAMLValue("750ms"))
	SetNestedMapValue(m, []string{"viewer", "rate_burst"}, ParseYAMLValue("9"))

	got, err := MapToConfig(m)
	if err != nil {
		t.Fatalf("MapToConfig() error = %v", err)
	}
	if got.Polling.Interval != 750*time.Millisecond || got.Viewer.RateBurst != 9 {
		t.Errorf("config = %+v", got)
	}
}
