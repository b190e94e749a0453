package helpers

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/doeshing/pdqa/internal/domain"
	"github.com/doeshing/pdqa/internal/infrastructure/viewer"
)

const questionPreviewWidth = 60

// RenderQuery prints the question, the answer so far and its sources.
func RenderQuery(out io.Writer, q domain.Query, links viewer.Links) {
	if q.QueryText != "" {
		fmt.Fprintf(out, "Question: %s\n\n", q.QueryText)
	}

	switch {
	case q.IsComplete:
		fmt.Fprintln(out, "Answer:")
	case q.HasAnswer():
		fmt.Fprintln(out, "Answer (in progress):")
	default:
		fmt.Fprintln(out, domain.MsgGenerating)
		return
	}
	fmt.Fprintln(out, strings.TrimSpace(q.Answer()))

	if len(q.Sources) > 0 {
		fmt.Fprintln(out)
		RenderSources(out, q.Sources, links)
	}
}

// RenderSources prints each citation with its viewer and PDF links.
// Malformed entries are shown verbatim.
func RenderSources(out io.Writer, sources []string, links viewer.Links) {
	fmt.Fprintln(out, domain.MsgSourcesHeading)
	for i, entry := range domain.ParseCitations(sources) {
		if entry.Citation == nil {
			fmt.Fprintf(out, "  %d. %s %s\n", i+1, entry.Raw, domain.MsgUnparsedSource)
			continue
		}
		c := *entry.Citation
		fmt.Fprintf(out, "  %d. %s (Page %d)\n", i+1, c.DisplayName, c.Page)
		fmt.Fprintf(out, "     View: %s\n", links.ViewerURL(c))
		fmt.Fprintf(out, "     PDF:  %s\n", links.PDFURL(c.Filename))
	}
}

// RenderLocation prints a resolved chunk region.
func RenderLocation(out io.Writer, loc domain.ChunkLocation) {
	fmt.Fprintf(out, "     Region: page %d chunk %d (%.0f,%.0f)-(%.0f,%.0f)\n",
		loc.Page, loc.ChunkIndex,
		loc.StartOffset.X, loc.StartOffset.Y,
		loc.EndOffset.X, loc.EndOffset.Y)
	if text := strings.TrimSpace(loc.Text); text != "" {
		fmt.Fprintf(out, "     Text: %s\n", Truncate(text, 200))
	}
}

// RenderShareHint tells the user how to come back to a query.
func RenderShareHint(out io.Writer, queryID string, links viewer.Links) {
	if queryID == "" {
		return
	}
	fmt.Fprintf(out, "\nQuery ID: %s\n", queryID)
	if share := links.ShareURL(queryID); share != "" {
		fmt.Fprintf(out, "Share:    %s\n", share)
	}
	fmt.Fprintf(out, "Resume:   pdqa status %s\n", queryID)
}

// RenderHistory prints one line per record, newest first.
func RenderHistory(out io.Writer, records []domain.HistoryRecord) {
	for _, rec := range records {
		fmt.Fprintf(out, "%s | %-8s | %s | %s\n",
			rec.SubmittedAt.Local().Format(domain.TimestampFormat),
			historyStatus(rec),
			rec.QueryID,
			Truncate(rec.QueryText, questionPreviewWidth))
	}
}

// RenderHistoryStatistics prints the output of AnalyzeHistory.
func RenderHistoryStatistics(out io.Writer, stats HistoryStatistics) {
	fmt.Fprintf(out, "Entries analyzed: %d\nCompleted: %d\nFailed: %d\nPending: %d\nCompletion rate: %.1f%%\n",
		stats.Total, stats.Completed, stats.Failed, stats.Pending, stats.CompletionRate())

	fmt.Fprintln(out, "Top questions:")
	for _, q := range stats.TopQuestions(5) {
		fmt.Fprintf(out, "  %s (%d)\n", Truncate(q.Question, questionPreviewWidth), q.Count)
	}

	if len(stats.Documents) > 0 {
		fmt.Fprintln(out, "Most cited documents:")
		docs := make([]QuestionStatistic, 0, len(stats.Documents))
		for name, n := range stats.Documents {
			docs = append(docs, QuestionStatistic{Question: name, Count: n})
		}
		sortStatistics(docs)
		if shouldLimitResults(5, len(docs)) {
			docs = docs[:5]
		}
		for _, d := range docs {
			fmt.Fprintf(out, "  %s (%d)\n", d.Question, d.Count)
		}
	}
}

// RenderHealthReport prints one line per check.
func RenderHealthReport(out io.Writer, report domain.HealthReport) {
	for _, check := range report.Checks {
		fmt.Fprintf(out, "[%s] %s - %s\n",
			strings.ToUpper(string(check.Status)),
			check.Name,
			check.Details)
	}
}

// Truncate shortens s to at most width runes, marking the cut with "...".
func Truncate(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if width <= 3 || len(runes) <= width {
		return s
	}
	return string(runes[:width-3]) + "..."
}

func historyStatus(rec domain.HistoryRecord) string {
	switch {
	case rec.Error != "":
		return "failed"
	case rec.Complete:
		return "complete"
	default:
		return "pending"
	}
}

// ProgressLabel is the status line for a session, or "" once it is idle.
func ProgressLabel(state domain.SessionState) string {
	switch {
	case state.Loading:
		return domain.MsgProcessing
	case state.Polling:
		return domain.MsgGenerating
	default:
		return ""
	}
}

// Progress reflects session transitions on a status stream. On a terminal
// it drives a spinner; otherwise it prints each distinct label once.
type Progress struct {
	out     io.Writer
	spinner *Spinner
	mu      sync.Mutex
	last    string
}

// NewProgress builds a Progress writing to out.
func NewProgress(out io.Writer) *Progress {
	p := &Progress{out: out}
	if IsTerminal(out) {
		p.spinner = NewSpinner(out)
	}
	return p
}

// Update is suitable as a session OnChange callback.
func (p *Progress) Update(state domain.SessionState) {
	label := ProgressLabel(state)

	p.mu.Lock()
	defer p.mu.Unlock()
	if label == "" {
		p.stopLocked()
		return
	}
	if p.spinner != nil {
		if state.Result != nil && state.Result.HasAnswer() {
			label = fmt.Sprintf("%s (%d characters so far)", label, len([]rune(state.Result.Answer())))
		}
		p.spinner.SetLabel(label)
		p.spinner.Start()
		return
	}
	if label != p.last {
		fmt.Fprintln(p.out, label)
		p.last = label
	}
}

// Stop clears any running spinner.
func (p *Progress) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *Progress) stopLocked() {
	if p.spinner != nil {
		p.spinner.Stop()
	}
	p.last = ""
}
