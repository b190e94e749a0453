package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/doeshing/pdqa/internal/domain"
	"github.com/doeshing/pdqa/internal/infrastructure/clock"
)

type reply struct {
	query domain.Query
	err   error
	gate  chan struct{}
}

type fakeClient struct {
	mu        sync.Mutex
	submits   []reply
	gets      []reply
	submitted []string
	fetched   []string
}

func (f *fakeClient) SubmitQuery(ctx context.Context, text string) (domain.Query, error) {
	f.mu.Lock()
	f.submitted = append(f.submitted, text)
	r := next(&f.submits)
	f.mu.Unlock()
	if r.gate != nil {
		<-r.gate
	}
	return r.query, r.err
}

func (f *fakeClient) GetQuery(ctx context.Context, id string) (domain.Query, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, id)
	r := next(&f.gets)
	f.mu.Unlock()
	if r.gate != nil {
		<-r.gate
	}
	return r.query, r.err
}

func (f *fakeClient) CheckHealth(ctx context.Context) bool { return true }

func (f *fakeClient) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fetched)
}

func next(queue *[]reply) reply {
	if len(*queue) == 0 {
		return reply{err: errors.New("unexpected call")}
	}
	r := (*queue)[0]
	*queue = (*queue)[1:]
	return r
}

func pending(id, text string) domain.Query {
	return domain.Query{QueryID: id, QueryText: text, Sources: []string{}}
}

func complete(id, text, answer string, sources ...string) domain.Query {
	if sources == nil {
		sources = []string{}
	}
	return domain.Query{QueryID: id, QueryText: text, AnswerText: &answer, Sources: sources, IsComplete: true}
}

func newController(client *fakeClient) (*Controller, *clock.ManualScheduler) {
	sched := clock.NewManualScheduler()
	c := New(client, sched, Options{Interval: time.Second})
	return c, sched
}

func TestSubmitThenPollToCompletion(t *testing.T) {
	client := &fakeClient{
		submits: []reply{{query: pending("q1", "What causes tremor?")}},
		gets:    []reply{{query: complete("q1", "What causes tremor?", "Dopamine loss.", "docs/pd.pdf:3:1")}},
	}
	c, sched := newController(client)
	defer c.Close()

	id, ok := c.Submit(context.Background(), "What causes tremor?")
	if !ok || id != "q1" {
		t.Fatalf("Submit() = %q, %v", id, ok)
	}
	st := c.State()
	if st.Loading || !st.Polling || st.Result == nil || st.Result.QueryID != "q1" {
		t.Fatalf("after submit state = %+v", st)
	}
	if sched.Active() != 1 {
		t.Fatalf("active timers = %d, want 1", sched.Active())
	}
	if got := sched.Intervals(); len(got) != 1 || got[0] != time.Second {
		t.Errorf("intervals = %v", got)
	}

	sched.Tick()

	st = c.State()
	if st.Polling || st.Loading || st.Error != "" {
		t.Fatalf("after completion state = %+v", st)
	}
	if st.Result.Answer() != "Dopamine loss." || len(st.Result.Sources) != 1 {
		t.Errorf("result = %+v", st.Result)
	}
	if sched.Active() != 0 {
		t.Errorf("timer still armed after completion")
	}
	if sched.Tick() != 0 || client.fetchCount() != 1 {
		t.Errorf("no further polls expected, fetched %d", client.fetchCount())
	}
}

func TestSubmitAlreadyComplete(t *testing.T) {
	client := &fakeClient{submits: []reply{{query: complete("q1", "t", "a")}}}
	c, sched := newController(client)
	defer c.Close()

	if _, ok := c.Submit(context.Background(), "t"); !ok {
		t.Fatal("Submit() failed")
	}
	if st := c.State(); st.Polling {
		t.Errorf("complete result must not poll: %+v", st)
	}
	if sched.Armed() != 0 {
		t.Errorf("no timer should be armed, armed %d", sched.Armed())
	}
}

func TestSubmitFailureKeepsPreviousResult(t *testing.T) {
	client := &fakeClient{
		submits: []reply{
			{query: complete("q0", "old", "old answer")},
			{err: &domain.TransportError{Op: "submit query", StatusCode: 500}},
		},
	}
	c, sched := newController(client)
	defer c.Close()

	c.Submit(context.Background(), "old")
	id, ok := c.Submit(context.Background(), "new")
	if ok || id != "" {
		t.Fatalf("Submit() = %q, %v, want failure", id, ok)
	}
	st := c.State()
	if st.Loading || st.Polling {
		t.Errorf("state = %+v", st)
	}
	if st.Error == "" {
		t.Error("error message should be set")
	}
	if st.Result == nil || st.Result.QueryID != "q0" {
		t.Errorf("previous result should be kept, got %+v", st.Result)
	}
	if sched.Active() != 0 {
		t.Error("no timer expected after failure")
	}
}

func TestSubmitFailureWithPlainErrorUsesFallback(t *testing.T) {
	client := &fakeClient{submits: []reply{{err: errors.New("socket closed")}}}
	c, _ := newController(client)
	defer c.Close()

	c.Submit(context.Background(), "q")
	if got := c.State().Error; got != domain.MsgSubmitFailed {
		t.Errorf("error = %q, want %q", got, domain.MsgSubmitFailed)
	}
}

func TestSubmitClearsPreviousError(t *testing.T) {
	client := &fakeClient{
		submits: []reply{
			{err: errors.New("boom")},
			{query: pending("q2", "again")},
		},
	}
	c, _ := newController(client)
	defer c.Close()

	c.Submit(context.Background(), "first")
	c.Submit(context.Background(), "again")
	if st := c.State(); st.Error != "" || !st.Polling {
		t.Errorf("state = %+v", st)
	}
}

func TestLoadingVisibleWhileSubmitInFlight(t *testing.T) {
	gate := make(chan struct{})
	client := &fakeClient{submits: []reply{{query: pending("q1", "t"), gate: gate}}}
	c, _ := newController(client)
	defer c.Close()

	done := make(chan struct{})
	go func() {
		c.Submit(context.Background(), "t")
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for !c.State().Loading {
		select {
		case <-deadline:
			t.Fatal("loading flag never set")
		default:
			time.Sleep(time.Millisecond)
		}
	}
	close(gate)
	<-done
	if c.State().Loading {
		t.Error("loading should clear after the response")
	}
}

func TestStatusFailureStopsPolling(t *testing.T) {
	client := &fakeClient{
		submits: []reply{{query: pending("q1", "t")}},
		gets:    []reply{{err: &domain.TransportError{Op: "get query", Err: errors.New("refused")}}},
	}
	c, sched := newController(client)
	defer c.Close()

	c.Submit(context.Background(), "t")
	sched.Tick()

	st := c.State()
	if st.Polling || st.Error == "" {
		t.Errorf("state = %+v", st)
	}
	if st.Result == nil || st.Result.QueryID != "q1" {
		t.Error("previous result should be kept")
	}
	if sched.Active() != 0 {
		t.Error("timer should be torn down")
	}
}

func TestCompletionIsIdempotent(t *testing.T) {
	done := complete("q1", "t", "answer")
	client := &fakeClient{
		submits: []reply{{query: pending("q1", "t")}},
		gets:    []reply{{query: done}, {query: done}},
	}
	c, _ := newController(client)
	defer c.Close()

	c.Submit(context.Background(), "t")
	c.FetchStatus(context.Background(), "q1")
	first := c.State()
	c.FetchStatus(context.Background(), "q1")
	second := c.State()

	if first.Polling || second.Polling {
		t.Fatal("polling should stay off")
	}
	if first.Result.Answer() != second.Result.Answer() || first.Loading != second.Loading {
		t.Errorf("states differ: %+v vs %+v", first, second)
	}
}

func TestCompletionIsMonotonic(t *testing.T) {
	client := &fakeClient{
		submits: []reply{{query: pending("q1", "t")}},
		gets: []reply{
			{query: complete("q1", "t", "answer")},
			{query: pending("q1", "t")},
		},
	}
	c, sched := newController(client)
	defer c.Close()

	c.Submit(context.Background(), "t")
	sched.Tick()
	c.FetchStatus(context.Background(), "q1")

	if c.State().Polling {
		t.Fatal("polling resumed for a completed query")
	}
	if sched.Active() != 0 {
		t.Error("timer re-armed for a completed query")
	}
}

func TestCompletedResultSurvivesRegressedReply(t *testing.T) {
	client := &fakeClient{
		submits: []reply{{query: complete("q1", "t", "answer", "pd.pdf:2:1")}},
		gets:    []reply{{query: pending("q1", "t")}},
	}
	c, sched := newController(client)
	defer c.Close()

	c.Submit(context.Background(), "t")
	c.FetchStatus(context.Background(), "q1")

	st := c.State()
	if st.Polling || sched.Active() != 0 {
		t.Fatalf("polling = %v, timers = %d", st.Polling, sched.Active())
	}
	if st.Result == nil || !st.Result.IsComplete {
		t.Fatalf("result = %+v, want completed", st.Result)
	}
	if got := st.Result.Answer(); got != "answer" {
		t.Errorf("answer = %q", got)
	}
	if len(st.Result.Sources) != 1 || st.Result.Sources[0] != "pd.pdf:2:1" {
		t.Errorf("sources = %v", st.Result.Sources)
	}
}

func TestAtMostOneTimer(t *testing.T) {
	client := &fakeClient{
		submits: []reply{{query: pending("q1", "t")}},
		gets: []reply{
			{query: pending("q1", "t")},
			{query: pending("q1", "t")},
			{query: pending("q1", "t")},
		},
	}
	c, sched := newController(client)
	defer c.Close()

	c.Submit(context.Background(), "t")
	sched.Tick()
	sched.Tick()
	c.FetchStatus(context.Background(), "q1")

	if sched.Active() != 1 {
		t.Errorf("active timers = %d, want 1", sched.Active())
	}
	if sched.Armed() != 1 {
		t.Errorf("timer re-armed %d times for the same query", sched.Armed())
	}
}

func TestNewSubmitReplacesTimer(t *testing.T) {
	client := &fakeClient{
		submits: []reply{
			{query: pending("q1", "first")},
			{query: pending("q2", "second")},
		},
		gets: []reply{{query: pending("q2", "second")}},
	}
	c, sched := newController(client)
	defer c.Close()

	c.Submit(context.Background(), "first")
	c.Submit(context.Background(), "second")
	if sched.Active() != 1 {
		t.Fatalf("active timers = %d, want 1", sched.Active())
	}
	sched.Tick()
	client.mu.Lock()
	fetched := append([]string(nil), client.fetched...)
	client.mu.Unlock()
	if len(fetched) != 1 || fetched[0] != "q2" {
		t.Errorf("polled %v, want [q2]", fetched)
	}
}

func TestTickSkippedWhileRequestOutstanding(t *testing.T) {
	gate := make(chan struct{})
	client := &fakeClient{
		submits: []reply{{query: pending("q1", "t")}},
		gets:    []reply{{query: pending("q1", "t"), gate: gate}},
	}
	c, sched := newController(client)
	defer c.Close()

	c.Submit(context.Background(), "t")

	done := make(chan struct{})
	go func() {
		c.FetchStatus(context.Background(), "q1")
		close(done)
	}()
	for client.fetchCount() == 0 {
		time.Sleep(time.Millisecond)
	}

	sched.Tick()
	if client.fetchCount() != 1 {
		t.Errorf("tick issued an overlapping request")
	}
	close(gate)
	<-done
}

func TestCloseDiscardsLateResponse(t *testing.T) {
	gate := make(chan struct{})
	client := &fakeClient{
		submits: []reply{{query: pending("q1", "t")}},
		gets:    []reply{{query: complete("q1", "t", "late"), gate: gate}},
	}
	c, sched := newController(client)

	c.Submit(context.Background(), "t")

	done := make(chan struct{})
	go func() {
		sched.Tick()
		close(done)
	}()
	for client.fetchCount() == 0 {
		time.Sleep(time.Millisecond)
	}

	c.Close()
	close(gate)
	<-done

	st := c.State()
	if st.Result.HasAnswer() {
		t.Error("response delivered after Close must be discarded")
	}
	if sched.Active() != 0 {
		t.Error("Close must cancel the timer")
	}
	if _, ok := c.Submit(context.Background(), "again"); ok {
		t.Error("Submit after Close must fail")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	c, _ := newController(&fakeClient{})
	c.Close()
	c.Close()
}

func TestResumeTracksExistingQuery(t *testing.T) {
	client := &fakeClient{
		gets: []reply{
			{query: pending("shared", "t")},
			{query: complete("shared", "t", "answer")},
		},
	}
	c, sched := newController(client)
	defer c.Close()

	q, ok := c.Resume(context.Background(), "  shared ")
	if !ok || q.QueryID != "shared" {
		t.Fatalf("Resume() = %+v, %v", q, ok)
	}
	if !c.State().Polling || sched.Active() != 1 {
		t.Fatal("resume should start polling")
	}
	sched.Tick()
	if st := c.State(); st.Polling || st.Result.Answer() != "answer" {
		t.Errorf("state = %+v", st)
	}
}

func TestResumeRejectsBlankID(t *testing.T) {
	client := &fakeClient{}
	c, _ := newController(client)
	defer c.Close()

	if _, ok := c.Resume(context.Background(), "  "); ok {
		t.Fatal("blank id should be rejected")
	}
	if client.fetchCount() != 0 {
		t.Error("no request expected")
	}
}

func TestWaitReturnsWhenIdle(t *testing.T) {
	client := &fakeClient{
		submits: []reply{{query: pending("q1", "t")}},
		gets:    []reply{{query: complete("q1", "t", "answer")}},
	}
	c, sched := newController(client)
	defer c.Close()

	c.Submit(context.Background(), "t")

	result := make(chan domain.SessionState, 1)
	go func() {
		st, err := c.Wait(context.Background())
		if err != nil {
			t.Errorf("Wait() error = %v", err)
		}
		result <- st
	}()

	sched.Tick()
	select {
	case st := <-result:
		if st.Result.Answer() != "answer" {
			t.Errorf("state = %+v", st)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return")
	}
}

func TestWaitHonoursContext(t *testing.T) {
	client := &fakeClient{submits: []reply{{query: pending("q1", "t")}}}
	c, _ := newController(client)
	defer c.Close()

	c.Submit(context.Background(), "t")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := c.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() error = %v", err)
	}
}

func TestWaitAfterClose(t *testing.T) {
	client := &fakeClient{submits: []reply{{query: pending("q1", "t")}}}
	c, _ := newController(client)

	c.Submit(context.Background(), "t")
	c.Close()
	if _, err := c.Wait(context.Background()); !errors.Is(err, domain.ErrSessionClosed) {
		t.Errorf("Wait() error = %v", err)
	}
}

func TestOnChangeReceivesTransitions(t *testing.T) {
	client := &fakeClient{
		submits: []reply{{query: pending("q1", "t")}},
		gets:    []reply{{query: complete("q1", "t", "answer")}},
	}
	var mu sync.Mutex
	var seen []domain.SessionState
	sched := clock.NewManualScheduler()
	c := New(client, sched, Options{OnChange: func(st domain.SessionState) {
		mu.Lock()
		seen = append(seen, st)
		mu.Unlock()
	}})
	defer c.Close()

	c.Submit(context.Background(), "t")
	sched.Tick()

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 3 {
		t.Fatalf("got %d transitions, want 3", len(seen))
	}
	if !seen[0].Loading || !seen[1].Polling || seen[2].Polling {
		t.Errorf("unexpected transitions %+v", seen)
	}
}

func TestStateIsASnapshot(t *testing.T) {
	client := &fakeClient{submits: []reply{{query: complete("q1", "t", "answer", "a.pdf:1:0")}}}
	c, _ := newController(client)
	defer c.Close()

	c.Submit(context.Background(), "t")
	st := c.State()
	st.Result.Sources[0] = "mutated"
	if c.State().Result.Sources[0] != "a.pdf:1:0" {
		t.Error("State must not expose internal slices")
	}
}
