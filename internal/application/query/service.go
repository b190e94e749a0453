package query

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/doeshing/pdqa/internal/application/session"
	"github.com/doeshing/pdqa/internal/domain"
	"github.com/doeshing/pdqa/internal/ports"
)

// ErrQueryFailed wraps the display message of a session that ended in error.
var ErrQueryFailed = errors.New("query failed")

// Service orchestrates the query lifecycle end-to-end: submit or resume,
// poll until complete, and record the outcome in history.
type Service struct {
	Client       ports.QueryClient
	Scheduler    ports.Scheduler
	History      ports.HistoryRepository
	Logger       ports.Logger
	PollInterval time.Duration
	// Retention of history records; 0 keeps them forever.
	Retention time.Duration
	Now       func() time.Time
}

// Request describes one ask or resume.
type Request struct {
	Question string
	QueryID  string
	// Wait keeps polling until the answer is complete.
	Wait     bool
	OnChange func(domain.SessionState)
}

// Ask submits req.Question and, when req.Wait is set, polls until the
// backend reports completion or ctx ends.
func (s *Service) Ask(ctx context.Context, req Request) (domain.SessionState, error) {
	if err := s.ready(); err != nil {
		return domain.SessionState{}, err
	}
	text := strings.TrimSpace(req.Question)
	if text == "" {
		return domain.SessionState{}, domain.ErrEmptyQuestion
	}

	ctrl := s.newController(req)
	defer ctrl.Close()

	if _, ok := ctrl.Submit(ctx, text); !ok {
		return s.finish(ctx, ctrl.State(), nil)
	}
	state := ctrl.State()
	s.record(ctx, state)
	s.Logger.Info("query accepted", map[string]interface{}{"query_id": state.QueryID()})

	if !req.Wait {
		return state, nil
	}
	state, err := ctrl.Wait(ctx)
	return s.finish(ctx, state, err)
}

// Resume starts tracking an existing query id without submitting.
func (s *Service) Resume(ctx context.Context, req Request) (domain.SessionState, error) {
	if err := s.ready(); err != nil {
		return domain.SessionState{}, err
	}
	id := strings.TrimSpace(req.QueryID)
	if id == "" {
		return domain.SessionState{}, errors.New("query id is required")
	}

	ctrl := s.newController(req)
	defer ctrl.Close()

	if _, ok := ctrl.Resume(ctx, id); !ok || !req.Wait {
		return s.finish(ctx, ctrl.State(), nil)
	}
	state, err := ctrl.Wait(ctx)
	return s.finish(ctx, state, err)
}

// Health probes backend liveness within timeout.
func (s *Service) Health(ctx context.Context, timeout time.Duration) bool {
	if s.Client == nil {
		return false
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return s.Client.CheckHealth(ctx)
}

func (s *Service) ready() error {
	if s.Client == nil || s.Scheduler == nil || s.Logger == nil {
		return errors.New("query.Service dependencies not satisfied")
	}
	return nil
}

func (s *Service) newController(req Request) *session.Controller {
	return session.New(s.Client, s.Scheduler, session.Options{
		Interval: s.PollInterval,
		Logger:   s.Logger,
		OnChange: req.OnChange,
	})
}

func (s *Service) finish(ctx context.Context, state domain.SessionState, waitErr error) (domain.SessionState, error) {
	s.record(ctx, state)
	if waitErr != nil {
		return state, waitErr
	}
	if state.Error != "" {
		return state, fmt.Errorf("%w: %s", ErrQueryFailed, state.Error)
	}
	return state, nil
}

// record is best-effort: history problems never fail a query.
func (s *Service) record(ctx context.Context, state domain.SessionState) {
	if s.History == nil {
		return
	}
	rec, ok := domain.RecordFromState(state, s.now())
	if !ok {
		return
	}
	// A cancelled ask still deserves its record.
	ctx = context.WithoutCancel(ctx)
	if s.Retention > 0 {
		if n, err := s.History.Prune(ctx, s.now().Add(-s.Retention)); err != nil {
			s.Logger.Warn("history prune failed", map[string]interface{}{"error": err.Error()})
		} else if n > 0 {
			s.Logger.Debug("history pruned", map[string]interface{}{"removed": n})
		}
	}
	if err := s.History.Save(ctx, rec); err != nil {
		s.Logger.Warn("history save failed", map[string]interface{}{"error": err.Error(), "query_id": rec.QueryID})
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
