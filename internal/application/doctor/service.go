package doctor

import (
	"context"
	"fmt"
	"time"

	configapp "github.com/doeshing/pdqa/internal/application/config"
	"github.com/doeshing/pdqa/internal/domain"
	"github.com/doeshing/pdqa/internal/ports"
)

// Service runs environment diagnostics.
type Service struct {
	ConfigProvider ports.ConfigProvider
	Client         ports.QueryClient
	History        ports.HistoryRepository
	// HistoryErr explains why History is nil, if it is.
	HistoryErr    error
	HealthTimeout time.Duration
}

// Run executes checks and returns a report.
func (s *Service) Run(ctx context.Context) (domain.HealthReport, error) {
	var checks []domain.HealthCheck

	cfg, err := s.ConfigProvider.Load(ctx)
	if err != nil {
		checks = append(checks, fail("Config file", fmt.Sprintf("load failed: %v", err)))
		return domain.HealthReport{Checks: checks}, err
	}
	if err := configapp.Validate(cfg); err != nil {
		checks = append(checks, fail("Config file", err.Error()))
	} else {
		checks = append(checks, ok("Config file", fmt.Sprintf("loaded (format %s)", cfg.ConfigFormatVersion)))
	}

	checks = append(checks, s.backendCheck(ctx, cfg.API))
	checks = append(checks, s.historyCheck(ctx, cfg.History))
	checks = append(checks, viewerCheck(cfg.Viewer))

	return domain.HealthReport{Checks: checks}, nil
}

func (s *Service) backendCheck(ctx context.Context, api domain.APIConfig) domain.HealthCheck {
	if s.Client == nil {
		return warn("Query backend", "client not initialized")
	}
	timeout := s.HealthTimeout
	if timeout <= 0 {
		timeout = domain.DefaultHealthTimeout
	}
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if !s.Client.CheckHealth(probeCtx) {
		return fail("Query backend", fmt.Sprintf("%s is not responding", api.BaseURL))
	}
	return ok("Query backend", fmt.Sprintf("%s is healthy", api.BaseURL))
}

func (s *Service) historyCheck(ctx context.Context, settings domain.HistorySettings) domain.HealthCheck {
	if !settings.Enabled {
		return warn("History", "disabled")
	}
	if s.History == nil {
		if s.HistoryErr != nil {
			return fail("History", s.HistoryErr.Error())
		}
		return warn("History", "store not initialized")
	}
	records, err := s.History.Records(ctx, 1, "")
	if err != nil {
		return fail("History", fmt.Sprintf("%s: %v", s.History.Location(), err))
	}
	detail := fmt.Sprintf("%s backend at %s", settings.Backend, s.History.Location())
	if len(records) == 0 {
		detail += " (empty)"
	}
	return ok("History", detail)
}

func viewerCheck(viewer domain.ViewerSettings) domain.HealthCheck {
	if viewer.ChunkServiceURL == "" {
		return warn("Citation viewer", "no chunk service configured; links open at page level")
	}
	return ok("Citation viewer", fmt.Sprintf("chunk service %s", viewer.ChunkServiceURL))
}

func ok(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthOK, Details: details}
}

func warn(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthWarn, Details: details}
}

func fail(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthError, Details: details}
}
