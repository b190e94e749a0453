package app

import (
	"context"
	"errors"
	"time"

	"github.com/doeshing/pdqa/internal/application/doctor"
	"github.com/doeshing/pdqa/internal/application/query"
	"github.com/doeshing/pdqa/internal/domain"
	"github.com/doeshing/pdqa/internal/infrastructure/api"
	"github.com/doeshing/pdqa/internal/infrastructure/clock"
	"github.com/doeshing/pdqa/internal/infrastructure/config"
	"github.com/doeshing/pdqa/internal/infrastructure/history"
	"github.com/doeshing/pdqa/internal/infrastructure/viewer"
	"github.com/doeshing/pdqa/internal/pkg/logger"
	"github.com/doeshing/pdqa/internal/ports"
)

// Container wires up application services with infrastructure adapters.
type Container struct {
	Config         domain.Config
	ConfigProvider ports.ConfigProvider
	ConfigLoader   *config.FileLoader
	Logger         *logger.ZapLogger
	Client         ports.QueryClient
	QueryService   *query.Service
	DoctorService  *doctor.Service
	// HistoryStore is nil when history is disabled or could not be opened;
	// HistoryErr then says why.
	HistoryStore history.Store
	HistoryErr   error
	Links        viewer.Links
	Resolver     ports.CitationResolver
	Highlighter  ports.Highlighter
}

// BuildContainer constructs the dependency graph.
func BuildContainer(ctx context.Context, verbose bool) (*Container, error) {
	cfgLoader := config.NewFileLoader("")
	cfg, err := cfgLoader.Load(ctx)
	if err != nil {
		return nil, err
	}

	log := logger.New(verbose, cfg.Log.Level, cfg.Log.Format)
	client := api.NewClient(cfg.API, nil, log)

	var store history.Store
	historyErr := history.ErrDisabled
	if cfg.History.Enabled {
		store, historyErr = history.Open(ctx, cfg.History)
		if historyErr != nil {
			log.Warn("history unavailable", map[string]interface{}{"backend": cfg.History.Backend, "error": historyErr.Error()})
		}
	}

	queryService := &query.Service{
		Client:       client,
		Scheduler:    clock.NewTickerScheduler(),
		Logger:       log,
		PollInterval: cfg.Polling.Interval,
		Retention:    time.Duration(cfg.History.RetentionDays) * 24 * time.Hour,
	}
	if store != nil {
		queryService.History = store
	}

	doctorService := &doctor.Service{
		ConfigProvider: cfgLoader,
		Client:         client,
		HealthTimeout:  domain.DefaultHealthTimeout,
	}
	if store != nil {
		doctorService.History = store
	} else if !errors.Is(historyErr, history.ErrDisabled) {
		doctorService.HistoryErr = historyErr
	}

	return &Container{
		Config:         cfg,
		ConfigProvider: cfgLoader,
		ConfigLoader:   cfgLoader,
		Logger:         log,
		Client:         client,
		QueryService:   queryService,
		DoctorService:  doctorService,
		HistoryStore:   store,
		HistoryErr:     historyErr,
		Links:          viewer.NewLinks(cfg.Viewer),
		Resolver:       viewer.NewHTTPResolver(cfg.Viewer.ChunkServiceURL, nil, log),
		Highlighter:    viewer.IframeHighlighter{},
	}, nil
}

// NewViewerServer builds the local citation viewer.
func (c *Container) NewViewerServer() *viewer.Server {
	return viewer.NewServer(c.Config.Viewer, c.Resolver, c.Highlighter, c.Logger)
}

// Close releases held resources.
func (c *Container) Close() error {
	c.Logger.Sync()
	if c.HistoryStore != nil {
		return c.HistoryStore.Close()
	}
	return nil
}
