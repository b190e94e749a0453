package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/doeshing/pdqa/internal/domain"
	"github.com/doeshing/pdqa/internal/ports"
)

// ErrDisabled is returned by Open when history is turned off.
var ErrDisabled = errors.New("history is disabled")

// Store is a history repository that holds resources.
type Store interface {
	ports.HistoryRepository
	io.Closer
}

// Open builds the store selected by settings.Backend.
func Open(ctx context.Context, settings domain.HistorySettings) (Store, error) {
	if !settings.Enabled {
		return nil, ErrDisabled
	}
	switch settings.Backend {
	case domain.HistoryBackendSQLite, "":
		store, err := NewSQLiteStore(settings.Path)
		if err != nil {
			return nil, err
		}
		return store, nil
	case domain.HistoryBackendFile:
		return NewFileStore(settings.Path), nil
	case domain.HistoryBackendRedis:
		store, err := NewRedisStore(ctx, settings.RedisAddr)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown history backend %q", settings.Backend)
	}
}

// ExportJSONL writes every record, newest first, one JSON object per line.
func ExportJSONL(ctx context.Context, repo ports.HistoryRepository, w io.Writer) (int, error) {
	records, err := repo.Records(ctx, 0, "")
	if err != nil {
		return 0, err
	}
	enc := json.NewEncoder(w)
	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return i, err
		}
	}
	return len(records), nil
}
