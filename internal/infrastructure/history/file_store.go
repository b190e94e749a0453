package history

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/doeshing/pdqa/internal/domain"
	"github.com/doeshing/pdqa/internal/ports"
)

// FileStore appends history records to a jsonl file. Later lines for the
// same query id supersede earlier ones.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a store backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Save implements ports.HistoryRepository.
func (f *FileStore) Save(_ context.Context, record domain.HistoryRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(f.path), domain.DirectoryPermissions); err != nil {
		return err
	}
	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, domain.SecureFilePermissions)
	if err != nil {
		return err
	}
	defer file.Close()
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	_, err = file.Write(append(data, '\n'))
	return err
}

// Records returns history entries, newest first (limit/search optional).
func (f *FileStore) Records(_ context.Context, limit int, search string) ([]domain.HistoryRecord, error) {
	f.mu.Lock()
	records, err := f.load()
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(search)
	var out []domain.HistoryRecord
	for _, rec := range records {
		if search != "" && !matches(rec, needle) {
			continue
		}
		out = append(out, rec)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Prune rewrites the file without entries submitted before olderThan.
func (f *FileStore) Prune(_ context.Context, olderThan time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	records, err := f.load()
	if err != nil {
		return 0, err
	}
	kept := records[:0]
	removed := 0
	for _, rec := range records {
		if rec.SubmittedAt.Before(olderThan) {
			removed++
			continue
		}
		kept = append(kept, rec)
	}
	if removed == 0 {
		return 0, nil
	}
	return removed, f.rewrite(kept)
}

// Clear removes the history file.
func (f *FileStore) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Location returns the backing file path.
func (f *FileStore) Location() string {
	return f.path
}

// Close is a no-op; the file is opened per operation.
func (f *FileStore) Close() error {
	return nil
}

// load reads the file, collapses duplicate ids and sorts newest first.
// Malformed lines are skipped.
func (f *FileStore) load() ([]domain.HistoryRecord, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	byID := make(map[string]domain.HistoryRecord)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var rec domain.HistoryRecord
		if err := json.Unmarshal(line, &rec); err != nil || rec.QueryID == "" {
			continue
		}
		if prev, ok := byID[rec.QueryID]; ok && !prev.SubmittedAt.IsZero() {
			rec.SubmittedAt = prev.SubmittedAt
		}
		byID[rec.QueryID] = rec
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	records := make([]domain.HistoryRecord, 0, len(byID))
	for _, rec := range byID {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].SubmittedAt.After(records[j].SubmittedAt)
	})
	return records, nil
}

func (f *FileStore) rewrite(records []domain.HistoryRecord) error {
	var buf bytes.Buffer
	for i := len(records) - 1; i >= 0; i-- {
		data, err := json.Marshal(records[i])
		if err != nil {
			return err
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), domain.SecureFilePermissions); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}

func matches(rec domain.HistoryRecord, needle string) bool {
	return strings.EqualFold(rec.QueryID, needle) ||
		strings.Contains(strings.ToLower(rec.QueryText), needle) ||
		strings.Contains(strings.ToLower(rec.AnswerText), needle)
}

var _ ports.HistoryRepository = (*FileStore)(nil)
