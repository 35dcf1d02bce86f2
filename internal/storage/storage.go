// Package storage keeps finished report artifacts: local JSON files, S3
// objects indexed in DynamoDB, and a Redis read-through cache.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/ignite/offer-diagnostics/internal/config"
	"github.com/ignite/offer-diagnostics/internal/report"
)

// ErrNotFound is returned when no report has the requested ID.
var ErrNotFound = errors.New("report not found")

var reportID = regexp.MustCompile(`^[A-Za-z0-9-]{1,64}$`)

// Store persists finished reports.
type Store interface {
	SaveReport(ctx context.Context, rep *report.Report) error
	GetReport(ctx context.Context, id string) (*report.Report, error)
}

// New builds the store selected by cfg.Type.
func New(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Type {
	case "aws":
		s, err := NewAWSStore(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("initializing AWS storage: %w", err)
		}
		return s, nil
	case "none":
		return NewMemoryStore(), nil
	default:
		return NewLocalStore(cfg.LocalPath)
	}
}

func validID(id string) error {
	if !reportID.MatchString(id) {
		return fmt.Errorf("invalid report id %q", id)
	}
	return nil
}

// LocalStore writes one indented JSON file per report under dir.
type LocalStore struct {
	dir string
	mu  sync.RWMutex
}

func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

func (s *LocalStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func (s *LocalStore) SaveReport(_ context.Context, rep *report.Report) error {
	if err := validID(rep.ID); err != nil {
		return err
	}
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// write then rename so readers never see a partial file
	tmp := s.path(rep.ID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path(rep.ID))
}

func (s *LocalStore) GetReport(_ context.Context, id string) (*report.Report, error) {
	if err := validID(id); err != nil {
		return nil, ErrNotFound
	}
	s.mu.RLock()
	data, err := os.ReadFile(s.path(id))
	s.mu.RUnlock()
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var rep report.Report
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("decoding report %s: %w", id, err)
	}
	return &rep, nil
}

// MemoryStore keeps reports for the life of the process.
type MemoryStore struct {
	mu      sync.RWMutex
	reports map[string]*report.Report
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{reports: make(map[string]*report.Report)}
}

func (s *MemoryStore) SaveReport(_ context.Context, rep *report.Report) error {
	s.mu.Lock()
	s.reports[rep.ID] = rep
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) GetReport(_ context.Context, id string) (*report.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rep, ok := s.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rep, nil
}
