package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Service loads, mutates and stores workspaces. Mutations are serialised so
// a load-modify-save cycle never interleaves with another; the last writer
// wins across requests.
type Service struct {
	repo          Repository
	logger        *slog.Logger
	totalDuration float64

	mu  sync.Mutex
	now func() time.Time
}

func NewService(repo Repository, totalDuration float64, logger *slog.Logger) *Service {
	return &Service{
		repo:          repo,
		logger:        logger,
		totalDuration: totalDuration,
		now:           time.Now,
	}
}

func (s *Service) Create(ctx context.Context, name string) (*Workspace, error) {
	ws := New(name, s.totalDuration)
	ws.now = s.now
	ws.CreatedAt = s.now()
	ws.UpdatedAt = ws.CreatedAt

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.repo.Create(ctx, ws); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("workspace created", "workspace_id", ws.ID)
	}
	return ws, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Workspace, error) {
	ws, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if ws == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	ws.now = s.now
	return ws, nil
}

// Update runs fn against the stored workspace and saves the result. Nothing
// is saved when fn fails.
func (s *Service) Update(ctx context.Context, id string, fn func(*Workspace) error) (*Workspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ws, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(ws); err != nil {
		return nil, err
	}
	ws.touch()
	if err := s.repo.Save(ctx, ws); err != nil {
		return nil, fmt.Errorf("save workspace: %w", err)
	}
	return ws, nil
}

// Import replaces workspace id with doc, creating it if it does not exist.
func (s *Service) Import(ctx context.Context, id string, doc Document) (*Workspace, error) {
	doc.ID = id
	ws, err := FromDocument(doc)
	if err != nil {
		return nil, err
	}
	ws.now = s.now
	ws.touch()

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		err = s.repo.Create(ctx, ws)
	} else {
		ws.CreatedAt = existing.CreatedAt
		err = s.repo.Save(ctx, ws)
	}
	if err != nil {
		return nil, fmt.Errorf("import workspace: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("workspace imported", "workspace_id", ws.ID, "scenes", len(ws.order))
	}
	return ws, nil
}

func (s *Service) List(ctx context.Context) ([]Summary, error) {
	return s.repo.List(ctx)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ws, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if ws == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.repo.Delete(ctx, id)
}
