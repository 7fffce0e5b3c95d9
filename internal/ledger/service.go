package ledger

import (
	"context"
	"fmt"
	"log/slog"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	Append(ctx context.Context, entry Entry) (int64, error)
	Summarize(ctx context.Context) (Summary, error)
	List(ctx context.Context, filter Filter) ([]Entry, error)
}

// Service coordinates ledger reads and standalone appends.
type Service struct {
	repo   RepositoryPort
	cache  *Cache
	logger *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, cache *Cache, logger *slog.Logger) *Service {
	return &Service{repo: repo, cache: cache, logger: logger}
}

// Validate checks an entry before it is written. Workflow packages call this
// before appending through their own transaction.
func Validate(entry Entry) error {
	if !entry.Flow.Valid() {
		return fmt.Errorf("%w: unknown flow type %q", ErrValidation, entry.Flow)
	}
	if entry.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	if !entry.RefType.Valid() {
		return fmt.Errorf("%w: unknown reference type %q", ErrValidation, entry.RefType)
	}
	return nil
}

// Append records a standalone entry, e.g. a manual income or expense.
func (s *Service) Append(ctx context.Context, entry Entry) (int64, error) {
	if err := Validate(entry); err != nil {
		return 0, err
	}
	id, err := s.repo.Append(ctx, entry)
	if err != nil {
		return 0, err
	}
	s.dropSummary(ctx)
	return id, nil
}

// Summarize returns ledger totals, served from cache when possible.
func (s *Service) Summarize(ctx context.Context) (Summary, error) {
	if summary, ok, err := s.cache.GetSummary(ctx); err == nil && ok {
		return summary, nil
	} else if err != nil && s.logger != nil {
		s.logger.Warn("ledger summary cache read", slog.Any("error", err))
	}
	summary, err := s.repo.Summarize(ctx)
	if err != nil {
		return Summary{}, err
	}
	if err := s.cache.SetSummary(ctx, summary); err != nil && s.logger != nil {
		s.logger.Warn("ledger summary cache write", slog.Any("error", err))
	}
	return summary, nil
}

// List returns entries matching filter.
func (s *Service) List(ctx context.Context, filter Filter) ([]Entry, error) {
	if filter.Flow != "" && !filter.Flow.Valid() {
		return nil, fmt.Errorf("%w: unknown flow type %q", ErrValidation, filter.Flow)
	}
	return s.repo.List(ctx, filter)
}

// DropSummaryCache invalidates the cached totals. Order workflows call this
// after committing a transaction that appended an entry.
func (s *Service) DropSummaryCache(ctx context.Context) {
	s.dropSummary(ctx)
}

func (s *Service) dropSummary(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil && s.logger != nil {
		s.logger.Warn("ledger summary cache invalidate", slog.Any("error", err))
	}
}
