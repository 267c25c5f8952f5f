package dashboard

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"unearthify/internal/catalog/models"
	dErrors "unearthify/pkg/domain-errors"
	"unearthify/pkg/requestcontext"
)

// RecordCounter is the slice of the document store the dashboard reads.
type RecordCounter interface {
	Count(ctx context.Context, kind string) (int, error)
	CountByStatus(ctx context.Context, kind string) (map[string]int, error)
}

type UserCounter interface {
	Count(ctx context.Context) (int, error)
}

// Service gathers the dashboard figures.
type Service struct {
	records RecordCounter
	users   UserCounter
	logger  *slog.Logger
}

func NewService(records RecordCounter, users UserCounter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{records: records, users: users, logger: logger}
}

// Stats is the dashboard payload.
type Stats struct {
	// Counts holds live records per kind. Soft-deleted records are excluded.
	Counts map[models.Kind]int `json:"counts"`
	// Statuses breaks moderated kinds down by review status.
	Statuses        map[models.Kind]map[string]int `json:"statuses"`
	ArtistsByStatus map[string]int                 `json:"artists_by_status"`
	PendingReview   int                            `json:"pending_review"`
	Users           int                            `json:"users"`
	Timestamp       time.Time                      `json:"timestamp"`
}

// GetStats queries every kind concurrently. The first failure cancels the rest.
func (s *Service) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		Counts:    make(map[models.Kind]int, len(models.Kinds)),
		Statuses:  make(map[models.Kind]map[string]int),
		Timestamp: requestcontext.Now(ctx),
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, kind := range models.Kinds {
		g.Go(func() error {
			total, err := s.records.Count(gctx, kind.String())
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to count "+kind.String())
			}
			var statuses map[string]int
			if kind.Moderated() {
				statuses, err = s.records.CountByStatus(gctx, kind.String())
				if err != nil {
					return dErrors.Wrap(err, dErrors.CodeInternal, "failed to count "+kind.String()+" by status")
				}
				total -= statuses[string(models.StatusDeleted)]
			}

			mu.Lock()
			defer mu.Unlock()
			stats.Counts[kind] = total
			if statuses != nil {
				stats.Statuses[kind] = statuses
				stats.PendingReview += statuses[string(models.StatusPending)]
			}
			return nil
		})
	}
	g.Go(func() error {
		n, err := s.users.Count(gctx)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to count users")
		}
		mu.Lock()
		stats.Users = n
		mu.Unlock()
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	stats.ArtistsByStatus = stats.Statuses[models.KindArtist]
	if stats.ArtistsByStatus == nil {
		stats.ArtistsByStatus = map[string]int{}
	}
	return stats, nil
}
