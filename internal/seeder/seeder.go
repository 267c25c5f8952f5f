// Package seeder prepares a fresh installation: the first admin account and,
// in development, a small sample catalog.
package seeder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"unearthify/internal/catalog/models"
)

// AdminEnsurer creates the admin account when no user exists yet.
type AdminEnsurer interface {
	EnsureAdmin(ctx context.Context, email, password, fullName string) (bool, error)
}

type Creator[E models.Entity] interface {
	Create(ctx context.Context, e E) (E, error)
}

// RecordCounter reports how many records a kind holds.
type RecordCounter interface {
	Count(ctx context.Context, kind string) (int, error)
}

// Catalog is the set of services the demo data goes through.
type Catalog struct {
	Records    RecordCounter
	Categories Creator[*models.Category]
	ArtTypes   Creator[*models.ArtType]
	Artists    Creator[*models.Artist]
	Events     Creator[*models.Event]
}

// Seeder populates empty stores.
type Seeder struct {
	admin   AdminEnsurer
	catalog *Catalog
	logger  *slog.Logger
}

type Option func(*Seeder)

// WithDemoCatalog enables sample records.
func WithDemoCatalog(c Catalog) Option {
	return func(s *Seeder) {
		s.catalog = &c
	}
}

func New(admin AdminEnsurer, logger *slog.Logger, opts ...Option) *Seeder {
	s := &Seeder{admin: admin, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AdminAccount is the account created on first start.
type AdminAccount struct {
	Email    string
	Password string
	FullName string
}

// SeedAll creates the admin account and the demo catalog when configured.
// Both steps are no-ops on stores that already hold data.
func (s *Seeder) SeedAll(ctx context.Context, admin AdminAccount) error {
	if admin.Email != "" {
		created, err := s.admin.EnsureAdmin(ctx, admin.Email, admin.Password, admin.FullName)
		if err != nil {
			return fmt.Errorf("failed to seed admin: %w", err)
		}
		if created {
			s.logger.InfoContext(ctx, "admin account created", "email", admin.Email)
		}
	}

	if s.catalog == nil {
		return nil
	}
	n, err := s.catalog.Records.Count(ctx, models.KindCategory.String())
	if err != nil {
		return fmt.Errorf("failed to inspect catalog: %w", err)
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "catalog already populated, skipping demo data")
		return nil
	}
	if err := s.seedCatalog(ctx); err != nil {
		return fmt.Errorf("failed to seed demo catalog: %w", err)
	}
	return nil
}

func (s *Seeder) seedCatalog(ctx context.Context) error {
	categories := []*models.Category{
		{Name: "Textiles", Description: "Woven, dyed and printed cloth."},
		{Name: "Sculpture", Description: "Carved and cast three-dimensional work."},
		{Name: "Ceramics", Description: "Fired clay vessels and figures."},
	}
	for _, c := range categories {
		if _, err := s.catalog.Categories.Create(ctx, c); err != nil {
			return err
		}
	}

	artTypes := []*models.ArtType{
		{Name: "Kente", Category: "Textiles", Description: "Strip-woven silk and cotton cloth from Ghana."},
		{Name: "Adire", Category: "Textiles", Description: "Yoruba resist-dyed indigo cloth."},
		{Name: "Bronze casting", Category: "Sculpture", Description: "Lost-wax casting in the Benin tradition."},
	}
	for _, t := range artTypes {
		if _, err := s.catalog.ArtTypes.Create(ctx, t); err != nil {
			return err
		}
	}

	artists := []*models.Artist{
		{Name: "Nike Davies-Okundaye", Country: "Nigeria", ArtForm: "Adire"},
		{Name: "Kwame Asante", Country: "Ghana", ArtForm: "Kente"},
		{Name: "Magdalene Odundo", Country: "Kenya", ArtForm: "Ceramics"},
	}
	for _, a := range artists {
		if _, err := s.catalog.Artists.Create(ctx, a); err != nil {
			return err
		}
	}

	start := time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 0, 14)
	end := start.Add(6 * time.Hour)
	events := []*models.Event{
		{Title: "Indigo dyeing workshop", Location: "Abeokuta", StartsAt: start, EndsAt: &end, Capacity: 30},
	}
	for _, e := range events {
		if _, err := s.catalog.Events.Create(ctx, e); err != nil {
			return err
		}
	}

	s.logger.InfoContext(ctx, "demo catalog seeded",
		"categories", len(categories),
		"art_types", len(artTypes),
		"artists", len(artists),
		"events", len(events),
	)
	return nil
}
