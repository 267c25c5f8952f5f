package models

import (
	"strings"
	"time"

	dErrors "unearthify/pkg/domain-errors"
	"unearthify/pkg/platform/validation"
)

type Artist struct {
	Record
	Moderation
	Image
	Name    string `json:"name" validate:"required,notblank,max=200"`
	Email   string `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Phone   string `json:"phone,omitempty" validate:"omitempty,phone"`
	Country string `json:"country,omitempty" validate:"max=100"`
	ArtForm string `json:"art_form,omitempty" validate:"max=100"`
	Website string `json:"website,omitempty" validate:"omitempty,url,max=500"`
	Bio     string `json:"bio,omitempty" validate:"max=10000"`
}

func (*Artist) Kind() Kind { return KindArtist }

func (a *Artist) Normalize() {
	trim(&a.Name, &a.Email, &a.Phone, &a.Country, &a.ArtForm, &a.Website, &a.Bio)
	a.Email = strings.ToLower(a.Email)
}

func (a *Artist) Validate() error { return validation.Validate(a) }

type Category struct {
	Record
	Image
	Name        string `json:"name" validate:"required,notblank,max=200"`
	Description string `json:"description,omitempty" validate:"max=10000"`
}

func (*Category) Kind() Kind { return KindCategory }

func (c *Category) Normalize() { trim(&c.Name, &c.Description) }

func (c *Category) Validate() error { return validation.Validate(c) }

// ArtType belongs to a category by display label.
type ArtType struct {
	Record
	Image
	Name        string `json:"name" validate:"required,notblank,max=200"`
	Category    string `json:"category" validate:"required,notblank,max=200"`
	Description string `json:"description,omitempty" validate:"max=10000"`
}

func (*ArtType) Kind() Kind { return KindArtType }

func (t *ArtType) Normalize() { trim(&t.Name, &t.Category, &t.Description) }

func (t *ArtType) Validate() error { return validation.Validate(t) }

type ArtDetail struct {
	Record
	Image
	Title       string `json:"title" validate:"required,notblank,max=200"`
	ArtType     string `json:"art_type,omitempty" validate:"max=200"`
	Category    string `json:"category,omitempty" validate:"max=200"`
	Origin      string `json:"origin,omitempty" validate:"max=200"`
	Period      string `json:"period,omitempty" validate:"max=100"`
	Description string `json:"description,omitempty" validate:"max=10000"`
}

func (*ArtDetail) Kind() Kind { return KindArtDetail }

func (d *ArtDetail) Normalize() {
	trim(&d.Title, &d.ArtType, &d.Category, &d.Origin, &d.Period, &d.Description)
}

func (d *ArtDetail) Validate() error { return validation.Validate(d) }

type Event struct {
	Record
	Image
	Title       string     `json:"title" validate:"required,notblank,max=200"`
	Location    string     `json:"location" validate:"required,notblank,max=200"`
	StartsAt    time.Time  `json:"starts_at" validate:"required"`
	EndsAt      *time.Time `json:"ends_at,omitempty"`
	Capacity    int        `json:"capacity,omitempty" validate:"min=0"`
	Description string     `json:"description,omitempty" validate:"max=10000"`
}

func (*Event) Kind() Kind { return KindEvent }

func (e *Event) Normalize() { trim(&e.Title, &e.Location, &e.Description) }

func (e *Event) Validate() error {
	if err := validation.Validate(e); err != nil {
		return err
	}
	if e.EndsAt != nil && e.EndsAt.Before(e.StartsAt) {
		return dErrors.New(dErrors.CodeValidation, "ends_at must not be before starts_at")
	}
	return nil
}

type Contribution struct {
	Record
	Moderation
	ContributorName string `json:"contributor_name" validate:"required,notblank,max=200"`
	Email           string `json:"email" validate:"required,email,max=255"`
	Title           string `json:"title" validate:"required,notblank,max=200"`
	Type            string `json:"type,omitempty" validate:"max=100"`
	Description     string `json:"description,omitempty" validate:"max=10000"`
}

func (*Contribution) Kind() Kind { return KindContribution }

func (c *Contribution) Normalize() {
	trim(&c.ContributorName, &c.Email, &c.Title, &c.Type, &c.Description)
	c.Email = strings.ToLower(c.Email)
}

func (c *Contribution) Validate() error { return validation.Validate(c) }

type Application struct {
	Record
	Moderation
	ApplicantName string `json:"applicant_name" validate:"required,notblank,max=200"`
	Email         string `json:"email" validate:"required,email,max=255"`
	Phone         string `json:"phone,omitempty" validate:"omitempty,phone"`
	ArtForm       string `json:"art_form" validate:"required,notblank,max=100"`
	Portfolio     string `json:"portfolio,omitempty" validate:"omitempty,url,max=500"`
	Message       string `json:"message,omitempty" validate:"max=10000"`
}

func (*Application) Kind() Kind { return KindApplication }

func (a *Application) Normalize() {
	trim(&a.ApplicantName, &a.Email, &a.Phone, &a.ArtForm, &a.Portfolio, &a.Message)
	a.Email = strings.ToLower(a.Email)
}

func (a *Application) Validate() error { return validation.Validate(a) }

type Submission struct {
	Record
	Moderation
	SubmitterName string `json:"submitter_name" validate:"required,notblank,max=200"`
	Email         string `json:"email" validate:"required,email,max=255"`
	Title         string `json:"title" validate:"required,notblank,max=200"`
	ArtForm       string `json:"art_form,omitempty" validate:"max=100"`
	Description   string `json:"description,omitempty" validate:"max=10000"`
}

func (*Submission) Kind() Kind { return KindSubmission }

func (s *Submission) Normalize() {
	trim(&s.SubmitterName, &s.Email, &s.Title, &s.ArtForm, &s.Description)
	s.Email = strings.ToLower(s.Email)
}

func (s *Submission) Validate() error { return validation.Validate(s) }

func trim(fields ...*string) {
	for _, f := range fields {
		*f = strings.TrimSpace(*f)
	}
}
