package models

import (
	"time"

	"unearthify/internal/listing"
)

// List fields per kind. Sort and filter keys match the JSON field names so
// clients can pass them straight through as query parameters.

func createdAt[E Entity](e E) time.Time { return e.Base().CreatedAt }

func status[E Moderated](e E) string { return string(e.Mod().Status) }

func ArtistFields() listing.Fields[*Artist] {
	return listing.Fields[*Artist]{
		Search: []func(*Artist) string{
			func(a *Artist) string { return a.Name },
			func(a *Artist) string { return a.Email },
			func(a *Artist) string { return a.Country },
			func(a *Artist) string { return a.ArtForm },
		},
		Filters: map[string]func(*Artist) string{
			"status":   status[*Artist],
			"country":  func(a *Artist) string { return a.Country },
			"art_form": func(a *Artist) string { return a.ArtForm },
		},
		Sorts: map[string]listing.SortField[*Artist]{
			"name":       listing.ByText(func(a *Artist) string { return a.Name }),
			"country":    listing.ByText(func(a *Artist) string { return a.Country }),
			"art_form":   listing.ByText(func(a *Artist) string { return a.ArtForm }),
			"status":     listing.ByText(status[*Artist]),
			"created_at": listing.ByTime(createdAt[*Artist]),
		},
	}
}

func CategoryFields() listing.Fields[*Category] {
	return listing.Fields[*Category]{
		Search: []func(*Category) string{
			func(c *Category) string { return c.Name },
			func(c *Category) string { return c.Description },
		},
		Sorts: map[string]listing.SortField[*Category]{
			"name":       listing.ByText(func(c *Category) string { return c.Name }),
			"created_at": listing.ByTime(createdAt[*Category]),
		},
	}
}

func ArtTypeFields() listing.Fields[*ArtType] {
	return listing.Fields[*ArtType]{
		Search: []func(*ArtType) string{
			func(t *ArtType) string { return t.Name },
			func(t *ArtType) string { return t.Category },
		},
		Filters: map[string]func(*ArtType) string{
			"category": func(t *ArtType) string { return t.Category },
		},
		Sorts: map[string]listing.SortField[*ArtType]{
			"name":       listing.ByText(func(t *ArtType) string { return t.Name }),
			"category":   listing.ByText(func(t *ArtType) string { return t.Category }),
			"created_at": listing.ByTime(createdAt[*ArtType]),
		},
	}
}

func ArtDetailFields() listing.Fields[*ArtDetail] {
	return listing.Fields[*ArtDetail]{
		Search: []func(*ArtDetail) string{
			func(d *ArtDetail) string { return d.Title },
			func(d *ArtDetail) string { return d.ArtType },
			func(d *ArtDetail) string { return d.Category },
			func(d *ArtDetail) string { return d.Origin },
		},
		Filters: map[string]func(*ArtDetail) string{
			"art_type": func(d *ArtDetail) string { return d.ArtType },
			"category": func(d *ArtDetail) string { return d.Category },
			"period":   func(d *ArtDetail) string { return d.Period },
		},
		Sorts: map[string]listing.SortField[*ArtDetail]{
			"title":      listing.ByText(func(d *ArtDetail) string { return d.Title }),
			"art_type":   listing.ByText(func(d *ArtDetail) string { return d.ArtType }),
			"category":   listing.ByText(func(d *ArtDetail) string { return d.Category }),
			"origin":     listing.ByText(func(d *ArtDetail) string { return d.Origin }),
			"created_at": listing.ByTime(createdAt[*ArtDetail]),
		},
	}
}

func EventFields() listing.Fields[*Event] {
	return listing.Fields[*Event]{
		Search: []func(*Event) string{
			func(e *Event) string { return e.Title },
			func(e *Event) string { return e.Location },
			func(e *Event) string { return e.Description },
		},
		Filters: map[string]func(*Event) string{
			"location": func(e *Event) string { return e.Location },
		},
		Sorts: map[string]listing.SortField[*Event]{
			"title":      listing.ByText(func(e *Event) string { return e.Title }),
			"location":   listing.ByText(func(e *Event) string { return e.Location }),
			"starts_at":  listing.ByTime(func(e *Event) time.Time { return e.StartsAt }),
			"capacity":   listing.ByNumber(func(e *Event) float64 { return float64(e.Capacity) }),
			"created_at": listing.ByTime(createdAt[*Event]),
		},
	}
}

func ContributionFields() listing.Fields[*Contribution] {
	return listing.Fields[*Contribution]{
		Search: []func(*Contribution) string{
			func(c *Contribution) string { return c.ContributorName },
			func(c *Contribution) string { return c.Email },
			func(c *Contribution) string { return c.Title },
		},
		Filters: map[string]func(*Contribution) string{
			"status": status[*Contribution],
			"type":   func(c *Contribution) string { return c.Type },
		},
		Sorts: map[string]listing.SortField[*Contribution]{
			"contributor_name": listing.ByText(func(c *Contribution) string { return c.ContributorName }),
			"title":            listing.ByText(func(c *Contribution) string { return c.Title }),
			"status":           listing.ByText(status[*Contribution]),
			"created_at":       listing.ByTime(createdAt[*Contribution]),
		},
	}
}

func ApplicationFields() listing.Fields[*Application] {
	return listing.Fields[*Application]{
		Search: []func(*Application) string{
			func(a *Application) string { return a.ApplicantName },
			func(a *Application) string { return a.Email },
			func(a *Application) string { return a.ArtForm },
		},
		Filters: map[string]func(*Application) string{
			"status":   status[*Application],
			"art_form": func(a *Application) string { return a.ArtForm },
		},
		Sorts: map[string]listing.SortField[*Application]{
			"applicant_name": listing.ByText(func(a *Application) string { return a.ApplicantName }),
			"art_form":       listing.ByText(func(a *Application) string { return a.ArtForm }),
			"status":         listing.ByText(status[*Application]),
			"created_at":     listing.ByTime(createdAt[*Application]),
		},
	}
}

func SubmissionFields() listing.Fields[*Submission] {
	return listing.Fields[*Submission]{
		Search: []func(*Submission) string{
			func(s *Submission) string { return s.SubmitterName },
			func(s *Submission) string { return s.Email },
			func(s *Submission) string { return s.Title },
		},
		Filters: map[string]func(*Submission) string{
			"status":   status[*Submission],
			"art_form": func(s *Submission) string { return s.ArtForm },
		},
		Sorts: map[string]listing.SortField[*Submission]{
			"submitter_name": listing.ByText(func(s *Submission) string { return s.SubmitterName }),
			"title":          listing.ByText(func(s *Submission) string { return s.Title }),
			"status":         listing.ByText(status[*Submission]),
			"created_at":     listing.ByTime(createdAt[*Submission]),
		},
	}
}
