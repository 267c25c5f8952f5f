package models

import (
	"time"

	id "unearthify/pkg/domain"
)

// Kind names a record collection. It doubles as the URL segment under /api.
type Kind string

const (
	KindArtist       Kind = "artists"
	KindCategory     Kind = "categories"
	KindArtType      Kind = "art-types"
	KindArtDetail    Kind = "art-details"
	KindEvent        Kind = "events"
	KindContribution Kind = "contributions"
	KindApplication  Kind = "applications"
	KindSubmission   Kind = "submissions"
)

// Kinds lists every collection in menu order.
var Kinds = []Kind{
	KindArtist, KindCategory, KindArtType, KindArtDetail,
	KindEvent, KindContribution, KindApplication, KindSubmission,
}

func (k Kind) String() string { return string(k) }

// Moderated reports whether records of k carry a review status.
func (k Kind) Moderated() bool {
	switch k {
	case KindArtist, KindContribution, KindApplication, KindSubmission:
		return true
	}
	return false
}

// Record holds the server-owned fields every entity carries.
type Record struct {
	ID        id.RecordID `json:"id"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Base returns the record header. Embedding Record gives every entity this
// method.
func (r *Record) Base() *Record { return r }

// Image references an uploaded blob.
type Image struct {
	ImageKey string `json:"image_key,omitempty"`
}

func (i *Image) ImageRef() *Image { return i }

// Entity is implemented by pointers to every catalog record type.
type Entity interface {
	Kind() Kind
	Base() *Record
	Normalize()
	Validate() error
}

// Moderated entities go through the review workflow.
type Moderated interface {
	Entity
	Mod() *Moderation
}

// Imaged entities may carry one uploaded image.
type Imaged interface {
	Entity
	ImageRef() *Image
}
