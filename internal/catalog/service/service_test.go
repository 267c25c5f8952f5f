package service

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"unearthify/internal/catalog/changefeed"
	"unearthify/internal/catalog/models"
	"unearthify/internal/catalog/store"
	"unearthify/internal/listing"
	"unearthify/internal/platform/blob"
	id "unearthify/pkg/domain"
	dErrors "unearthify/pkg/domain-errors"
	"unearthify/pkg/requestcontext"
	"unearthify/pkg/testutil"
)

type recorder struct {
	mu     sync.Mutex
	events []changefeed.Event
}

func (r *recorder) record(_ context.Context, e changefeed.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) actions() []changefeed.Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]changefeed.Action, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Action)
	}
	return out
}

type ServiceSuite struct {
	suite.Suite
	ctx        context.Context
	now        time.Time
	actor      id.UserID
	blobs      *blob.MemoryStore
	events     *recorder
	artists    *Service[*models.Artist]
	categories *Service[*models.Category]
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.now = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	s.actor = id.NewUserID()
	ctx := requestcontext.WithTime(context.Background(), s.now)
	ctx = requestcontext.WithRequestID(ctx, "req-1")
	s.ctx = requestcontext.WithUserID(ctx, s.actor)

	docs := store.NewInMemory()
	s.blobs = blob.NewMemoryStore()
	s.events = &recorder{}
	feed := changefeed.New()
	feed.Subscribe(s.events.record)

	s.artists = New(
		store.NewRepository(docs, func() *models.Artist { return &models.Artist{} }, nil),
		models.ArtistFields(),
		WithBlobStore(s.blobs), WithFeed(feed),
	)
	s.categories = New(
		store.NewRepository(docs, func() *models.Category { return &models.Category{} }, nil),
		models.CategoryFields(),
		WithBlobStore(s.blobs), WithFeed(feed),
	)
}

func (s *ServiceSuite) createArtist(name string) *models.Artist {
	a, err := s.artists.Create(s.ctx, &models.Artist{Name: name})
	s.Require().NoError(err)
	return a
}

func (s *ServiceSuite) TestCapabilities() {
	s.True(s.artists.Moderated())
	s.True(s.artists.Imaged())
	s.False(s.categories.Moderated())
	s.True(s.categories.Imaged())
	s.Equal(models.KindCategory, s.categories.Kind())
}

func (s *ServiceSuite) TestCreate() {
	s.Run("assigns server fields and starts pending", func() {
		in := &models.Artist{Name: "  Chéri Samba ", Email: "Cheri@Example.com"}
		in.Status = models.StatusApproved
		in.ImageKey = "artists/forged.png"

		a, err := s.artists.Create(s.ctx, in)
		s.Require().NoError(err)
		s.False(a.ID.IsNil())
		s.Equal("Chéri Samba", a.Name)
		s.Equal("cheri@example.com", a.Email)
		s.Equal(models.StatusPending, a.Status)
		s.Empty(a.ImageKey)
		s.Equal(s.now, a.CreatedAt)
		s.Equal(s.now, a.UpdatedAt)

		stored, err := s.artists.Get(s.ctx, a.ID)
		s.Require().NoError(err)
		s.Equal(a, stored)
	})

	s.Run("rejects invalid input", func() {
		_, err := s.artists.Create(s.ctx, &models.Artist{Name: "   "})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("publishes a created event", func() {
		last := s.events.events[len(s.events.events)-1]
		s.Equal(changefeed.ActionCreated, last.Action)
		s.Equal("artists", last.Kind)
		s.Equal("pending", last.Status)
		s.Equal(s.actor.String(), last.ActorID)
		s.Equal("req-1", last.RequestID)
	})
}

func (s *ServiceSuite) TestUpdateKeepsServerOwnedFields() {
	a := s.createArtist("Ablade Glover")
	_, err := s.artists.Approve(s.ctx, a.ID)
	s.Require().NoError(err)

	later := requestcontext.WithTime(s.ctx, s.now.Add(time.Hour))
	patch := &models.Artist{Name: "Ablade Glover", Country: "Ghana"}
	patch.Status = models.StatusRejected
	patch.CreatedAt = time.Unix(0, 0)

	got, err := s.artists.Update(later, a.ID, patch)
	s.Require().NoError(err)
	s.Equal(a.ID, got.ID)
	s.Equal("Ghana", got.Country)
	s.Equal(models.StatusApproved, got.Status)
	s.Equal(s.now, got.CreatedAt)
	s.Equal(s.now.Add(time.Hour), got.UpdatedAt)
}

func (s *ServiceSuite) TestUpdateUnknownRecord() {
	_, err := s.artists.Update(s.ctx, id.NewRecordID(), &models.Artist{Name: "Nobody"})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestModerationLifecycle() {
	a := s.createArtist("El Anatsui")

	got, err := s.artists.Approve(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, got.Status)

	_, err = s.artists.Approve(s.ctx, a.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	err = s.artists.Purge(s.ctx, a.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation), "approved records cannot be purged")

	s.Require().NoError(s.artists.Delete(s.ctx, a.ID))
	got, err = s.artists.Get(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusDeleted, got.Status)

	got, err = s.artists.Recover(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, got.Status)

	_, err = s.artists.Reject(s.ctx, a.ID)
	s.Require().NoError(err)
	s.Require().NoError(s.artists.Purge(s.ctx, a.ID))

	_, err = s.artists.Get(s.ctx, a.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	s.Equal([]changefeed.Action{
		changefeed.ActionCreated,
		changefeed.ActionApproved,
		changefeed.ActionDeleted,
		changefeed.ActionRecovered,
		changefeed.ActionRejected,
		changefeed.ActionPurged,
	}, s.events.actions())
}

func (s *ServiceSuite) TestConcurrentApproveAppliesOnce() {
	a := s.createArtist("Sokari Douglas Camp")

	res := testutil.RunConcurrent(20, func(int) error {
		_, err := s.artists.Approve(s.ctx, a.ID)
		return err
	})

	s.Equal(int32(1), res.Successes)
	s.Equal(int32(19), res.Rejected)
	s.Zero(res.Errors)

	approvals := 0
	for _, action := range s.events.actions() {
		if action == changefeed.ActionApproved {
			approvals++
		}
	}
	s.Equal(1, approvals)
}

func (s *ServiceSuite) TestModerationOnPlainKind() {
	c, err := s.categories.Create(s.ctx, &models.Category{Name: "Pottery"})
	s.Require().NoError(err)

	_, err = s.categories.Approve(s.ctx, c.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	s.True(dErrors.HasCode(s.categories.Purge(s.ctx, c.ID), dErrors.CodeBadRequest))
}

func (s *ServiceSuite) TestDeletePlainKindRemovesRecordAndImage() {
	c, err := s.categories.Create(s.ctx, &models.Category{Name: "Beadwork"})
	s.Require().NoError(err)
	c, err = s.categories.SetImage(s.ctx, c.ID, "image/png", strings.NewReader("png"), 3)
	s.Require().NoError(err)
	key := c.ImageKey

	s.Require().NoError(s.categories.Delete(s.ctx, c.ID))
	_, err = s.categories.Get(s.ctx, c.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	_, _, err = s.blobs.Get(s.ctx, key)
	s.ErrorIs(err, blob.ErrNotFound)
}

func (s *ServiceSuite) TestListHidesDeletedUnlessFiltered() {
	kept := s.createArtist("Bruce Onobrakpeya")
	gone := s.createArtist("Twins Seven-Seven")
	s.Require().NoError(s.artists.Delete(s.ctx, gone.ID))

	page, err := s.artists.List(s.ctx, listing.Query{SortKey: "name", SortOrder: listing.Asc})
	s.Require().NoError(err)
	s.Require().Len(page.Items, 1)
	s.Equal(kept.ID, page.Items[0].ID)
	s.Equal(1, page.Total)

	page, err = s.artists.List(s.ctx, listing.Query{Filters: map[string]string{"status": "deleted"}})
	s.Require().NoError(err)
	s.Require().Len(page.Items, 1)
	s.Equal(gone.ID, page.Items[0].ID)
}

func (s *ServiceSuite) TestListSearchAndPaginate() {
	for _, name := range []string{"Ahmed", "Bisi", "Chike", "Dumile", "Ebo"} {
		_, err := s.categories.Create(s.ctx, &models.Category{Name: name})
		s.Require().NoError(err)
	}

	page, err := s.categories.List(s.ctx, listing.Query{SortKey: "name", SortOrder: listing.Desc, Page: 2, PageSize: 2})
	s.Require().NoError(err)
	s.Equal(5, page.Total)
	s.Equal(3, page.TotalPages)
	s.Require().Len(page.Items, 2)
	s.Equal("Chike", page.Items[0].Name)
	s.Equal("Bisi", page.Items[1].Name)

	page, err = s.categories.List(s.ctx, listing.Query{Search: "dum"})
	s.Require().NoError(err)
	s.Require().Len(page.Items, 1)
	s.Equal("Dumile", page.Items[0].Name)
}

func (s *ServiceSuite) TestSetImage() {
	a := s.createArtist("Malangatana")

	s.Run("stores and replaces the image", func() {
		first, err := s.artists.SetImage(s.ctx, a.ID, "image/png", strings.NewReader("one"), 3)
		s.Require().NoError(err)
		s.True(strings.HasPrefix(first.ImageKey, "artists/"+a.ID.String()+"/"))
		s.True(strings.HasSuffix(first.ImageKey, ".png"))

		second, err := s.artists.SetImage(s.ctx, a.ID, "image/jpeg", strings.NewReader("two"), 3)
		s.Require().NoError(err)
		s.NotEqual(first.ImageKey, second.ImageKey)

		_, _, err = s.blobs.Get(s.ctx, first.ImageKey)
		s.ErrorIs(err, blob.ErrNotFound)

		body, obj, err := s.blobs.Get(s.ctx, second.ImageKey)
		s.Require().NoError(err)
		defer body.Close()
		data, err := io.ReadAll(body)
		s.Require().NoError(err)
		s.Equal("two", string(data))
		s.Equal("image/jpeg", obj.ContentType)
	})

	s.Run("rejects unsupported types", func() {
		_, err := s.artists.SetImage(s.ctx, a.ID, "application/pdf", bytes.NewReader(nil), 0)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("rejects oversized images", func() {
		_, err := s.artists.SetImage(s.ctx, a.ID, "image/png", bytes.NewReader(nil), 1<<30)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown record", func() {
		_, err := s.artists.SetImage(s.ctx, id.NewRecordID(), "image/png", strings.NewReader("x"), 1)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func TestSetImageWithoutBlobStore(t *testing.T) {
	docs := store.NewInMemory()
	svc := New(
		store.NewRepository(docs, func() *models.Category { return &models.Category{} }, nil),
		models.CategoryFields(),
	)
	ctx := context.Background()
	c, err := svc.Create(ctx, &models.Category{Name: "Masks"})
	require.NoError(t, err)

	_, err = svc.SetImage(ctx, c.ID, "image/png", strings.NewReader("x"), 1)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
}
