package user

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/suite"

	"unearthify/internal/auth/models"
	id "unearthify/pkg/domain"
	"unearthify/pkg/platform/sentinel"
)

type PostgresStoreSuite struct {
	suite.Suite
	db    *sql.DB
	mock  sqlmock.Sqlmock
	store *PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupTest() {
	db, mock, err := sqlmock.New()
	s.Require().NoError(err)
	s.db = db
	s.mock = mock
	s.store = NewPostgres(db)
}

func (s *PostgresStoreSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
	s.db.Close()
}

func (s *PostgresStoreSuite) TestCreate() {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	user := &models.User{
		ID:           id.NewUserID(),
		Email:        "Ada@Unearthify.test",
		FullName:     "Ada Curator",
		Role:         models.RoleAdmin,
		PasswordHash: "hash",
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	s.mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs(user.ID.String(), "ada@unearthify.test", "Ada Curator", "", "admin", "hash", now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	s.Require().NoError(s.store.Create(context.Background(), user))
}

func (s *PostgresStoreSuite) TestCreateDuplicate() {
	s.mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := s.store.Create(context.Background(), &models.User{ID: id.NewUserID(), Email: "a@b.c"})
	s.ErrorIs(err, sentinel.ErrAlreadyUsed)
}

func (s *PostgresStoreSuite) TestFindByEmail() {
	userID := id.NewUserID()
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "email", "full_name", "phone", "role", "password_hash", "created_at", "updated_at"}).
		AddRow(userID.String(), "ada@unearthify.test", "Ada Curator", "+254712345678", "editor", "hash", now, now)

	s.mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email = $1")).
		WithArgs("ada@unearthify.test").
		WillReturnRows(rows)

	user, err := s.store.FindByEmail(context.Background(), "ADA@unearthify.test")
	s.Require().NoError(err)
	s.Equal(userID, user.ID)
	s.Equal(models.RoleEditor, user.Role)
	s.Equal("+254712345678", user.Phone)
	s.Equal(now, user.CreatedAt)
}

func (s *PostgresStoreSuite) TestFindByIDNotFound() {
	s.mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
		WillReturnError(sql.ErrNoRows)

	_, err := s.store.FindByID(context.Background(), id.NewUserID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestFindByIDFailure() {
	s.mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
		WillReturnError(errors.New("connection reset"))

	_, err := s.store.FindByID(context.Background(), id.NewUserID())
	s.Require().Error(err)
	s.NotErrorIs(err, sentinel.ErrNotFound)
	s.Contains(err.Error(), "find user by id")
}

func (s *PostgresStoreSuite) TestCount() {
	s.mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	n, err := s.store.Count(context.Background())
	s.Require().NoError(err)
	s.Equal(3, n)
}
