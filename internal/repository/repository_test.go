package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchlist-kata/moviedb/internal/repository"
	"github.com/watchlist-kata/moviedb/internal/testutil"
)

func newRepo(t *testing.T) *repository.PostgresRepository {
	t.Helper()
	return repository.NewPostgresRepository(testutil.NewDB(t), testutil.Logger())
}

func date(y int, m time.Month, d int) *time.Time {
	v := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &v
}

func TestFilmCRUD(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	film := &repository.GormFilm{Title: "Old Title", Description: "Old Description", Year: 2000}
	require.NoError(t, repo.CreateFilm(ctx, film))
	require.NotEqual(t, uuid.Nil, film.ID)

	got, err := repo.GetFilm(ctx, film.ID)
	require.NoError(t, err)
	assert.Equal(t, "Old Title", got.Title)
	assert.Nil(t, got.KPRating)

	film.Title = "New Title"
	film.Year = 1995
	film.Country = "United Kingdom"
	film.Status = "continues"
	require.NoError(t, repo.UpdateFilm(ctx, film))

	got, err = repo.GetFilm(ctx, film.ID)
	require.NoError(t, err)
	assert.Equal(t, "New Title", got.Title)
	assert.Equal(t, 1995, got.Year)
	assert.Equal(t, "United Kingdom", got.Country)

	films, err := repo.ListFilms(ctx)
	require.NoError(t, err)
	assert.Len(t, films, 1)

	require.NoError(t, repo.DeleteFilm(ctx, film.ID))
	_, err = repo.GetFilm(ctx, film.ID)
	assert.ErrorIs(t, err, repository.ErrRecordNotFound)
	assert.ErrorIs(t, repo.DeleteFilm(ctx, film.ID), repository.ErrRecordNotFound)
}

func TestUpdateMissingFilm(t *testing.T) {
	repo := newRepo(t)
	err := repo.UpdateFilm(context.Background(), &repository.GormFilm{ID: uuid.New(), Title: "x"})
	assert.ErrorIs(t, err, repository.ErrRecordNotFound)
}

func TestSetKPRating(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	film := &repository.GormFilm{Title: "Heat"}
	require.NoError(t, repo.CreateFilm(ctx, film))

	rating := 8.3
	require.NoError(t, repo.SetKPRating(ctx, film.ID, &rating, time.Now()))

	got, err := repo.GetFilm(ctx, film.ID)
	require.NoError(t, err)
	require.NotNil(t, got.KPRating)
	assert.InDelta(t, 8.3, *got.KPRating, 1e-9)
	assert.NotNil(t, got.KPRatingUpdatedAt)

	assert.ErrorIs(t, repo.SetKPRating(ctx, uuid.New(), &rating, time.Now()), repository.ErrRecordNotFound)
}

func TestActorCRUD(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	actor := &repository.GormActor{FullName: "Jane Smith", BirthDate: date(1990, 5, 20), Sex: "Female", Country: "Canada"}
	require.NoError(t, repo.CreateActor(ctx, actor))

	got, err := repo.GetActor(ctx, actor.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane Smith", got.FullName)
	require.NotNil(t, got.BirthDate)
	assert.Equal(t, "1990-05-20", got.BirthDate.Format(time.DateOnly))
	assert.Nil(t, got.Death)

	actor.FullName = "Jane Johnson"
	actor.Death = date(2020, 1, 2)
	require.NoError(t, repo.UpdateActor(ctx, actor))

	got, err = repo.GetActor(ctx, actor.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane Johnson", got.FullName)
	require.NotNil(t, got.Death)
	assert.Equal(t, "2020-01-02", got.Death.Format(time.DateOnly))

	require.NoError(t, repo.DeleteActor(ctx, actor.ID))
	_, err = repo.GetActor(ctx, actor.ID)
	assert.ErrorIs(t, err, repository.ErrRecordNotFound)
}

func TestCast(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	film := &repository.GormFilm{Title: "Heat"}
	require.NoError(t, repo.CreateFilm(ctx, film))
	pacino := &repository.GormActor{FullName: "Al Pacino"}
	deNiro := &repository.GormActor{FullName: "Robert De Niro"}
	require.NoError(t, repo.CreateActor(ctx, pacino))
	require.NoError(t, repo.CreateActor(ctx, deNiro))

	require.NoError(t, repo.AddCast(ctx, film.ID, pacino.ID))
	require.NoError(t, repo.AddCast(ctx, film.ID, deNiro.ID))
	assert.ErrorIs(t, repo.AddCast(ctx, film.ID, pacino.ID), repository.ErrDuplicateEntry)

	actors, err := repo.ListFilmActors(ctx, film.ID)
	require.NoError(t, err)
	require.Len(t, actors, 2)
	assert.Equal(t, "Al Pacino", actors[0].FullName)
	assert.Equal(t, "Robert De Niro", actors[1].FullName)

	films, err := repo.ListActorFilms(ctx, deNiro.ID)
	require.NoError(t, err)
	require.Len(t, films, 1)
	assert.Equal(t, film.ID, films[0].ID)

	require.NoError(t, repo.RemoveCast(ctx, film.ID, deNiro.ID))
	require.NoError(t, repo.RemoveCast(ctx, film.ID, deNiro.ID))
	ok, err := repo.CheckCast(ctx, film.ID, deNiro.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	// deleting the actor drops the remaining link
	require.NoError(t, repo.DeleteActor(ctx, pacino.ID))
	actors, err = repo.ListFilmActors(ctx, film.ID)
	require.NoError(t, err)
	assert.Empty(t, actors)
}

func TestDeleteFilmDropsCast(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	heat := &repository.GormFilm{Title: "Heat"}
	ronin := &repository.GormFilm{Title: "Ronin"}
	require.NoError(t, repo.CreateFilm(ctx, heat))
	require.NoError(t, repo.CreateFilm(ctx, ronin))
	deNiro := &repository.GormActor{FullName: "Robert De Niro"}
	require.NoError(t, repo.CreateActor(ctx, deNiro))

	require.NoError(t, repo.AddCast(ctx, heat.ID, deNiro.ID))
	require.NoError(t, repo.AddCast(ctx, ronin.ID, deNiro.ID))

	require.NoError(t, repo.DeleteFilm(ctx, heat.ID))

	films, err := repo.ListActorFilms(ctx, deNiro.ID)
	require.NoError(t, err)
	require.Len(t, films, 1)
	assert.Equal(t, ronin.ID, films[0].ID)

	ok, err := repo.CheckCast(ctx, heat.ID, deNiro.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.DeleteFilm(ctx, ronin.ID))
	films, err = repo.ListActorFilms(ctx, deNiro.ID)
	require.NoError(t, err)
	assert.Empty(t, films)

	// the actor itself survives
	_, err = repo.GetActor(ctx, deNiro.ID)
	require.NoError(t, err)
	assert.ErrorIs(t, repo.DeleteFilm(ctx, ronin.ID), repository.ErrRecordNotFound)
}

func TestCanceledContext(t *testing.T) {
	repo := newRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.ListFilms(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPing(t *testing.T) {
	assert.NoError(t, newRepo(t).Ping(context.Background()))
}
