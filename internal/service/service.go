package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/watchlist-kata/moviedb/internal/model"
	"github.com/watchlist-kata/moviedb/internal/repository"
)

// RatingProvider ищет рейтинг фильма во внешнем каталоге
type RatingProvider interface {
	Rating(ctx context.Context, title string) (*float64, error)
}

// CatalogService реализует операции каталога фильмов и актеров
type CatalogService struct {
	repo     repository.Repository
	ratings  RatingProvider
	validate *validator.Validate
	logger   *slog.Logger
	now      func() time.Time

	lookupTimeout time.Duration
}

// DefaultLookupTimeout ограничивает живой запрос рейтинга при показе фильма
const DefaultLookupTimeout = 3 * time.Second

// Option настраивает CatalogService
type Option func(*CatalogService)

// WithClock подменяет источник текущего времени
func WithClock(now func() time.Time) Option {
	return func(s *CatalogService) { s.now = now }
}

// WithLookupTimeout задает предел ожидания рейтинга при показе фильма
func WithLookupTimeout(d time.Duration) Option {
	return func(s *CatalogService) {
		if d > 0 {
			s.lookupTimeout = d
		}
	}
}

// NewCatalogService создает новый экземпляр CatalogService; ratings может быть nil
func NewCatalogService(repo repository.Repository, ratings RatingProvider, logger *slog.Logger, opts ...Option) *CatalogService {
	s := &CatalogService{repo: repo, ratings: ratings, logger: logger, now: time.Now, lookupTimeout: DefaultLookupTimeout}
	for _, opt := range opts {
		opt(s)
	}
	s.validate = newValidator(func() time.Time { return s.now() })
	return s
}

// RatingsEnabled сообщает, настроен ли поиск рейтинга во внешнем каталоге
func (s *CatalogService) RatingsEnabled() bool {
	return s.ratings != nil
}

// Ping проверяет доступность хранилища
func (s *CatalogService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func filmNotFound(id uuid.UUID) error {
	return newError(ErrNotFound, "Film with id %q not found!", id.String())
}

func actorNotFound(id uuid.UUID) error {
	return newError(ErrNotFound, "Actor with id %q not found!", id.String())
}

// ListFilms возвращает все фильмы
func (s *CatalogService) ListFilms(ctx context.Context) ([]model.Film, error) {
	gormFilms, err := s.repo.ListFilms(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list films: %w", err)
	}
	return toFilms(gormFilms), nil
}

// GetFilm возвращает фильм с актерами и рейтингом Кинопоиска
func (s *CatalogService) GetFilm(ctx context.Context, id uuid.UUID) (*model.FilmDetail, error) {
	gf, err := s.repo.GetFilm(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return nil, filmNotFound(id)
		}
		return nil, fmt.Errorf("failed to get film: %w", err)
	}

	actors, err := s.repo.ListFilmActors(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list film actors: %w", err)
	}

	detail := &model.FilmDetail{Film: toFilm(*gf), Actors: toActors(actors)}
	if rating, ok := s.lookupRating(ctx, gf); ok {
		detail.KPRating = rating
	}
	return detail, nil
}

// lookupRating запрашивает свежий рейтинг и обновляет кэш; при ошибке остается сохраненное значение
func (s *CatalogService) lookupRating(ctx context.Context, gf *repository.GormFilm) (*float64, bool) {
	if s.ratings == nil {
		return nil, false
	}

	lookupCtx, cancel := context.WithTimeout(ctx, s.lookupTimeout)
	defer cancel()

	rating, err := s.ratings.Rating(lookupCtx, gf.Title)
	if err != nil {
		s.logger.WarnContext(ctx, "kinopoisk lookup failed, using cached rating",
			slog.String("film_id", gf.ID.String()), slog.Any("error", err))
		return nil, false
	}

	if err := s.repo.SetKPRating(ctx, gf.ID, rating, s.now()); err != nil {
		s.logger.ErrorContext(ctx, "failed to cache kinopoisk rating",
			slog.String("film_id", gf.ID.String()), slog.Any("error", err))
	}
	return rating, true
}

// CreateFilm проверяет данные и создает фильм
func (s *CatalogService) CreateFilm(ctx context.Context, in FilmInput) (*model.Film, error) {
	if err := s.validateFilm(in); err != nil {
		s.logger.WarnContext(ctx, "invalid film input", slog.Any("error", err))
		return nil, err
	}

	gf := filmFromInput(in)
	if err := s.repo.CreateFilm(ctx, gf); err != nil {
		return nil, fmt.Errorf("failed to create film: %w", err)
	}

	film := toFilm(*gf)
	return &film, nil
}

// UpdateFilm проверяет данные и обновляет фильм
func (s *CatalogService) UpdateFilm(ctx context.Context, id uuid.UUID, in FilmInput) (*model.Film, error) {
	if _, err := s.FindFilm(ctx, id); err != nil {
		return nil, err
	}

	if err := s.validateFilm(in); err != nil {
		s.logger.WarnContext(ctx, "invalid film input", slog.String("film_id", id.String()), slog.Any("error", err))
		return nil, err
	}

	gf := filmFromInput(in)
	gf.ID = id
	if err := s.repo.UpdateFilm(ctx, gf); err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return nil, filmNotFound(id)
		}
		return nil, fmt.Errorf("failed to update film: %w", err)
	}

	film := toFilm(*gf)
	return &film, nil
}

// FindFilm возвращает фильм без связанных данных
func (s *CatalogService) FindFilm(ctx context.Context, id uuid.UUID) (*model.Film, error) {
	gf, err := s.repo.GetFilm(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return nil, filmNotFound(id)
		}
		return nil, fmt.Errorf("failed to get film: %w", err)
	}
	film := toFilm(*gf)
	return &film, nil
}

// DeleteFilm удаляет фильм и его связи с актерами
func (s *CatalogService) DeleteFilm(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteFilm(ctx, id); err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return filmNotFound(id)
		}
		return fmt.Errorf("failed to delete film: %w", err)
	}
	return nil
}

// AddActorToFilm связывает актера с фильмом
func (s *CatalogService) AddActorToFilm(ctx context.Context, filmID, actorID uuid.UUID) error {
	if _, err := s.FindFilm(ctx, filmID); err != nil {
		return err
	}
	if _, err := s.FindActor(ctx, actorID); err != nil {
		return err
	}
	return s.addCast(ctx, filmID, actorID, "Actor is already matched with this film")
}

// RemoveActorFromFilm удаляет связь актера с фильмом; отсутствующая связь не ошибка
func (s *CatalogService) RemoveActorFromFilm(ctx context.Context, filmID, actorID uuid.UUID) error {
	if err := s.repo.RemoveCast(ctx, filmID, actorID); err != nil {
		return fmt.Errorf("failed to remove cast: %w", err)
	}
	return nil
}

func (s *CatalogService) addCast(ctx context.Context, filmID, actorID uuid.UUID, conflictMsg string) error {
	if err := s.repo.AddCast(ctx, filmID, actorID); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return newError(ErrConflict, "%s", conflictMsg)
		}
		return fmt.Errorf("failed to add cast: %w", err)
	}
	return nil
}

// ListActors возвращает всех актеров
func (s *CatalogService) ListActors(ctx context.Context) ([]model.Actor, error) {
	gormActors, err := s.repo.ListActors(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list actors: %w", err)
	}
	return toActors(gormActors), nil
}

// GetActor возвращает актера с фильмографией и возрастом
func (s *CatalogService) GetActor(ctx context.Context, id uuid.UUID) (*model.ActorDetail, error) {
	actor, err := s.FindActor(ctx, id)
	if err != nil {
		return nil, err
	}

	films, err := s.repo.ListActorFilms(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list actor films: %w", err)
	}

	return &model.ActorDetail{
		Actor:      *actor,
		Age:        actor.AgeAt(s.now()),
		FilmsCount: len(films),
		Films:      toFilms(films),
	}, nil
}

// FindActor возвращает актера без связанных данных
func (s *CatalogService) FindActor(ctx context.Context, id uuid.UUID) (*model.Actor, error) {
	ga, err := s.repo.GetActor(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return nil, actorNotFound(id)
		}
		return nil, fmt.Errorf("failed to get actor: %w", err)
	}
	actor := toActor(*ga)
	return &actor, nil
}

// CreateActor проверяет данные и создает актера
func (s *CatalogService) CreateActor(ctx context.Context, in ActorInput) (*model.Actor, error) {
	if err := s.validateActor(in); err != nil {
		s.logger.WarnContext(ctx, "invalid actor input", slog.Any("error", err))
		return nil, err
	}

	ga := actorFromInput(in)
	if err := s.repo.CreateActor(ctx, ga); err != nil {
		return nil, fmt.Errorf("failed to create actor: %w", err)
	}

	actor := toActor(*ga)
	return &actor, nil
}

// UpdateActor проверяет данные и обновляет актера
func (s *CatalogService) UpdateActor(ctx context.Context, id uuid.UUID, in ActorInput) (*model.Actor, error) {
	if _, err := s.FindActor(ctx, id); err != nil {
		return nil, err
	}

	if err := s.validateActor(in); err != nil {
		s.logger.WarnContext(ctx, "invalid actor input", slog.String("actor_id", id.String()), slog.Any("error", err))
		return nil, err
	}

	ga := actorFromInput(in)
	ga.ID = id
	if err := s.repo.UpdateActor(ctx, ga); err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return nil, actorNotFound(id)
		}
		return nil, fmt.Errorf("failed to update actor: %w", err)
	}

	actor := toActor(*ga)
	return &actor, nil
}

// DeleteActor удаляет актера и его связи с фильмами
func (s *CatalogService) DeleteActor(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteActor(ctx, id); err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return actorNotFound(id)
		}
		return fmt.Errorf("failed to delete actor: %w", err)
	}
	return nil
}

// AddFilmToActor связывает фильм с актером
func (s *CatalogService) AddFilmToActor(ctx context.Context, actorID, filmID uuid.UUID) error {
	if _, err := s.FindActor(ctx, actorID); err != nil {
		return err
	}
	if _, err := s.FindFilm(ctx, filmID); err != nil {
		return err
	}
	return s.addCast(ctx, filmID, actorID, "Film is already matched with this actor")
}

// RemoveFilmFromActor удаляет связь фильма с актером; отсутствующая связь не ошибка
func (s *CatalogService) RemoveFilmFromActor(ctx context.Context, actorID, filmID uuid.UUID) error {
	return s.RemoveActorFromFilm(ctx, filmID, actorID)
}

// RefreshRatings обновляет сохраненные рейтинги Кинопоиска для всех фильмов
func (s *CatalogService) RefreshRatings(ctx context.Context) (int, error) {
	if s.ratings == nil {
		return 0, nil
	}

	films, err := s.repo.ListFilms(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list films: %w", err)
	}

	updated, failed := 0, 0
	for i := range films {
		if err := ctx.Err(); err != nil {
			return updated, err
		}

		rating, err := s.ratings.Rating(ctx, films[i].Title)
		if err != nil {
			failed++
			s.logger.WarnContext(ctx, "kinopoisk lookup failed", slog.String("film_id", films[i].ID.String()), slog.Any("error", err))
			continue
		}
		if err := s.repo.SetKPRating(ctx, films[i].ID, rating, s.now()); err != nil {
			failed++
			continue
		}
		updated++
	}

	s.logger.InfoContext(ctx, "kinopoisk ratings refreshed", slog.Int("updated", updated), slog.Int("failed", failed))
	return updated, nil
}

func filmFromInput(in FilmInput) *repository.GormFilm {
	return &repository.GormFilm{
		Title:       in.Title,
		Description: in.Description,
		Year:        in.Year,
		Rating:      in.Rating,
		Country:     in.Country,
		Status:      in.Status,
		Genre:       in.Genre,
	}
}

func actorFromInput(in ActorInput) *repository.GormActor {
	birth := dateOnly(in.BirthDate)
	ga := &repository.GormActor{
		FullName:  in.FullName,
		BirthDate: &birth,
		Sex:       in.Sex,
		Country:   in.Country,
	}
	if in.Death != nil {
		death := dateOnly(*in.Death)
		ga.Death = &death
	}
	return ga
}

func toFilm(gf repository.GormFilm) model.Film {
	return model.Film{
		ID:          gf.ID,
		Title:       gf.Title,
		Description: gf.Description,
		Year:        gf.Year,
		Rating:      gf.Rating,
		Country:     gf.Country,
		Status:      gf.Status,
		Genre:       gf.Genre,
		KPRating:    gf.KPRating,
	}
}

func toFilms(gormFilms []repository.GormFilm) []model.Film {
	films := make([]model.Film, 0, len(gormFilms))
	for _, gf := range gormFilms {
		films = append(films, toFilm(gf))
	}
	return films
}

func toActor(ga repository.GormActor) model.Actor {
	actor := model.Actor{
		ID:       ga.ID,
		FullName: ga.FullName,
		Sex:      ga.Sex,
		Country:  ga.Country,
	}
	if ga.BirthDate != nil {
		actor.BirthDate = &model.Date{Time: *ga.BirthDate}
	}
	if ga.Death != nil {
		actor.Death = &model.Date{Time: *ga.Death}
	}
	return actor
}

func toActors(gormActors []repository.GormActor) []model.Actor {
	actors := make([]model.Actor, 0, len(gormActors))
	for _, ga := range gormActors {
		actors = append(actors, toActor(ga))
	}
	return actors
}
