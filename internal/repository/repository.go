package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrRecordNotFound возвращается, когда запись не найдена
	ErrRecordNotFound = errors.New("record not found")
	// ErrDuplicateEntry возвращается при попытке создать дублирующуюся запись
	ErrDuplicateEntry = errors.New("duplicate entry")
)

// FilmRepository описывает хранение фильмов
type FilmRepository interface {
	CreateFilm(ctx context.Context, film *GormFilm) error
	UpdateFilm(ctx context.Context, film *GormFilm) error
	GetFilm(ctx context.Context, id uuid.UUID) (*GormFilm, error)
	ListFilms(ctx context.Context) ([]GormFilm, error)
	DeleteFilm(ctx context.Context, id uuid.UUID) error
	SetKPRating(ctx context.Context, id uuid.UUID, rating *float64, at time.Time) error
}

// ActorRepository описывает хранение актеров
type ActorRepository interface {
	CreateActor(ctx context.Context, actor *GormActor) error
	UpdateActor(ctx context.Context, actor *GormActor) error
	GetActor(ctx context.Context, id uuid.UUID) (*GormActor, error)
	ListActors(ctx context.Context) ([]GormActor, error)
	DeleteActor(ctx context.Context, id uuid.UUID) error
}

// CastRepository описывает связи фильм-актер
type CastRepository interface {
	AddCast(ctx context.Context, filmID, actorID uuid.UUID) error
	RemoveCast(ctx context.Context, filmID, actorID uuid.UUID) error
	CheckCast(ctx context.Context, filmID, actorID uuid.UUID) (bool, error)
	ListFilmActors(ctx context.Context, filmID uuid.UUID) ([]GormActor, error)
	ListActorFilms(ctx context.Context, actorID uuid.UUID) ([]GormFilm, error)
}

// Repository объединяет все репозитории каталога
type Repository interface {
	FilmRepository
	ActorRepository
	CastRepository
	Ping(ctx context.Context) error
}

// PostgresRepository реализует Repository поверх gorm
type PostgresRepository struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewPostgresRepository создает новый экземпляр PostgresRepository
func NewPostgresRepository(db *gorm.DB, logger *slog.Logger) *PostgresRepository {
	return &PostgresRepository{db: db, logger: logger}
}

// checkContext проверяет отмену контекста и логирует ошибку
func (r *PostgresRepository) checkContext(ctx context.Context, op string, attrs ...any) error {
	select {
	case <-ctx.Done():
		r.logger.ErrorContext(ctx, fmt.Sprintf("%s operation canceled", op), append(attrs, slog.Any("error", ctx.Err()))...)
		return ctx.Err()
	default:
		return nil
	}
}

// Ping проверяет доступность базы данных
func (r *PostgresRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// CreateFilm сохраняет новый фильм
func (r *PostgresRepository) CreateFilm(ctx context.Context, film *GormFilm) error {
	if err := r.checkContext(ctx, "CreateFilm"); err != nil {
		return err
	}

	if err := r.db.WithContext(ctx).Create(film).Error; err != nil {
		r.logger.ErrorContext(ctx, "failed to create film", slog.String("title", film.Title), slog.Any("error", err))
		return err
	}

	r.logger.InfoContext(ctx, "film created", slog.String("film_id", film.ID.String()))
	return nil
}

// UpdateFilm обновляет редактируемые поля фильма
func (r *PostgresRepository) UpdateFilm(ctx context.Context, film *GormFilm) error {
	if err := r.checkContext(ctx, "UpdateFilm", slog.String("film_id", film.ID.String())); err != nil {
		return err
	}

	res := r.db.WithContext(ctx).Model(&GormFilm{}).Where("id = ?", film.ID).
		Select("title", "description", "year", "rating", "country", "status", "genre", "updated_at").
		Updates(map[string]any{
			"title":       film.Title,
			"description": film.Description,
			"year":        film.Year,
			"rating":      film.Rating,
			"country":     film.Country,
			"status":      film.Status,
			"genre":       film.Genre,
			"updated_at":  time.Now(),
		})
	if res.Error != nil {
		r.logger.ErrorContext(ctx, "failed to update film", slog.String("film_id", film.ID.String()), slog.Any("error", res.Error))
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}

	r.logger.InfoContext(ctx, "film updated", slog.String("film_id", film.ID.String()))
	return nil
}

// GetFilm возвращает фильм по идентификатору
func (r *PostgresRepository) GetFilm(ctx context.Context, id uuid.UUID) (*GormFilm, error) {
	if err := r.checkContext(ctx, "GetFilm", slog.String("film_id", id.String())); err != nil {
		return nil, err
	}

	var film GormFilm
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&film).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		r.logger.ErrorContext(ctx, "failed to get film", slog.String("film_id", id.String()), slog.Any("error", err))
		return nil, err
	}
	return &film, nil
}

// ListFilms возвращает все фильмы, упорядоченные по названию
func (r *PostgresRepository) ListFilms(ctx context.Context) ([]GormFilm, error) {
	if err := r.checkContext(ctx, "ListFilms"); err != nil {
		return nil, err
	}

	var films []GormFilm
	if err := r.db.WithContext(ctx).Order("title").Order("id").Find(&films).Error; err != nil {
		r.logger.ErrorContext(ctx, "failed to list films", slog.Any("error", err))
		return nil, err
	}
	return films, nil
}

// DeleteFilm удаляет фильм вместе с его связями с актерами
func (r *PostgresRepository) DeleteFilm(ctx context.Context, id uuid.UUID) error {
	if err := r.checkContext(ctx, "DeleteFilm", slog.String("film_id", id.String())); err != nil {
		return err
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("film_id = ?", id).Delete(&GormFilmActor{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&GormFilm{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrRecordNotFound) {
			r.logger.ErrorContext(ctx, "failed to delete film", slog.String("film_id", id.String()), slog.Any("error", err))
		}
		return err
	}

	r.logger.InfoContext(ctx, "film deleted", slog.String("film_id", id.String()))
	return nil
}

// SetKPRating сохраняет рейтинг Кинопоиска для фильма
func (r *PostgresRepository) SetKPRating(ctx context.Context, id uuid.UUID, rating *float64, at time.Time) error {
	if err := r.checkContext(ctx, "SetKPRating", slog.String("film_id", id.String())); err != nil {
		return err
	}

	res := r.db.WithContext(ctx).Model(&GormFilm{}).Where("id = ?", id).
		UpdateColumns(map[string]any{"kp_rating": rating, "kp_rating_updated_at": at})
	if res.Error != nil {
		r.logger.ErrorContext(ctx, "failed to store kinopoisk rating", slog.String("film_id", id.String()), slog.Any("error", res.Error))
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// CreateActor сохраняет нового актера
func (r *PostgresRepository) CreateActor(ctx context.Context, actor *GormActor) error {
	if err := r.checkContext(ctx, "CreateActor"); err != nil {
		return err
	}

	if err := r.db.WithContext(ctx).Create(actor).Error; err != nil {
		r.logger.ErrorContext(ctx, "failed to create actor", slog.String("full_name", actor.FullName), slog.Any("error", err))
		return err
	}

	r.logger.InfoContext(ctx, "actor created", slog.String("actor_id", actor.ID.String()))
	return nil
}

// UpdateActor обновляет редактируемые поля актера
func (r *PostgresRepository) UpdateActor(ctx context.Context, actor *GormActor) error {
	if err := r.checkContext(ctx, "UpdateActor", slog.String("actor_id", actor.ID.String())); err != nil {
		return err
	}

	res := r.db.WithContext(ctx).Model(&GormActor{}).Where("id = ?", actor.ID).
		Select("full_name", "birth_date", "sex", "death", "country", "updated_at").
		Updates(map[string]any{
			"full_name":  actor.FullName,
			"birth_date": actor.BirthDate,
			"sex":        actor.Sex,
			"death":      actor.Death,
			"country":    actor.Country,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		r.logger.ErrorContext(ctx, "failed to update actor", slog.String("actor_id", actor.ID.String()), slog.Any("error", res.Error))
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}

	r.logger.InfoContext(ctx, "actor updated", slog.String("actor_id", actor.ID.String()))
	return nil
}

// GetActor возвращает актера по идентификатору
func (r *PostgresRepository) GetActor(ctx context.Context, id uuid.UUID) (*GormActor, error) {
	if err := r.checkContext(ctx, "GetActor", slog.String("actor_id", id.String())); err != nil {
		return nil, err
	}

	var actor GormActor
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&actor).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		r.logger.ErrorContext(ctx, "failed to get actor", slog.String("actor_id", id.String()), slog.Any("error", err))
		return nil, err
	}
	return &actor, nil
}

// ListActors возвращает всех актеров, упорядоченных по имени
func (r *PostgresRepository) ListActors(ctx context.Context) ([]GormActor, error) {
	if err := r.checkContext(ctx, "ListActors"); err != nil {
		return nil, err
	}

	var actors []GormActor
	if err := r.db.WithContext(ctx).Order("full_name").Order("id").Find(&actors).Error; err != nil {
		r.logger.ErrorContext(ctx, "failed to list actors", slog.Any("error", err))
		return nil, err
	}
	return actors, nil
}

// DeleteActor удаляет актера вместе с его связями с фильмами
func (r *PostgresRepository) DeleteActor(ctx context.Context, id uuid.UUID) error {
	if err := r.checkContext(ctx, "DeleteActor", slog.String("actor_id", id.String())); err != nil {
		return err
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("actor_id = ?", id).Delete(&GormFilmActor{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&GormActor{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrRecordNotFound) {
			r.logger.ErrorContext(ctx, "failed to delete actor", slog.String("actor_id", id.String()), slog.Any("error", err))
		}
		return err
	}

	r.logger.InfoContext(ctx, "actor deleted", slog.String("actor_id", id.String()))
	return nil
}

// AddCast связывает актера с фильмом
func (r *PostgresRepository) AddCast(ctx context.Context, filmID, actorID uuid.UUID) error {
	attrs := []any{slog.String("film_id", filmID.String()), slog.String("actor_id", actorID.String())}
	if err := r.checkContext(ctx, "AddCast", attrs...); err != nil {
		return err
	}

	// Сначала проверяем, существует ли уже такая связь
	exists, err := r.CheckCast(ctx, filmID, actorID)
	if err != nil {
		return err
	}
	if exists {
		r.logger.WarnContext(ctx, "actor already matched with film", attrs...)
		return ErrDuplicateEntry
	}

	link := &GormFilmActor{FilmID: filmID, ActorID: actorID}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(link).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateEntry
		}
		r.logger.ErrorContext(ctx, "failed to add actor to film", append(attrs, slog.Any("error", err))...)
		return err
	}

	r.logger.InfoContext(ctx, "actor added to film", attrs...)
	return nil
}

// RemoveCast удаляет связь актера с фильмом; отсутствие связи ошибкой не считается
func (r *PostgresRepository) RemoveCast(ctx context.Context, filmID, actorID uuid.UUID) error {
	attrs := []any{slog.String("film_id", filmID.String()), slog.String("actor_id", actorID.String())}
	if err := r.checkContext(ctx, "RemoveCast", attrs...); err != nil {
		return err
	}

	res := r.db.WithContext(ctx).Where("film_id = ? AND actor_id = ?", filmID, actorID).Delete(&GormFilmActor{})
	if res.Error != nil {
		r.logger.ErrorContext(ctx, "failed to remove actor from film", append(attrs, slog.Any("error", res.Error))...)
		return res.Error
	}

	if res.RowsAffected > 0 {
		r.logger.InfoContext(ctx, "actor removed from film", attrs...)
	}
	return nil
}

// CheckCast проверяет, связан ли актер с фильмом
func (r *PostgresRepository) CheckCast(ctx context.Context, filmID, actorID uuid.UUID) (bool, error) {
	if err := r.checkContext(ctx, "CheckCast"); err != nil {
		return false, err
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&GormFilmActor{}).
		Where("film_id = ? AND actor_id = ?", filmID, actorID).Count(&count).Error; err != nil {
		r.logger.ErrorContext(ctx, "failed to check cast", slog.String("film_id", filmID.String()),
			slog.String("actor_id", actorID.String()), slog.Any("error", err))
		return false, err
	}
	return count > 0, nil
}

// ListFilmActors возвращает актеров фильма
func (r *PostgresRepository) ListFilmActors(ctx context.Context, filmID uuid.UUID) ([]GormActor, error) {
	if err := r.checkContext(ctx, "ListFilmActors"); err != nil {
		return nil, err
	}

	var actors []GormActor
	err := r.db.WithContext(ctx).
		Joins("JOIN films_actors ON films_actors.actor_id = actors.id").
		Where("films_actors.film_id = ?", filmID).
		Order("actors.full_name").
		Find(&actors).Error
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to list film actors", slog.String("film_id", filmID.String()), slog.Any("error", err))
		return nil, err
	}
	return actors, nil
}

// ListActorFilms возвращает фильмы актера
func (r *PostgresRepository) ListActorFilms(ctx context.Context, actorID uuid.UUID) ([]GormFilm, error) {
	if err := r.checkContext(ctx, "ListActorFilms"); err != nil {
		return nil, err
	}

	var films []GormFilm
	err := r.db.WithContext(ctx).
		Joins("JOIN films_actors ON films_actors.film_id = films.id").
		Where("films_actors.actor_id = ?", actorID).
		Order("films.title").
		Find(&films).Error
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to list actor films", slog.String("actor_id", actorID.String()), slog.Any("error", err))
		return nil, err
	}
	return films, nil
}
