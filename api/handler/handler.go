package handler

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/watchlist-kata/moviedb/internal/model"
	"github.com/watchlist-kata/moviedb/internal/service"
)

// Catalog - операции каталога, которые нужны HTTP обработчикам
type Catalog interface {
	ListFilms(ctx context.Context) ([]model.Film, error)
	GetFilm(ctx context.Context, id uuid.UUID) (*model.FilmDetail, error)
	FindFilm(ctx context.Context, id uuid.UUID) (*model.Film, error)
	CreateFilm(ctx context.Context, in service.FilmInput) (*model.Film, error)
	UpdateFilm(ctx context.Context, id uuid.UUID, in service.FilmInput) (*model.Film, error)
	DeleteFilm(ctx context.Context, id uuid.UUID) error
	AddActorToFilm(ctx context.Context, filmID, actorID uuid.UUID) error
	RemoveActorFromFilm(ctx context.Context, filmID, actorID uuid.UUID) error

	ListActors(ctx context.Context) ([]model.Actor, error)
	GetActor(ctx context.Context, id uuid.UUID) (*model.ActorDetail, error)
	FindActor(ctx context.Context, id uuid.UUID) (*model.Actor, error)
	CreateActor(ctx context.Context, in service.ActorInput) (*model.Actor, error)
	UpdateActor(ctx context.Context, id uuid.UUID, in service.ActorInput) (*model.Actor, error)
	DeleteActor(ctx context.Context, id uuid.UUID) error
	AddFilmToActor(ctx context.Context, actorID, filmID uuid.UUID) error
	RemoveFilmFromActor(ctx context.Context, actorID, filmID uuid.UUID) error

	FilmFormOptions() model.FormOptions
	ActorFormOptions() model.FormOptions
	RatingsEnabled() bool
}

// ErrorHandler отдает ошибки в формате {"status":"error","message":...}
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal Server Error"

		var fiberErr *fiber.Error
		var svcErr *service.Error
		switch {
		case errors.As(err, &fiberErr):
			code = fiberErr.Code
			message = fiberErr.Message
		case errors.As(err, &svcErr):
			message = svcErr.Message
			switch {
			case errors.Is(svcErr.Kind, service.ErrInvalid):
				code = fiber.StatusBadRequest
			case errors.Is(svcErr.Kind, service.ErrNotFound):
				code = fiber.StatusNotFound
			case errors.Is(svcErr.Kind, service.ErrConflict):
				code = fiber.StatusConflict
			}
		}

		if code >= fiber.StatusInternalServerError {
			logger.ErrorContext(c.UserContext(), "request failed",
				slog.String("method", c.Method()), slog.String("path", c.Path()), slog.Any("error", err))
		}

		return c.Status(code).JSON(fiber.Map{"status": "error", "message": message})
	}
}

// paramID разбирает идентификатор из пути; некорректный идентификатор означает 404
func paramID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, fiber.ErrNotFound
	}
	return id, nil
}

// Home отдает оглавление разделов
func Home(catalog Catalog) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"films":           "/films/",
			"actors":          "/actors/",
			"ratings_enabled": catalog.RatingsEnabled(),
		})
	}
}
