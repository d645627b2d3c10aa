package handler

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// FilmHandler обслуживает раздел /films
type FilmHandler struct {
	catalog Catalog
	logger  *slog.Logger
}

// NewFilmHandler создает новый экземпляр FilmHandler
func NewFilmHandler(catalog Catalog, logger *slog.Logger) *FilmHandler {
	return &FilmHandler{catalog: catalog, logger: logger}
}

// FilmDetailURL возвращает адрес страницы фильма
func FilmDetailURL(id uuid.UUID) string {
	return "/films/film/" + id.String() + "/"
}

// List отдает список фильмов
func (h *FilmHandler) List(c *fiber.Ctx) error {
	films, err := h.catalog.ListFilms(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"films": films})
}

// Detail отдает фильм с актерами и рейтингом Кинопоиска
func (h *FilmHandler) Detail(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	film, err := h.catalog.GetFilm(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(film)
}

// AddForm отдает значения для формы создания фильма
func (h *FilmHandler) AddForm(c *fiber.Ctx) error {
	return c.JSON(h.catalog.FilmFormOptions())
}

// Add создает фильм и перенаправляет на его страницу
func (h *FilmHandler) Add(c *fiber.Ctx) error {
	in, err := parseFilmForm(c, filmCreatePrefix)
	if err != nil {
		return err
	}

	film, err := h.catalog.CreateFilm(c.UserContext(), in)
	if err != nil {
		return err
	}

	h.logger.InfoContext(c.UserContext(), "film added", slog.String("film_id", film.ID.String()), slog.String("title", film.Title))
	return c.Redirect(FilmDetailURL(film.ID), fiber.StatusFound)
}

// UpdateForm отдает текущие значения фильма и значения для формы
func (h *FilmHandler) UpdateForm(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	film, err := h.catalog.FindFilm(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"film": film, "options": h.catalog.FilmFormOptions()})
}

// Update сохраняет изменения фильма
func (h *FilmHandler) Update(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	// существование проверяется до разбора формы, чтобы отсутствующий фильм давал 404
	if _, err := h.catalog.FindFilm(c.UserContext(), id); err != nil {
		return err
	}

	in, err := parseFilmForm(c, filmUpdatePrefix)
	if err != nil {
		return err
	}

	if _, err := h.catalog.UpdateFilm(c.UserContext(), id, in); err != nil {
		return err
	}
	return c.Redirect(FilmDetailURL(id), fiber.StatusFound)
}

// Delete удаляет фильм и перенаправляет на список
func (h *FilmHandler) Delete(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	if err := h.catalog.DeleteFilm(c.UserContext(), id); err != nil {
		return err
	}
	return c.Redirect("/films/", fiber.StatusFound)
}

// AddActorForm отдает список актеров, которых можно добавить к фильму
func (h *FilmHandler) AddActorForm(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	film, err := h.catalog.FindFilm(c.UserContext(), id)
	if err != nil {
		return err
	}

	actors, err := h.catalog.ListActors(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"film": film, "actors": actors})
}

// AddActor связывает актера из поля film-actor с фильмом
func (h *FilmHandler) AddActor(c *fiber.Ctx) error {
	filmID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	actorID, err := uuid.Parse(formValue(c, "film-actor"))
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "Actor with id \""+formValue(c, "film-actor")+"\" not found!")
	}

	if err := h.catalog.AddActorToFilm(c.UserContext(), filmID, actorID); err != nil {
		return err
	}
	return c.Redirect(FilmDetailURL(filmID), fiber.StatusFound)
}

// DeleteActor убирает актера из фильма
func (h *FilmHandler) DeleteActor(c *fiber.Ctx) error {
	filmID, err := paramID(c, "film_id")
	if err != nil {
		return err
	}
	actorID, err := paramID(c, "actor_id")
	if err != nil {
		return err
	}

	if err := h.catalog.RemoveActorFromFilm(c.UserContext(), filmID, actorID); err != nil {
		return err
	}
	return c.Redirect(FilmDetailURL(filmID), fiber.StatusFound)
}
