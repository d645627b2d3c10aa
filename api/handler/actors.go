package handler

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// ActorHandler обслуживает раздел /actors
type ActorHandler struct {
	catalog Catalog
	logger  *slog.Logger
}

// NewActorHandler создает новый экземпляр ActorHandler
func NewActorHandler(catalog Catalog, logger *slog.Logger) *ActorHandler {
	return &ActorHandler{catalog: catalog, logger: logger}
}

// ActorDetailURL возвращает адрес страницы актера
func ActorDetailURL(id uuid.UUID) string {
	return "/actors/actor/" + id.String() + "/"
}

// List отдает список актеров
func (h *ActorHandler) List(c *fiber.Ctx) error {
	actors, err := h.catalog.ListActors(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"actors": actors})
}

// Detail отдает актера с фильмографией
func (h *ActorHandler) Detail(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	actor, err := h.catalog.GetActor(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(actor)
}

// AddForm отдает значения для формы создания актера
func (h *ActorHandler) AddForm(c *fiber.Ctx) error {
	return c.JSON(h.catalog.ActorFormOptions())
}

// Add создает актера и перенаправляет на его страницу
func (h *ActorHandler) Add(c *fiber.Ctx) error {
	in, err := parseActorForm(c, actorCreatePrefix)
	if err != nil {
		return err
	}

	actor, err := h.catalog.CreateActor(c.UserContext(), in)
	if err != nil {
		return err
	}

	h.logger.InfoContext(c.UserContext(), "actor added", slog.String("actor_id", actor.ID.String()), slog.String("full_name", actor.FullName))
	return c.Redirect(ActorDetailURL(actor.ID), fiber.StatusFound)
}

// UpdateForm отдает текущие значения актера и значения для формы
func (h *ActorHandler) UpdateForm(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	actor, err := h.catalog.FindActor(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"actor": actor, "options": h.catalog.ActorFormOptions()})
}

// Update сохраняет изменения актера
func (h *ActorHandler) Update(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	if _, err := h.catalog.FindActor(c.UserContext(), id); err != nil {
		return err
	}

	in, err := parseActorForm(c, actorUpdatePrefix)
	if err != nil {
		return err
	}

	if _, err := h.catalog.UpdateActor(c.UserContext(), id, in); err != nil {
		return err
	}
	return c.Redirect(ActorDetailURL(id), fiber.StatusFound)
}

// Delete удаляет актера и перенаправляет на список
func (h *ActorHandler) Delete(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	if err := h.catalog.DeleteActor(c.UserContext(), id); err != nil {
		return err
	}
	return c.Redirect("/actors/", fiber.StatusFound)
}

// AddFilmForm отдает список фильмов, которые можно добавить актеру
func (h *ActorHandler) AddFilmForm(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	actor, err := h.catalog.FindActor(c.UserContext(), id)
	if err != nil {
		return err
	}

	films, err := h.catalog.ListFilms(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"actor": actor, "films": films})
}

// AddFilm связывает фильм из поля actor-film с актером
func (h *ActorHandler) AddFilm(c *fiber.Ctx) error {
	actorID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	filmID, err := uuid.Parse(formValue(c, "actor-film"))
	if err != nil {
		return fiber.NewError(fiber.StatusNotFound, "Film with id \""+formValue(c, "actor-film")+"\" not found!")
	}

	if err := h.catalog.AddFilmToActor(c.UserContext(), actorID, filmID); err != nil {
		return err
	}
	return c.Redirect(ActorDetailURL(actorID), fiber.StatusFound)
}

// DeleteFilm убирает фильм из фильмографии актера
func (h *ActorHandler) DeleteFilm(c *fiber.Ctx) error {
	actorID, err := paramID(c, "actor_id")
	if err != nil {
		return err
	}
	filmID, err := paramID(c, "film_id")
	if err != nil {
		return err
	}

	if err := h.catalog.RemoveFilmFromActor(c.UserContext(), actorID, filmID); err != nil {
		return err
	}
	return c.Redirect(ActorDetailURL(actorID), fiber.StatusFound)
}
