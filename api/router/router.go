package router

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/watchlist-kata/moviedb/api/handler"
)

// Register подключает middleware и маршруты каталога
func Register(app *fiber.App, catalog handler.Catalog, logger *slog.Logger) {
	app.Use(requestLogger(logger))
	app.Use(recover.New())

	app.Get("/", handler.Home(catalog))

	filmHandler := handler.NewFilmHandler(catalog, logger)
	films := app.Group("/films")
	films.Get("/", filmHandler.List)
	films.Get("/film/:id", filmHandler.Detail)
	films.Get("/add", filmHandler.AddForm)
	films.Post("/add", filmHandler.Add)
	films.Get("/update/:id", filmHandler.UpdateForm)
	films.Post("/update/:id", filmHandler.Update)
	films.Get("/delete/:id", filmHandler.Delete)
	films.Post("/delete/:id", filmHandler.Delete)
	films.Get("/add_actor/:id", filmHandler.AddActorForm)
	films.Post("/add_actor/:id", filmHandler.AddActor)
	films.Post("/delete_actor/:film_id/:actor_id", filmHandler.DeleteActor)

	actorHandler := handler.NewActorHandler(catalog, logger)
	actors := app.Group("/actors")
	actors.Get("/", actorHandler.List)
	actors.Get("/actor/:id", actorHandler.Detail)
	actors.Get("/add", actorHandler.AddForm)
	actors.Post("/add", actorHandler.Add)
	actors.Get("/update/:id", actorHandler.UpdateForm)
	actors.Post("/update/:id", actorHandler.Update)
	actors.Get("/delete/:id", actorHandler.Delete)
	actors.Post("/delete/:id", actorHandler.Delete)
	actors.Get("/add_film/:id", actorHandler.AddFilmForm)
	actors.Post("/add_film/:id", actorHandler.AddFilm)
	actors.Post("/delete_film/:actor_id/:film_id", actorHandler.DeleteFilm)
}

// requestLogger пишет в slog метод, путь, статус и длительность каждого запроса
func requestLogger(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		if err != nil {
			// ErrorHandler выставляет итоговый статус
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		logger.InfoContext(c.UserContext(), "http request",
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", c.Response().StatusCode()),
			slog.Duration("duration", time.Since(start)),
		)
		return nil
	}
}
