package handler

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/watchlist-kata/moviedb/internal/service"
)

// Префиксы полей форм: создание и редактирование различаются
const (
	filmCreatePrefix  = "film-"
	filmUpdatePrefix  = "film-new-"
	actorCreatePrefix = "actor-"
	actorUpdatePrefix = "actor-new-"
)

func formValue(c *fiber.Ctx, key string) string {
	return strings.TrimSpace(c.FormValue(key))
}

// parseFilmForm читает поля фильма с заданным префиксом
func parseFilmForm(c *fiber.Ctx, prefix string) (service.FilmInput, error) {
	in := service.FilmInput{
		Title:       formValue(c, prefix+"title"),
		Description: formValue(c, prefix+"description"),
		Country:     formValue(c, prefix+"country"),
		Status:      formValue(c, prefix+"status"),
		Genre:       formValue(c, prefix+"genre"),
	}

	year, err := strconv.Atoi(formValue(c, prefix+"year"))
	if err != nil {
		return in, service.Invalid("Film's year must be an integer.")
	}
	in.Year = year

	if raw := formValue(c, prefix+"rating"); raw != "" {
		rating, err := strconv.ParseFloat(strings.Replace(raw, ",", ".", 1), 64)
		if err != nil {
			return in, service.Invalid("Film's rating must be a number.")
		}
		in.Rating = rating
	}

	return in, nil
}

// parseActorForm читает поля актера с заданным префиксом; пустая дата смерти означает, что актер жив
func parseActorForm(c *fiber.Ctx, prefix string) (service.ActorInput, error) {
	in := service.ActorInput{
		FullName: formValue(c, prefix+"full-name"),
		Sex:      formValue(c, prefix+"sex"),
		Country:  formValue(c, prefix+"country"),
	}

	birth, err := time.Parse(time.DateOnly, formValue(c, prefix+"birth-date"))
	if err != nil {
		return in, service.Invalid("Birth date must be in YYYY-MM-DD format.")
	}
	in.BirthDate = birth

	if raw := formValue(c, prefix+"death"); raw != "" {
		death, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return in, service.Invalid("Death date must be in YYYY-MM-DD format.")
		}
		in.Death = &death
	}

	return in, nil
}
