package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/watchlist-kata/moviedb/internal/model"
	"github.com/watchlist-kata/moviedb/pkg/countries"
)

// Ограничения на длину полей фильма; значение должно быть строго меньше
const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 1000
	MaxGenreLength       = 150
)

// FilmInput - данные формы создания или редактирования фильма
type FilmInput struct {
	Title       string  `validate:"required,max=199"`
	Description string  `validate:"max=999"`
	Genre       string  `validate:"max=149"`
	Year        int     `validate:"notfutureyear"`
	Country     string  `validate:"country"`
	Status      string  `validate:"oneof=completed continues announcement"`
	Rating      float64 `validate:"gte=0,lte=10"`
}

// ActorInput - данные формы создания или редактирования актера
type ActorInput struct {
	FullName  string `validate:"required,max=255"`
	BirthDate time.Time
	Sex       string `validate:"oneof=Male Female"`
	Death     *time.Time
	Country   string `validate:"country"`
}

// messages сопоставляет поле и правило с сообщением для клиента
var messages = map[string]string{
	"Title.required":     "Title is required",
	"Title.max":          fmt.Sprintf("Length of title must not be greater than %d symbols", MaxTitleLength),
	"Description.max":    fmt.Sprintf("Length of description must not be greater than %d symbols", MaxDescriptionLength),
	"Genre.max":          fmt.Sprintf("Length of genre must not be greater than %d symbols", MaxGenreLength),
	"Year.notfutureyear": "Film's year cannot be in the future.",
	"Country.country":    "This country does not exists, please write full name of your country",
	"Status.oneof":       "This status doesn't exist, use one of these: completed, continues, announcement",
	"Rating.gte":         "Rating must be between 0 and 10",
	"Rating.lte":         "Rating must be between 0 and 10",
	"FullName.required":  "Full name is required",
	"FullName.max":       "Length of full name must not be greater than 255 symbols",
	"Sex.oneof":          "Sex must be one of these: Male, Female",
}

func newValidator(now func() time.Time) *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("country", func(fl validator.FieldLevel) bool {
		return countries.Valid(fl.Field().String())
	})
	_ = v.RegisterValidation("notfutureyear", func(fl validator.FieldLevel) bool {
		return fl.Field().Int() <= int64(now().Year())
	})
	return v
}

// translate превращает первую ошибку валидатора в ошибку с понятным сообщением
func translate(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	if msg, ok := messages[fe.StructField()+"."+fe.Tag()]; ok {
		return Invalid("%s", msg)
	}
	return Invalid("Field %s failed on the %q rule", fe.StructField(), fe.Tag())
}

func (s *CatalogService) validateFilm(in FilmInput) error {
	if err := s.validate.Struct(in); err != nil {
		return translate(err)
	}
	return nil
}

func (s *CatalogService) validateActor(in ActorInput) error {
	today := dateOnly(s.now())

	if in.BirthDate.IsZero() {
		return Invalid("Birth date is required")
	}
	if dateOnly(in.BirthDate).After(today) {
		return Invalid("Birth date cannot be in the future.")
	}
	if in.Death != nil {
		if dateOnly(in.BirthDate).After(dateOnly(*in.Death)) {
			return Invalid("Birth date cannot be later than death date.")
		}
		if dateOnly(*in.Death).After(today) {
			return Invalid("Death date cannot be in the future.")
		}
	}

	if err := s.validate.Struct(in); err != nil {
		return translate(err)
	}
	return nil
}

// dateOnly отбрасывает время суток, сохраняя календарную дату
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// FilmFormOptions возвращает значения для формы фильма
func (s *CatalogService) FilmFormOptions() model.FormOptions {
	return model.FormOptions{Countries: countries.All(), Statuses: model.Statuses}
}

// ActorFormOptions возвращает значения для формы актера
func (s *CatalogService) ActorFormOptions() model.FormOptions {
	return model.FormOptions{Countries: countries.All(), Sexes: model.Sexes}
}
