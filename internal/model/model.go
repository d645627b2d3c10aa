package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Статусы фильма
const (
	StatusCompleted    = "completed"
	StatusContinues    = "continues"
	StatusAnnouncement = "announcement"
)

// Пол актера
const (
	SexMale   = "Male"
	SexFemale = "Female"
)

// Statuses перечисляет допустимые статусы фильма
var Statuses = []string{StatusCompleted, StatusContinues, StatusAnnouncement}

// Sexes перечисляет допустимые значения пола
var Sexes = []string{SexMale, SexFemale}

// Date форматируется в JSON как YYYY-MM-DD
type Date struct {
	time.Time
}

// MarshalJSON реализует json.Marshaler
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(time.DateOnly) + `"`), nil
}

// UnmarshalJSON реализует json.Unmarshaler
func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		return nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// Film - фильм каталога
type Film struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Year        int       `json:"year"`
	Rating      float64   `json:"rating"`
	Country     string    `json:"country"`
	Status      string    `json:"status"`
	Genre       string    `json:"genre"`
	KPRating    *float64  `json:"kp_rating,omitempty"`
}

// Actor - актер каталога
type Actor struct {
	ID        uuid.UUID `json:"id"`
	FullName  string    `json:"full_name"`
	BirthDate *Date     `json:"birth_date,omitempty"`
	Sex       string    `json:"sex"`
	Death     *Date     `json:"death,omitempty"`
	Country   string    `json:"country"`
}

// AgeAt возвращает полное число лет на дату now или nil, если дата рождения неизвестна
func (a Actor) AgeAt(now time.Time) *int {
	if a.BirthDate == nil {
		return nil
	}
	birth := a.BirthDate.Time
	age := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		age--
	}
	return &age
}

// FilmDetail - фильм вместе с актерами; Film.KPRating содержит актуальный рейтинг Кинопоиска
type FilmDetail struct {
	Film
	Actors []Actor `json:"actors"`
}

// ActorDetail - актер вместе с фильмографией
type ActorDetail struct {
	Actor
	Age        *int   `json:"age"`
	FilmsCount int    `json:"films_count"`
	Films      []Film `json:"films"`
}

// FormOptions - значения для форм создания и редактирования
type FormOptions struct {
	Countries []string `json:"countries"`
	Statuses  []string `json:"statuses,omitempty"`
	Sexes     []string `json:"sexes,omitempty"`
}
