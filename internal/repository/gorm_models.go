package repository

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormFilm представляет модель фильма в базе данных
type GormFilm struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey"`
	Title             string    `gorm:"size:200"`
	Description       string    `gorm:"size:1000"`
	Year              int
	Rating            float64
	Country           string
	Status            string
	Genre             string `gorm:"size:150"`
	KPRating          *float64
	KPRatingUpdatedAt *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// TableName возвращает имя таблицы для модели GormFilm
func (GormFilm) TableName() string {
	return "films"
}

// BeforeCreate назначает идентификатор, если он не задан
func (f *GormFilm) BeforeCreate(*gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

// GormActor представляет модель актера в базе данных
type GormActor struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	FullName  string
	BirthDate *time.Time `gorm:"type:date"`
	Sex       string
	Death     *time.Time `gorm:"type:date"`
	Country   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName возвращает имя таблицы для модели GormActor
func (GormActor) TableName() string {
	return "actors"
}

// BeforeCreate назначает идентификатор, если он не задан
func (a *GormActor) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// GormFilmActor связывает фильм с актером
type GormFilmActor struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	FilmID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:films_actors_film_actor_ids_unique"`
	ActorID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:films_actors_film_actor_ids_unique;index"`
	Film      GormFilm  `gorm:"foreignKey:FilmID;constraint:OnDelete:CASCADE"`
	Actor     GormActor `gorm:"foreignKey:ActorID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
}

// TableName возвращает имя таблицы для модели GormFilmActor
func (GormFilmActor) TableName() string {
	return "films_actors"
}

// BeforeCreate назначает идентификатор, если он не задан
func (fa *GormFilmActor) BeforeCreate(*gorm.DB) error {
	if fa.ID == uuid.Nil {
		fa.ID = uuid.New()
	}
	return nil
}

// Models перечисляет все модели для миграции схемы
func Models() []any {
	return []any{&GormFilm{}, &GormActor{}, &GormFilmActor{}}
}
