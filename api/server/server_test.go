package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/watchlist-kata/moviedb/internal/model"
	"github.com/watchlist-kata/moviedb/internal/repository"
	"github.com/watchlist-kata/moviedb/internal/service"
	"github.com/watchlist-kata/moviedb/internal/testutil"
)

func setup(t *testing.T) (*fiber.App, *service.CatalogService) {
	t.Helper()
	repo := repository.NewPostgresRepository(testutil.NewDB(t), testutil.Logger())
	svc := service.NewCatalogService(repo, nil, testutil.Logger())
	return NewApp(svc, testutil.Logger()), svc
}

func do(t *testing.T, app *fiber.App, method, path string, form url.Values) *http.Response {
	t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, path, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func errorMessage(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	decode(t, resp, &body)
	assert.Equal(t, "error", body.Status)
	return body.Message
}

func filmForm(prefix string) url.Values {
	return url.Values{
		prefix + "title":       {"Test Film"},
		prefix + "description": {"Test description"},
		prefix + "country":     {"United States"},
		prefix + "year":        {strconv.Itoa(time.Now().Year())},
		prefix + "rating":      {"8.5"},
		prefix + "status":      {"completed"},
		prefix + "genre":       {"Action"},
	}
}

func createFilm(t *testing.T, svc *service.CatalogService, title string) *model.Film {
	t.Helper()
	film, err := svc.CreateFilm(context.Background(), service.FilmInput{
		Title: title, Year: 2005, Country: "France", Status: "completed",
	})
	require.NoError(t, err)
	return film
}

func createActor(t *testing.T, svc *service.CatalogService, name string) *model.Actor {
	t.Helper()
	actor, err := svc.CreateActor(context.Background(), service.ActorInput{
		FullName:  name,
		BirthDate: time.Date(1985, time.March, 10, 0, 0, 0, 0, time.UTC),
		Sex:       "Female",
		Country:   "Australia",
	})
	require.NoError(t, err)
	return actor
}

func TestHome(t *testing.T) {
	app, _ := setup(t)
	resp := do(t, app, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	decode(t, resp, &body)
	assert.Equal(t, "/films/", body["films"])
	assert.Equal(t, false, body["ratings_enabled"])
}

func TestGetFilms(t *testing.T) {
	app, _ := setup(t)
	resp := do(t, app, http.MethodGet, "/films/", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAddFilm(t *testing.T) {
	app, svc := setup(t)

	resp := do(t, app, http.MethodPost, "/films/add/", filmForm("film-"))
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Location"), "/films/film/"))

	films, err := svc.ListFilms(context.Background())
	require.NoError(t, err)
	require.Len(t, films, 1)
	assert.Equal(t, "Test Film", films[0].Title)
	assert.InDelta(t, 8.5, films[0].Rating, 1e-9)

	detail := do(t, app, http.MethodGet, resp.Header.Get("Location"), nil)
	assert.Equal(t, http.StatusOK, detail.StatusCode)
}

func TestAddFilmValidation(t *testing.T) {
	app, _ := setup(t)

	form := filmForm("film-")
	form.Set("film-title", strings.Repeat("x", 200))
	resp := do(t, app, http.MethodPost, "/films/add/", form)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Length of title must not be greater than 200 symbols", errorMessage(t, resp))

	form = filmForm("film-")
	form.Set("film-year", "next year")
	resp = do(t, app, http.MethodPost, "/films/add/", form)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	form = filmForm("film-")
	form.Set("film-year", strconv.Itoa(time.Now().Year()+1))
	resp = do(t, app, http.MethodPost, "/films/add/", form)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Film's year cannot be in the future.", errorMessage(t, resp))
}

func TestAddFilmForm(t *testing.T) {
	app, _ := setup(t)
	resp := do(t, app, http.MethodGet, "/films/add/", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var opts model.FormOptions
	decode(t, resp, &opts)
	assert.Contains(t, opts.Countries, "United States")
	assert.Equal(t, model.Statuses, opts.Statuses)
}

func TestUpdateFilm(t *testing.T) {
	app, svc := setup(t)
	film := createFilm(t, svc, "Old Title")

	form := url.Values{
		"film-new-title":       {"New Title"},
		"film-new-description": {"New Description"},
		"film-new-country":     {"United Kingdom"},
		"film-new-year":        {"1995"},
		"film-new-rating":      {"9.0"},
		"film-new-status":      {"continues"},
		"film-new-genre":       {"Comedy"},
	}
	resp := do(t, app, http.MethodPost, "/films/update/"+film.ID.String(), form)
	require.Equal(t, http.StatusFound, resp.StatusCode)

	updated, err := svc.FindFilm(context.Background(), film.ID)
	require.NoError(t, err)
	assert.Equal(t, "New Title", updated.Title)
	assert.Equal(t, 1995, updated.Year)

	resp = do(t, app, http.MethodPost, "/films/update/"+uuid.NewString(), form)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteFilm(t *testing.T) {
	app, svc := setup(t)
	film := createFilm(t, svc, "Test Film")

	resp := do(t, app, http.MethodPost, "/films/delete/"+film.ID.String(), nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/films/", resp.Header.Get("Location"))

	_, err := svc.FindFilm(context.Background(), film.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestFilmNotFound(t *testing.T) {
	app, _ := setup(t)

	id := uuid.NewString()
	resp := do(t, app, http.MethodGet, "/films/film/"+id+"/", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, `Film with id "`+id+`" not found!`, errorMessage(t, resp))

	resp = do(t, app, http.MethodGet, "/films/film/not-a-uuid/", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestFilmActorLinks(t *testing.T) {
	app, svc := setup(t)
	film := createFilm(t, svc, "Heat")
	actor := createActor(t, svc, "Alice Brown")

	resp := do(t, app, http.MethodGet, "/films/add_actor/"+film.ID.String(), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	form := url.Values{"film-actor": {actor.ID.String()}}
	resp = do(t, app, http.MethodPost, "/films/add_actor/"+film.ID.String(), form)
	require.Equal(t, http.StatusFound, resp.StatusCode)

	resp = do(t, app, http.MethodPost, "/films/add_actor/"+film.ID.String(), form)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "Actor is already matched with this film", errorMessage(t, resp))

	resp = do(t, app, http.MethodPost, "/films/add_actor/"+film.ID.String(), url.Values{"film-actor": {uuid.NewString()}})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, app, http.MethodGet, "/films/film/"+film.ID.String()+"/", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var detail model.FilmDetail
	decode(t, resp, &detail)
	require.Len(t, detail.Actors, 1)
	assert.Equal(t, "Alice Brown", detail.Actors[0].FullName)

	resp = do(t, app, http.MethodPost, "/films/delete_actor/"+film.ID.String()+"/"+actor.ID.String(), nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/films/film/"+film.ID.String()+"/", resp.Header.Get("Location"))

	got, err := svc.GetFilm(context.Background(), film.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Actors)
}

func TestGetActors(t *testing.T) {
	app, _ := setup(t)
	resp := do(t, app, http.MethodGet, "/actors/", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAddActor(t *testing.T) {
	app, svc := setup(t)
	today := time.Now().Format(time.DateOnly)

	form := url.Values{
		"actor-full-name":  {"John Doe"},
		"actor-birth-date": {today},
		"actor-sex":        {"Male"},
		"actor-country":    {"United States"},
		"actor-death":      {today},
	}
	resp := do(t, app, http.MethodPost, "/actors/add/", form)
	require.Equal(t, http.StatusFound, resp.StatusCode)

	actors, err := svc.ListActors(context.Background())
	require.NoError(t, err)
	require.Len(t, actors, 1)
	assert.Equal(t, "John Doe", actors[0].FullName)

	form.Set("actor-birth-date", "10.03.1985")
	resp = do(t, app, http.MethodPost, "/actors/add/", form)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Birth date must be in YYYY-MM-DD format.", errorMessage(t, resp))
}

func TestUpdateActor(t *testing.T) {
	app, svc := setup(t)
	actor := createActor(t, svc, "Jane Smith")

	form := url.Values{
		"actor-new-full-name":  {"Jane Johnson"},
		"actor-new-birth-date": {"1992-07-15"},
		"actor-new-sex":        {"Female"},
		"actor-new-country":    {"United Kingdom"},
		"actor-new-death":      {time.Now().Format(time.DateOnly)},
	}
	resp := do(t, app, http.MethodPost, "/actors/update/"+actor.ID.String(), form)
	require.Equal(t, http.StatusFound, resp.StatusCode)

	resp = do(t, app, http.MethodGet, "/actors/actor/"+actor.ID.String()+"/", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var detail struct {
		FullName  string `json:"full_name"`
		Country   string `json:"country"`
		BirthDate string `json:"birth_date"`
	}
	decode(t, resp, &detail)
	assert.Equal(t, "Jane Johnson", detail.FullName)
	assert.Equal(t, "United Kingdom", detail.Country)
	assert.Equal(t, "1992-07-15", detail.BirthDate)
}

func TestDeleteActor(t *testing.T) {
	app, svc := setup(t)
	actor := createActor(t, svc, "Alice Brown")

	resp := do(t, app, http.MethodPost, "/actors/delete/"+actor.ID.String(), nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/actors/", resp.Header.Get("Location"))

	actors, err := svc.ListActors(context.Background())
	require.NoError(t, err)
	assert.Empty(t, actors)

	resp = do(t, app, http.MethodPost, "/actors/delete/"+actor.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestActorFilmLinks(t *testing.T) {
	app, svc := setup(t)
	film := createFilm(t, svc, "Heat")
	actor := createActor(t, svc, "Alice Brown")

	form := url.Values{"actor-film": {film.ID.String()}}
	resp := do(t, app, http.MethodPost, "/actors/add_film/"+actor.ID.String(), form)
	require.Equal(t, http.StatusFound, resp.StatusCode)

	resp = do(t, app, http.MethodPost, "/actors/add_film/"+actor.ID.String(), form)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "Film is already matched with this actor", errorMessage(t, resp))

	resp = do(t, app, http.MethodGet, "/actors/actor/"+actor.ID.String()+"/", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var detail model.ActorDetail
	decode(t, resp, &detail)
	assert.Equal(t, 1, detail.FilmsCount)

	resp = do(t, app, http.MethodPost, "/actors/delete_film/"+actor.ID.String()+"/"+film.ID.String(), nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)

	got, err := svc.GetActor(context.Background(), actor.ID)
	require.NoError(t, err)
	assert.Zero(t, got.FilmsCount)
}

// retainingHandler keeps records and reads their attributes only when asked,
// the way asynchronous log sinks do.
type retainingHandler struct {
	mu      *sync.Mutex
	records *[]slog.Record
}

func newRetainingHandler() retainingHandler {
	return retainingHandler{mu: &sync.Mutex{}, records: &[]slog.Record{}}
}

func (h retainingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h retainingHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	*h.records = append(*h.records, r.Clone())
	return nil
}

func (h retainingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h retainingHandler) WithGroup(string) slog.Handler      { return h }

func (h retainingHandler) values(msg, key string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for _, r := range *h.records {
		if r.Message != msg {
			continue
		}
		r.Attrs(func(a slog.Attr) bool {
			if a.Key == key {
				out = append(out, a.Value.String())
			}
			return true
		})
	}
	return out
}

func TestRequestLogOutlivesRequest(t *testing.T) {
	repo := repository.NewPostgresRepository(testutil.NewDB(t), testutil.Logger())
	svc := service.NewCatalogService(repo, nil, testutil.Logger())
	h := newRetainingHandler()
	app := NewApp(svc, slog.New(h))

	var want []string
	for _, digit := range []string{"1", "2", "3", "4"} {
		id := strings.Repeat(digit, 8) + "-" + strings.Repeat(digit, 4) + "-" + strings.Repeat(digit, 4) +
			"-" + strings.Repeat(digit, 4) + "-" + strings.Repeat(digit, 12)
		path := "/films/film/" + id
		want = append(want, path)
		resp := do(t, app, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	}

	assert.Equal(t, want, h.values("http request", "path"))
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestHealthCheck(t *testing.T) {
	hs := health.NewServer()
	ctx := context.Background()

	require.NoError(t, HealthCheck(stubPinger{}, hs, "moviedb", testutil.Logger())(ctx))
	resp, err := hs.Check(ctx, &healthpb.HealthCheckRequest{Service: "moviedb"})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())

	require.Error(t, HealthCheck(stubPinger{err: errors.New("down")}, hs, "moviedb", testutil.Logger())(ctx))
	resp, err = hs.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.GetStatus())
}
