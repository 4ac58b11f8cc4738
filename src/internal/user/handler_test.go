package user

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"konung-miniapp-svc/src/internal/config"
	"konung-miniapp-svc/src/internal/storage"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDirectory records the requests it receives and serves canned data.
type fakeDirectory struct {
	lastListReq *ListUsersRequest
	users       []*User
	total       int64
	stats       *Stats
	statsCalls  int
}

func (f *fakeDirectory) Upsert(context.Context, *User) error { return nil }

func (f *fakeDirectory) ListUsers(_ context.Context, req *ListUsersRequest) ([]*User, int64, error) {
	f.lastListReq = req
	return f.users, f.total, nil
}

func (f *fakeDirectory) GetUserStats(context.Context) (*Stats, error) {
	f.statsCalls++
	return f.stats, nil
}

type handlerFixture struct {
	directory *fakeDirectory
	router    *gin.Engine
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		server.Close()
	})

	cfg := &config.Configuration{
		App:    config.Application{Timeout: 5},
		Search: config.SearchConfig{MinQueryLimit: 20, MaxQueryLimit: 100},
		Cache:  config.CacheConfig{UserStatKey: "stats:users", UserStatExpirationMinutes: 10},
	}

	directory := &fakeDirectory{
		users: []*User{{ID: 42, Name: "Иван", Age: 30, Username: "ivan", RegisteredAt: time.Now()}},
		total: 1,
		stats: &Stats{Total: 5, NewThisMonth: 2, WithUsername: 3},
	}

	handler := NewHandler(cfg, NewUserService(directory, cfg), storage.NewRedisStore(client))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/users", handler.ListUsers)
	router.GET("/users/stats", handler.GetUserStats)

	return &handlerFixture{directory: directory, router: router}
}

func (f *handlerFixture) get(path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	f.router.ServeHTTP(w, req)
	return w
}

func TestListUsersEndpoint(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.get("/users?page=2&limit=50&search=ivan")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Success bool `json:"success"`
		Data    struct {
			Users      []*User `json:"users"`
			TotalCount int64   `json:"totalCount"`
			Page       int     `json:"page"`
			Limit      int     `json:"limit"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	require.Len(t, body.Data.Users, 1)
	assert.Equal(t, "Иван", body.Data.Users[0].Name)
	assert.Equal(t, int64(1), body.Data.TotalCount)

	require.NotNil(t, f.directory.lastListReq)
	assert.Equal(t, 2, f.directory.lastListReq.Page)
	assert.Equal(t, 50, f.directory.lastListReq.Limit)
	assert.Equal(t, "ivan", f.directory.lastListReq.Search)
}

func TestListUsersClampsPaging(t *testing.T) {
	f := newHandlerFixture(t)

	// Limits above the maximum are capped.
	require.Equal(t, http.StatusOK, f.get("/users?limit=500").Code)
	assert.Equal(t, 100, f.directory.lastListReq.Limit)

	// Non-positive limit and page fall back to the minimums.
	require.Equal(t, http.StatusOK, f.get("/users?page=-1&limit=-5").Code)
	assert.Equal(t, 1, f.directory.lastListReq.Page)
	assert.Equal(t, 20, f.directory.lastListReq.Limit)

	// Unparseable values use the handler defaults.
	require.Equal(t, http.StatusOK, f.get("/users?page=abc&limit=xyz").Code)
	assert.Equal(t, 1, f.directory.lastListReq.Page)
	assert.Equal(t, 20, f.directory.lastListReq.Limit)
}

func TestGetUserStatsCaches(t *testing.T) {
	f := newHandlerFixture(t)

	w := f.get("/users/stats")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, f.directory.statsCalls)

	var body struct {
		Success bool   `json:"success"`
		Data    *Stats `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, int64(5), body.Data.Total)
	assert.Equal(t, int64(2), body.Data.NewThisMonth)

	// Second request is served from the cache without hitting the directory.
	w = f.get("/users/stats")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, f.directory.statsCalls)

	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, int64(5), body.Data.Total)
}
