package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"TuneBox/config"
	"TuneBox/core/audio"
	"TuneBox/core/auth"
	"TuneBox/core/catalog"
	"TuneBox/core/playlist"
	"TuneBox/internal/testutil"
	"TuneBox/model"
	"TuneBox/repository"
	"TuneBox/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	srv     *httptest.Server
	handler http.Handler
	auth    *auth.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := &config.Config{
		MaxUploadBytes: 1 << 20,
		UploadTimeout:  time.Minute,
		CORSOrigins:    []string{"http://localhost:3434"},
	}

	gdb := testutil.OpenDB(t)
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	songRepo := repository.NewGormSongRepository(gdb)
	authService := auth.NewService(
		repository.NewGormUserRepository(gdb),
		auth.NewHasher(1000),
		auth.NewTokenIssuer("0123456789abcdef0123456789abcdef", "TuneBox", "TuneBoxClient", time.Hour),
		nil,
	)
	catalogService := catalog.NewService(repository.NewGormGenreRepository(gdb), songRepo, store, audio.NewMP3Prober())
	playlistService := playlist.NewService(repository.NewGormPlaylistRepository(gdb), songRepo)

	handler := NewRouter(NewAPIHandler(cfg, authService, catalogService, playlistService, store))
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, handler: handler, auth: authService}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body io.Reader, contentType string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.srv.URL+path, body)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (e *testEnv) doJSON(t *testing.T, method, path, token string, body interface{}) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	return e.do(t, method, path, token, r, "application/json")
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func (e *testEnv) register(t *testing.T, name string) model.AuthResponse {
	t.Helper()
	resp := e.doJSON(t, http.MethodPost, "/api/Users/Register", "", RegisterRequest{
		Name: name, Email: name + "@example.com", Password: "password1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out model.AuthResponse
	decode(t, resp, &out)
	return out
}

// adminToken registers a user, promotes it and signs in again for a token carrying the role.
func (e *testEnv) adminToken(t *testing.T) string {
	t.Helper()
	e.register(t, "admin")
	_, err := e.auth.PromoteToAdmin(context.Background(), "admin")
	require.NoError(t, err)
	resp := e.doJSON(t, http.MethodPost, "/api/Users/SignIn", "", SignInRequest{Name: "admin", Password: "password1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out model.AuthResponse
	decode(t, resp, &out)
	return out.Token
}

func (e *testEnv) upload(t *testing.T, token, name string, genres ...string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("name", name))
	require.NoError(t, mw.WriteField("author", "Test Band"))
	for _, g := range genres {
		require.NoError(t, mw.WriteField("genres", g))
	}
	fw, err := mw.CreateFormFile("mp3File", name+".mp3")
	require.NoError(t, err)
	_, err = fw.Write(testutil.MP3Frames(40))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	return e.do(t, http.MethodPost, "/api/Music/songs", token, &buf, mw.FormDataContentType())
}

func TestPlaylistEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	admin := env.adminToken(t)

	resp := env.upload(t, admin, "Song One", "Rock", "Pop")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var song model.SongView
	decode(t, resp, &song)
	assert.Equal(t, []string{"Rock", "Pop"}, song.Genres)
	assert.True(t, strings.HasPrefix(song.AudioURL, env.srv.URL+"/audio/mp3/"))

	registered := env.register(t, "alice")
	resp = env.doJSON(t, http.MethodPost, "/api/Users/SignIn", "", SignInRequest{Name: "alice", Password: "password1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var signedIn model.AuthResponse
	decode(t, resp, &signedIn)
	assert.Equal(t, registered.UserID, signedIn.UserID)
	token := signedIn.Token

	resp = env.doJSON(t, http.MethodPost, "/api/Playlists", token, PlaylistRequest{Name: "Faves"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var created model.CreatePlaylistResult
	decode(t, resp, &created)
	assert.Equal(t, signedIn.UserID, created.OwnerID)
	id := created.Playlist.ID

	songPath := "/api/Playlists/" + itoa(id) + "/songs/" + itoa(song.ID)
	resp = env.doJSON(t, http.MethodPost, songPath, token, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.doJSON(t, http.MethodGet, "/api/Playlists/"+itoa(id), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view model.PlaylistView
	decode(t, resp, &view)
	require.Len(t, view.Songs, 1)
	assert.Equal(t, song.ID, view.Songs[0].ID)

	resp = env.doJSON(t, http.MethodDelete, songPath, token, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.doJSON(t, http.MethodGet, "/api/Playlists/"+itoa(id), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &view)
	assert.Empty(t, view.Songs)

	resp = env.doJSON(t, http.MethodGet, "/api/Playlists/users/"+signedIn.UserID+"/playlists", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var lists []model.PlaylistView
	decode(t, resp, &lists)
	require.Len(t, lists, 1)
	assert.Equal(t, "Faves", lists[0].Name)
}

func TestOwnerChecks(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")

	resp := env.doJSON(t, http.MethodPost, "/api/Playlists", alice.Token, PlaylistRequest{Name: "Faves"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var created model.CreatePlaylistResult
	decode(t, resp, &created)
	path := "/api/Playlists/" + itoa(created.Playlist.ID)

	resp = env.doJSON(t, http.MethodPut, path, bob.Token, PlaylistRequest{Name: "Stolen"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp = env.doJSON(t, http.MethodDelete, path, bob.Token, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.doJSON(t, http.MethodPut, path, alice.Token, PlaylistRequest{Name: "Best"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view model.PlaylistView
	decode(t, resp, &view)
	assert.Equal(t, "Best", view.Name)

	resp = env.doJSON(t, http.MethodDelete, path, alice.Token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = env.doJSON(t, http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAuthErrors(t *testing.T) {
	env := newTestEnv(t)
	user := env.register(t, "carol")

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   interface{}
		want   int
	}{
		{"no token", http.MethodPost, "/api/Playlists", "", PlaylistRequest{Name: "x"}, http.StatusUnauthorized},
		{"bad token", http.MethodPost, "/api/Playlists", "garbage", PlaylistRequest{Name: "x"}, http.StatusUnauthorized},
		{"not admin", http.MethodDelete, "/api/Music/songs/1", user.Token, nil, http.StatusForbidden},
		{"wrong password", http.MethodPost, "/api/Users/SignIn", "", SignInRequest{Name: "carol", Password: "Password1"}, http.StatusUnauthorized},
		{"unknown user", http.MethodPost, "/api/Users/SignIn", "", SignInRequest{Name: "nobody", Password: "password1"}, http.StatusNotFound},
		{"duplicate", http.MethodPost, "/api/Users/Register", "", RegisterRequest{Name: "carol", Email: "c2@example.com", Password: "password1"}, http.StatusConflict},
		{"short password", http.MethodPost, "/api/Users/Register", "", RegisterRequest{Name: "dan", Email: "dan@example.com", Password: "short"}, http.StatusBadRequest},
		{"non numeric id", http.MethodGet, "/api/Music/songs/abc", "", nil, http.StatusBadRequest},
		{"missing song", http.MethodGet, "/api/Music/songs/42", "", nil, http.StatusNotFound},
		{"missing playlist", http.MethodGet, "/api/Playlists/42", "", nil, http.StatusNotFound},
		{"bad skip", http.MethodGet, "/api/Music/songs?skip=x", "", nil, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.doJSON(t, tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestCatalogRoutes(t *testing.T) {
	env := newTestEnv(t)
	admin := env.adminToken(t)

	for _, name := range []string{"Alpha", "Beta", "Gamma", "Delta"} {
		resp := env.upload(t, admin, name, "Rock,Jazz")
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	var page1, page2 []model.SongView
	decode(t, env.doJSON(t, http.MethodGet, "/api/Music/songs?skip=0&count=2", "", nil), &page1)
	decode(t, env.doJSON(t, http.MethodGet, "/api/Music/songs?skip=2&count=2", "", nil), &page2)
	require.Len(t, page1, 2)
	require.Len(t, page2, 2)
	assert.NotEqual(t, page1[1].ID, page2[0].ID)

	var found []model.SongView
	decode(t, env.doJSON(t, http.MethodGet, "/api/Music/songs/search?searchTerm=GAM", "", nil), &found)
	require.Len(t, found, 1)
	assert.Equal(t, "Gamma", found[0].Name)
	assert.Equal(t, []string{"Rock", "Jazz"}, found[0].Genres)

	var genres []model.Genre
	decode(t, env.doJSON(t, http.MethodGet, "/api/Music/genres", "", nil), &genres)
	assert.Len(t, genres, 2)

	var none []model.SongView
	resp := env.doJSON(t, http.MethodGet, "/api/Music/genres/Nonexistent/songs", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &none)
	assert.Empty(t, none)

	// 音频文件可以通过返回的 URL 取回
	audioResp, err := http.Get(found[0].AudioURL)
	require.NoError(t, err)
	defer audioResp.Body.Close()
	assert.Equal(t, http.StatusOK, audioResp.StatusCode)
	assert.Equal(t, "audio/mpeg", audioResp.Header.Get("Content-Type"))
	data, err := io.ReadAll(audioResp.Body)
	require.NoError(t, err)
	assert.Equal(t, testutil.MP3Frames(40), data)

	resp = env.doJSON(t, http.MethodDelete, "/api/Music/genres/Jazz", admin, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = env.doJSON(t, http.MethodDelete, "/api/Music/genres/Jazz", admin, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.doJSON(t, http.MethodDelete, "/api/Music/songs/"+itoa(found[0].ID), admin, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = env.doJSON(t, http.MethodDelete, "/api/Music/songs/"+itoa(found[0].ID), admin, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	gone, err := http.Get(found[0].AudioURL)
	require.NoError(t, err)
	defer gone.Body.Close()
	assert.Equal(t, http.StatusNotFound, gone.StatusCode)
}

func TestUploadRejectsNonAudio(t *testing.T) {
	env := newTestEnv(t)
	admin := env.adminToken(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("name", "Fake"))
	require.NoError(t, mw.WriteField("author", "Nobody"))
	fw, err := mw.CreateFormFile("mp3File", "fake.mp3")
	require.NoError(t, err)
	_, err = fw.Write([]byte("plain text pretending to be audio"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp := env.do(t, http.MethodPost, "/api/Music/songs", admin, &buf, mw.FormDataContentType())
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var songs []model.SongView
	decode(t, env.doJSON(t, http.MethodGet, "/api/Music/songs", "", nil), &songs)
	assert.Empty(t, songs)
}

func TestUploadTooLarge(t *testing.T) {
	env := newTestEnv(t)
	admin := env.adminToken(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("name", "Huge"))
	require.NoError(t, mw.WriteField("author", "Band"))
	fw, err := mw.CreateFormFile("mp3File", "huge.mp3")
	require.NoError(t, err)
	_, err = fw.Write(bytes.Repeat(testutil.MP3Frames(1), (2<<20)/testutil.MP3FrameSize))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	// 直接调用 handler，避免服务端提前关闭连接时客户端写请求体失败
	req := httptest.NewRequest(http.MethodPost, "/api/Music/songs", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+admin)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), "upload exceeds")

	var songs []model.SongView
	decode(t, env.doJSON(t, http.MethodGet, "/api/Music/songs", "", nil), &songs)
	assert.Empty(t, songs)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/Users/SignIn", nil)
	req.RemoteAddr = "192.0.2.7:51234"
	req.Header.Set("X-Forwarded-For", "203.0.113.1")
	assert.Equal(t, "192.0.2.7", clientIP(req))

	req.RemoteAddr = "[2001:db8::1]:443"
	assert.Equal(t, "2001:db8::1", clientIP(req))

	req.RemoteAddr = "pipe"
	assert.Equal(t, "pipe", clientIP(req))
}

func TestHealthAndCORS(t *testing.T) {
	env := newTestEnv(t)

	resp := env.doJSON(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	decode(t, resp, &body)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	req, err := http.NewRequest(http.MethodOptions, env.srv.URL+"/api/Playlists", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3434")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	preflight, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer preflight.Body.Close()
	assert.Equal(t, "http://localhost:3434", preflight.Header.Get("Access-Control-Allow-Origin"))
}

func TestRecoveryMiddleware(t *testing.T) {
	h := recoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestBaseURL(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "http://music.local/api/Music/songs", nil)
	assert.Equal(t, "http://music.local", baseURL(r))

	r.Header.Set("X-Forwarded-Proto", "https")
	assert.Equal(t, "https://music.local", baseURL(r))
}
