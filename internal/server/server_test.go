package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestServer builds a full server against an in-memory database and a
// temp upload directory, with the admin account provisioned.
func newTestServer(t *testing.T) *Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	srv, err := New(Config{
		DBPath:         ":memory:",
		UploadDir:      t.TempDir(),
		JWTSecret:      "integration-test-signing-secret",
		AdminUsername:  "root",
		AdminPassword:  "toor-secret",
		EnforceEndTime: true,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })
	return srv
}

// doJSON sends a JSON request through the router and decodes the response
// body into a generic map.
func doJSON(t *testing.T, srv *Server, method, path string, body any, token string) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	// Unrouted paths get chi's plain-text 404/405, not JSON.
	result := map[string]any{}
	if rec.Body.Len() > 0 && strings.Contains(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result),
			"response body: %s", rec.Body.String())
	}
	return rec.Code, result
}

// createLot posts a multipart lot-creation form with the given number of
// small image files attached and returns the new lot's id.
func createLot(t *testing.T, srv *Server, imageCount int) int64 {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fields := map[string]string{
		"title":        "Vintage typewriter",
		"description":  "Working, 1947.",
		"startPrice":   "1000",
		"reservePrice": "2000",
		"endTime":      time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339),
		"owner":        "ann",
	}
	for key, value := range fields {
		require.NoError(t, w.WriteField(key, value))
	}
	for i := 0; i < imageCount; i++ {
		part, err := w.CreateFormFile("images", fmt.Sprintf("photo-%d.jpg", i))
		require.NoError(t, err)
		_, err = part.Write([]byte("fake image bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/api/lots", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())

	var resp struct {
		Success bool  `json:"success"`
		LotID   int64 `json:"lotId"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.NotZero(t, resp.LotID)
	return resp.LotID
}

func adminToken(t *testing.T, srv *Server) string {
	t.Helper()
	status, body := doJSON(t, srv, "POST", "/api/admin/login",
		map[string]string{"username": "root", "password": "toor-secret"}, "")
	require.Equal(t, http.StatusOK, status)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	status, body := doJSON(t, srv, "GET", "/health", nil, "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "OK", body["status"])
}

func TestRegisterAndLogin(t *testing.T) {
	srv := newTestServer(t)

	status, body := doJSON(t, srv, "POST", "/api/register",
		map[string]string{"username": "ann", "password": "password1"}, "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])

	// Duplicate registration is a 400, not a 409.
	status, body = doJSON(t, srv, "POST", "/api/register",
		map[string]string{"username": "ann", "password": "other"}, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "conflict", body["error"])

	status, body = doJSON(t, srv, "POST", "/api/login",
		map[string]string{"username": "ann", "password": "password1"}, "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ann", body["username"])

	status, body = doJSON(t, srv, "POST", "/api/login",
		map[string]string{"username": "ann", "password": "wrong"}, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_credentials", body["error"])
}

func TestLotLifecycle(t *testing.T) {
	srv := newTestServer(t)
	lotID := createLot(t, srv, 2)
	path := fmt.Sprintf("/api/lots/%d", lotID)

	status, body := doJSON(t, srv, "GET", path, nil, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Vintage typewriter", body["title"])
	assert.EqualValues(t, 1000, body["currentBid"])

	images, ok := body["images"].([]any)
	require.True(t, ok)
	require.Len(t, images, 2)

	// Stored images are served back under /uploads/.
	imagePath, _ := images[0].(string)
	require.True(t, strings.HasPrefix(imagePath, "/uploads/"), "image path %q", imagePath)

	req := httptest.NewRequest("GET", imagePath, nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "fake image bytes", rec.Body.String())
}

func TestLotList(t *testing.T) {
	srv := newTestServer(t)
	createLot(t, srv, 0)
	createLot(t, srv, 0)

	req := httptest.NewRequest("GET", "/api/lots", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var lots []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &lots))
	assert.Len(t, lots, 2)

	// A malformed paging parameter is refused, not silently ignored.
	status, body := doJSON(t, srv, "GET", "/api/lots?limit=abc", nil, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation_error", body["error"])
}

func TestGetLot_NotFound(t *testing.T) {
	srv := newTestServer(t)

	status, body := doJSON(t, srv, "GET", "/api/lots/999", nil, "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", body["error"])
}

func TestBidding(t *testing.T) {
	srv := newTestServer(t)
	lotID := createLot(t, srv, 0)

	// At the current bid: rejected.
	status, body := doJSON(t, srv, "POST", "/api/bids",
		map[string]any{"lotId": lotID, "username": "bob", "amount": 1000}, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "bid_rejected", body["error"])

	// Above it: accepted.
	status, body = doJSON(t, srv, "POST", "/api/bids",
		map[string]any{"lotId": lotID, "username": "bob", "amount": 1500}, "")
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1500, body["currentBid"])

	// Unknown lot.
	status, body = doJSON(t, srv, "POST", "/api/bids",
		map[string]any{"lotId": 999, "username": "bob", "amount": 1500}, "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", body["error"])

	// History, highest first.
	req := httptest.NewRequest("GET", fmt.Sprintf("/api/lots/%d/bids", lotID), nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var bids []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bids))
	require.Len(t, bids, 1)
	assert.EqualValues(t, 1500, bids[0]["amount"])
}

func TestAdminDelete(t *testing.T) {
	srv := newTestServer(t)
	lotID := createLot(t, srv, 1)
	path := fmt.Sprintf("/api/lots/%d", lotID)

	// No token: refused before the handler runs.
	status, body := doJSON(t, srv, "DELETE", path, nil, "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "unauthorized", body["error"])

	// Garbage token: same.
	status, _ = doJSON(t, srv, "DELETE", path, nil, "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, status)

	token := adminToken(t, srv)
	status, body = doJSON(t, srv, "DELETE", path, nil, token)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])

	status, _ = doJSON(t, srv, "GET", path, nil, "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAdminLogin_BadCredentials(t *testing.T) {
	srv := newTestServer(t)

	status, body := doJSON(t, srv, "POST", "/api/admin/login",
		map[string]string{"username": "root", "password": "wrong"}, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_credentials", body["error"])

	// A regular user can't log in as admin either.
	doJSON(t, srv, "POST", "/api/register",
		map[string]string{"username": "ann", "password": "password1"}, "")
	status, _ = doJSON(t, srv, "POST", "/api/admin/login",
		map[string]string{"username": "ann", "password": "password1"}, "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestAdminSetPaid(t *testing.T) {
	srv := newTestServer(t)
	doJSON(t, srv, "POST", "/api/register",
		map[string]string{"username": "ann", "password": "password1"}, "")
	token := adminToken(t, srv)

	status, body := doJSON(t, srv, "PUT", "/api/admin/users/ann/paid",
		map[string]bool{"paid": true}, token)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])

	status, _ = doJSON(t, srv, "PUT", "/api/admin/users/ghost/paid",
		map[string]bool{"paid": true}, token)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestUploadBanner(t *testing.T) {
	srv := newTestServer(t)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "banner.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("banner bytes"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/api/upload-banner", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())

	var resp struct {
		URL string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, strings.HasPrefix(resp.URL, "/uploads/"))
	assert.True(t, strings.HasSuffix(resp.URL, ".png"))

	// And the file is actually served.
	getReq := httptest.NewRequest("GET", resp.URL, nil)
	getRec := httptest.NewRecorder()
	srv.Router().ServeHTTP(getRec, getReq)
	assert.Equal(t, http.StatusOK, getRec.Code)
	assert.Equal(t, "banner bytes", getRec.Body.String())
}

func TestUploadBanner_NoFile(t *testing.T) {
	srv := newTestServer(t)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/api/upload-banner", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// Without a JWT secret the admin surface does not exist: login is
// unrouted and the delete route was never registered.
func TestAdminDisabled(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	srv, err := New(Config{
		DBPath:    ":memory:",
		UploadDir: t.TempDir(),
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })

	status, _ := doJSON(t, srv, "POST", "/api/admin/login",
		map[string]string{"username": "root", "password": "x"}, "")
	assert.Equal(t, http.StatusNotFound, status)

	lotID := createLot(t, srv, 0)
	status, _ = doJSON(t, srv, "DELETE", fmt.Sprintf("/api/lots/%d", lotID), nil, "")
	assert.Equal(t, http.StatusMethodNotAllowed, status)
}

// Database files and uploads land where configured, not in the working
// directory.
func TestFileDatabase(t *testing.T) {
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	srv, err := New(Config{
		DBPath:    filepath.Join(dir, "auction.db"),
		UploadDir: filepath.Join(dir, "uploads"),
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })

	createLot(t, srv, 0)

	_, err = os.Stat(filepath.Join(dir, "auction.db"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "uploads"))
	assert.NoError(t, err)
}
