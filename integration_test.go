package main

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"day-planner/backend/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "integration-secret"

// setupApplication builds the app on in-memory sqlite, backed by mr when it is
// not nil.
func setupApplication(t *testing.T, mr *miniredis.Miniredis) *application {
	t.Helper()
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_SQLITE_PATH", ":memory:")
	t.Setenv("JWT_SECRET", testJWTSecret)
	t.Setenv("JWT_ISSUER", "accounts")
	t.Setenv("RATE_LIMIT_ENABLED", "false")
	t.Setenv("REDIS_ENABLED", "false")

	if mr != nil {
		host, port, err := net.SplitHostPort(mr.Addr())
		require.NoError(t, err)
		t.Setenv("REDIS_ENABLED", "true")
		t.Setenv("REDIS_HOST", host)
		t.Setenv("REDIS_PORT", port)
	}

	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	app, err := newApplication(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(app.close)
	return app
}

func bearer(t *testing.T, ownerID uuid.UUID) string {
	t.Helper()
	claims := jwt.MapClaims{
		"user_id": ownerID.String(),
		"tz":      "UTC",
		"iss":     "accounts",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return "Bearer " + token
}

func call(t *testing.T, app *application, method, path, auth string, form url.Values) (int, map[string]interface{}) {
	t.Helper()
	var body *strings.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	req, _ := http.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	app.router.ServeHTTP(w, req)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body: %s", w.Body.String())
	return w.Code, out
}

func exerciseScheduleAPI(t *testing.T, app *application) {
	auth := bearer(t, uuid.Must(uuid.NewV4()))

	code, body := call(t, app, "POST", "/api/create-task", auth, url.Values{
		"start_time": {"07:00"}, "end_time": {"07:45"}, "task_desc": {"Breakfast"},
	})
	require.Equal(t, http.StatusOK, code, "body: %v", body)
	taskID := body["taskId"].(string)

	code, body = call(t, app, "POST", "/api/create-task", auth, url.Values{
		"start_time": {"07:30"}, "end_time": {"08:00"}, "task_desc": {"Commute"},
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body, "FORM_ERRORS")

	code, _ = call(t, app, "POST", "/api/update-task-status", auth, url.Values{"task_id": {taskID}})
	assert.Equal(t, http.StatusOK, code)

	code, body = call(t, app, "GET", "/api/tasks", auth, nil)
	require.Equal(t, http.StatusOK, code)
	tasks := body["TASKS"].([]interface{})
	require.Len(t, tasks, 1)
	task := tasks[0].(map[string]interface{})
	assert.Equal(t, "07:00", task["startTime"])
	assert.Equal(t, true, task["completed"])

	// Another owner sees an empty day.
	code, body = call(t, app, "GET", "/api/tasks", bearer(t, uuid.Must(uuid.NewV4())), nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, body["TASKS"])
}

func TestApplication_ScheduleFlow(t *testing.T) {
	app := setupApplication(t, nil)
	exerciseScheduleAPI(t, app)
}

func TestApplication_ScheduleFlowWithRedis(t *testing.T) {
	app := setupApplication(t, miniredis.RunT(t))
	exerciseScheduleAPI(t, app)

	code, body := call(t, app, "GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, code, "body: %v", body)

	var names []string
	for _, check := range body["checks"].([]interface{}) {
		names = append(names, check.(map[string]interface{})["name"].(string))
	}
	assert.Equal(t, []string{"cache", "database"}, names)
}

func TestApplication_NotReadyWhenCacheDown(t *testing.T) {
	mr := miniredis.RunT(t)
	app := setupApplication(t, mr)
	mr.Close()

	code, body := call(t, app, "GET", "/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "not ready", body["status"])
}

func TestApplication_RequiresToken(t *testing.T) {
	app := setupApplication(t, nil)

	code, body := call(t, app, "GET", "/api/tasks", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "missing_token", body["error"])
}

func TestApplication_Probes(t *testing.T) {
	app := setupApplication(t, nil)

	for _, path := range []string{"/health", "/ready", "/live", "/metrics"} {
		code, _ := call(t, app, "GET", path, "", nil)
		assert.Equal(t, http.StatusOK, code, path)
	}
}
