package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/growthpath/growthpath-be/internal/auth"
	"github.com/growthpath/growthpath-be/internal/repository"
	"github.com/growthpath/growthpath-be/internal/services"
	"github.com/growthpath/growthpath-be/internal/websocket"
)

type testServer struct {
	*httptest.Server
	store *repository.MemoryStore
}

func newTestServer(t *testing.T, loginRate int) *testServer {
	t.Helper()
	store := repository.NewMemoryStore()

	hub := websocket.NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)

	events := services.NewEventService(store.Events(), hub)
	children := services.NewChildService(store.Users(), store.Children(), store.Paths(), events)
	users := services.NewUserService(store.Users(), children, auth.NewHasher(4), events)
	paths := services.NewPathService(store.Paths())
	if _, err := paths.SeedPaths(context.Background(), services.DefaultCatalog()); err != nil {
		t.Fatalf("SeedPaths() error = %v", err)
	}

	tokens, err := auth.NewTokenService("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService() error = %v", err)
	}

	router := NewRouter(Dependencies{
		Users:       users,
		Children:    children,
		Paths:       paths,
		Events:      events,
		Sessions:    tokens,
		Hub:         hub,
		CORSOrigins: []string{"http://localhost:3000"},
		LoginRate:   loginRate,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, store: store}
}

// client is a browser-like HTTP client with its own cookie jar.
type client struct {
	t    *testing.T
	base string
	http *http.Client
}

func (s *testServer) newClient(t *testing.T) *client {
	jar, _ := cookiejar.New(nil)
	return &client{t: t, base: s.URL, http: &http.Client{Jar: jar}}
}

func (c *client) do(method, path string, body interface{}) (int, map[string]interface{}) {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			c.t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, c.base+path, &buf)
	if err != nil {
		c.t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var out map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func (c *client) registerAndLogin(email string) map[string]interface{} {
	c.t.Helper()
	if code, body := c.do(http.MethodPost, "/api/v1/auth/register", map[string]string{"name": "Ann", "email": email, "password": "secret1"}); code != http.StatusCreated {
		c.t.Fatalf("register %s: %d %v", email, code, body)
	}
	code, body := c.do(http.MethodPost, "/api/v1/auth/login", map[string]string{"email": email, "password": "secret1"})
	if code != http.StatusOK {
		c.t.Fatalf("login %s: %d %v", email, code, body)
	}
	return body["user"].(map[string]interface{})
}

func TestExampleScenario(t *testing.T) {
	srv := newTestServer(t, 10)
	c := srv.newClient(t)

	code, body := c.do(http.MethodPost, "/api/v1/auth/register", map[string]string{"name": "Ann", "email": "Ann@x.com", "password": "secret1"})
	if code != http.StatusCreated || body["status"] != "success" || body["userId"] == "" {
		t.Fatalf("register: %d %v", code, body)
	}

	code, body = c.do(http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "ann@x.com", "password": "secret1"})
	if code != http.StatusOK {
		t.Fatalf("login: %d %v", code, body)
	}
	user := body["user"].(map[string]interface{})
	if user["email"] != "ann@x.com" {
		t.Errorf("session email = %v, want ann@x.com", user["email"])
	}
	if _, ok := user["password"]; ok {
		t.Error("login response leaks the password hash")
	}

	code, body = c.do(http.MethodPost, "/api/v1/user/children", map[string]string{"name": "Leo", "birthday": "2018-04-01"})
	if code != http.StatusCreated {
		t.Fatalf("create child: %d %v", code, body)
	}
	child := body["child"].(map[string]interface{})
	if child["userId"] != user["id"] {
		t.Errorf("child.userId = %v, want %v", child["userId"], user["id"])
	}
	if child["gender"] != "other" {
		t.Errorf("child.gender = %v, want default other", child["gender"])
	}
	childPath := "/api/v1/user/children/" + child["id"].(string)

	if code, body = c.do(http.MethodDelete, childPath, nil); code != http.StatusOK {
		t.Fatalf("delete child: %d %v", code, body)
	}
	if code, body = c.do(http.MethodGet, childPath, nil); code != http.StatusNotFound {
		t.Fatalf("get deleted child: %d %v, want 404", code, body)
	}
	if body["status"] != "error" || body["message"] != "Child not found" {
		t.Errorf("unexpected error body %v", body)
	}
}

func TestRegisterThenProfileRoundTrip(t *testing.T) {
	srv := newTestServer(t, 10)
	c := srv.newClient(t)
	c.registerAndLogin("Ann@X.com")

	code, body := c.do(http.MethodGet, "/api/v1/user/profile", nil)
	if code != http.StatusOK {
		t.Fatalf("profile: %d %v", code, body)
	}
	if body["name"] != "Ann" || body["email"] != "ann@x.com" {
		t.Errorf("profile = %v", body)
	}

	code, body = c.do(http.MethodPut, "/api/v1/user/profile", map[string]string{"name": "Annie", "email": "annie@x.com", "familyName": "Smith"})
	if code != http.StatusOK {
		t.Fatalf("update profile: %d %v", code, body)
	}
	_, body = c.do(http.MethodGet, "/api/v1/user/profile", nil)
	if body["name"] != "Annie" || body["familyName"] != "Smith" {
		t.Errorf("profile after update = %v", body)
	}

	code, _ = c.do(http.MethodPut, "/api/v1/user/profile", map[string]string{"email": "annie@x.com"})
	if code != http.StatusBadRequest {
		t.Errorf("update without name: %d, want 400", code)
	}
}

func TestOtherUsersChildIsNotFound(t *testing.T) {
	srv := newTestServer(t, 10)
	ann := srv.newClient(t)
	bob := srv.newClient(t)
	ann.registerAndLogin("ann@x.com")
	bob.registerAndLogin("bob@x.com")

	_, body := ann.do(http.MethodPost, "/api/v1/user/children", map[string]string{"name": "Leo", "birthday": "2018-04-01"})
	childID := body["child"].(map[string]interface{})["id"].(string)
	childPath := "/api/v1/user/children/" + childID

	tests := []struct {
		method string
		path   string
		body   interface{}
	}{
		{http.MethodGet, childPath, nil},
		{http.MethodPut, childPath, map[string]string{"name": "X", "birthday": "2018-04-01"}},
		{http.MethodDelete, childPath, nil},
		{http.MethodDelete, "/api/v1/user/children", map[string]string{"childId": childID}},
		{http.MethodGet, childPath + "/paths", nil},
		{http.MethodPost, childPath + "/paths/cleaning", nil},
		{http.MethodGet, "/api/v1/user/children/not-an-id", nil},
	}
	for _, tt := range tests {
		if code, body := bob.do(tt.method, tt.path, tt.body); code != http.StatusNotFound {
			t.Errorf("%s %s as another user: %d %v, want 404", tt.method, tt.path, code, body)
		}
	}

	if code, _ := ann.do(http.MethodGet, childPath, nil); code != http.StatusOK {
		t.Errorf("owner GET child: %d, want 200", code)
	}
	_, body = bob.do(http.MethodGet, "/api/v1/user/children", nil)
	if list := body["children"].([]interface{}); len(list) != 0 {
		t.Errorf("bob sees %d children, want 0", len(list))
	}
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	srv := newTestServer(t, 10)
	c := srv.newClient(t)

	for _, path := range []string{"/api/v1/user/profile", "/api/v1/user/children", "/api/v1/paths", "/api/v1/user/activity"} {
		code, body := c.do(http.MethodGet, path, nil)
		if code != http.StatusUnauthorized || body["message"] != "Unauthorized" {
			t.Errorf("GET %s without session: %d %v", path, code, body)
		}
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	srv := newTestServer(t, 10)
	c := srv.newClient(t)
	c.registerAndLogin("ann@x.com")

	codeWrong, bodyWrong := c.do(http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "ann@x.com", "password": "secret2"})
	codeUnknown, bodyUnknown := c.do(http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "nobody@x.com", "password": "secret1"})

	if codeWrong != http.StatusUnauthorized || codeUnknown != http.StatusUnauthorized {
		t.Fatalf("codes = %d/%d, want 401/401", codeWrong, codeUnknown)
	}
	if bodyWrong["message"] != bodyUnknown["message"] {
		t.Errorf("messages differ: %v vs %v", bodyWrong["message"], bodyUnknown["message"])
	}

	if code, body := c.do(http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "ann@x.com"}); code != http.StatusBadRequest {
		t.Errorf("login without password: %d %v, want 400", code, body)
	}
}

func TestRegisterConflictAndValidation(t *testing.T) {
	srv := newTestServer(t, 10)
	c := srv.newClient(t)
	c.registerAndLogin("ann@x.com")

	code, body := c.do(http.MethodPost, "/api/v1/auth/register", map[string]string{"name": "Ann", "email": "ANN@x.com", "password": "secret1"})
	if code != http.StatusConflict {
		t.Errorf("duplicate register: %d %v, want 409", code, body)
	}
	code, _ = c.do(http.MethodPost, "/api/v1/auth/register", map[string]string{"name": "Ann", "email": "x@x.com"})
	if code != http.StatusBadRequest {
		t.Errorf("register without password: %d, want 400", code)
	}

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/auth/register", strings.NewReader("{not json"))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("malformed body: %d, want 400", resp.StatusCode)
	}
}

func TestSessionProbeAndLogout(t *testing.T) {
	srv := newTestServer(t, 10)
	c := srv.newClient(t)

	_, body := c.do(http.MethodGet, "/api/v1/auth/session", nil)
	if body["authenticated"] != false {
		t.Errorf("anonymous session = %v", body)
	}

	c.registerAndLogin("ann@x.com")
	_, body = c.do(http.MethodGet, "/api/v1/auth/session", nil)
	if body["authenticated"] != true {
		t.Fatalf("signed-in session = %v", body)
	}

	c.do(http.MethodPost, "/api/v1/auth/logout", nil)
	if code, _ := c.do(http.MethodGet, "/api/v1/user/profile", nil); code != http.StatusUnauthorized {
		t.Errorf("profile after logout: %d, want 401", code)
	}
}

func TestEnrollmentFlow(t *testing.T) {
	srv := newTestServer(t, 10)
	c := srv.newClient(t)
	c.registerAndLogin("ann@x.com")

	birthday := time.Now().AddDate(-6, 0, -1).Format("2006-01-02")
	_, body := c.do(http.MethodPost, "/api/v1/user/children", map[string]string{"name": "Leo", "gender": "male", "birthday": birthday})
	childPath := "/api/v1/user/children/" + body["child"].(map[string]interface{})["id"].(string)

	code, body := c.do(http.MethodGet, "/api/v1/paths?category=basics&q=clean", nil)
	if code != http.StatusOK {
		t.Fatalf("search paths: %d %v", code, body)
	}
	paths := body["paths"].([]interface{})
	if len(paths) != 1 {
		t.Fatalf("expected 1 matching path, got %d", len(paths))
	}
	cleaning := paths[0].(map[string]interface{})
	if _, leaked := cleaning["children"]; leaked {
		t.Error("path JSON exposes enrolled children")
	}

	if code, body = c.do(http.MethodPost, childPath+"/paths/"+cleaning["id"].(string), nil); code != http.StatusOK {
		t.Fatalf("enroll by id: %d %v", code, body)
	}
	if code, body = c.do(http.MethodPost, childPath+"/paths/cooking", nil); code != http.StatusOK {
		t.Fatalf("enroll by slug: %d %v", code, body)
	}
	if code, _ = c.do(http.MethodPost, childPath+"/paths/juggling", nil); code != http.StatusNotFound {
		t.Errorf("enroll in unknown path: %d, want 404", code)
	}

	_, body = c.do(http.MethodGet, childPath+"/paths", nil)
	if n := len(body["paths"].([]interface{})); n != 2 {
		t.Errorf("enrolled paths = %d, want 2", n)
	}
	_, body = c.do(http.MethodGet, childPath+"/skills", nil)
	if n := len(body["skills"].([]interface{})); n != 3 {
		t.Errorf("age-appropriate skills = %d, want 3", n)
	}

	if code, _ = c.do(http.MethodDelete, childPath+"/paths/cooking", nil); code != http.StatusOK {
		t.Errorf("unenroll: %d", code)
	}

	_, body = c.do(http.MethodGet, "/api/v1/user/activity?limit=2", nil)
	events := body["events"].([]interface{})
	if len(events) != 2 || events[0].(map[string]interface{})["type"] != "path.unenroll" {
		t.Errorf("activity = %v", events)
	}

	childID := strings.TrimPrefix(childPath, "/api/v1/user/children/")
	if code, _ = c.do(http.MethodDelete, "/api/v1/user/children", map[string]string{"childId": childID}); code != http.StatusOK {
		t.Errorf("delete child by body: %d", code)
	}
	cleaningDoc, _ := srv.store.Paths().GetBySlug(context.Background(), "cleaning")
	if len(cleaningDoc.Children) != 0 {
		t.Errorf("deleted child still enrolled: %v", cleaningDoc.Children)
	}
}

func TestLoginRateLimit(t *testing.T) {
	srv := newTestServer(t, 3)
	c := srv.newClient(t)
	c.registerAndLogin("ann@x.com") // consumes two of three tokens

	if code, _ := c.do(http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "ann@x.com", "password": "secret1"}); code != http.StatusOK {
		t.Fatalf("third attempt: %d, want 200", code)
	}
	code, body := c.do(http.MethodPost, "/api/v1/auth/login", map[string]string{"email": "ann@x.com", "password": "secret1"})
	if code != http.StatusTooManyRequests || body["status"] != "error" {
		t.Errorf("fourth attempt: %d %v, want 429", code, body)
	}

	// Other routes are not limited.
	if code, _ := c.do(http.MethodGet, "/api/v1/user/profile", nil); code != http.StatusOK {
		t.Errorf("profile after limit: %d", code)
	}
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("no primary") }

func TestHealth(t *testing.T) {
	srv := newTestServer(t, 10)
	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	var body map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || body["database"] != "memory" {
		t.Errorf("health = %d %v", resp.StatusCode, body)
	}

	router := NewRouter(Dependencies{DB: failingPinger{}, Sessions: mustTokens(t), Hub: websocket.NewHub(), LoginRate: 1})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("health with failing database = %d, want 503", rec.Code)
	}
}

func mustTokens(t *testing.T) *auth.TokenService {
	t.Helper()
	tokens, err := auth.NewTokenService("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService() error = %v", err)
	}
	return tokens
}

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("url.Parse(%q) error = %v", raw, err)
	}
	return u
}

func TestActivityWebSocket(t *testing.T) {
	srv := newTestServer(t, 10)
	c := srv.newClient(t)
	c.registerAndLogin("ann@x.com")

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws"
	if _, _, err := gorilla.DefaultDialer.Dial(wsURL, nil); err == nil {
		t.Fatal("websocket without a session should be rejected")
	}

	header := http.Header{}
	for _, cookie := range c.http.Jar.Cookies(mustParse(t, srv.URL)) {
		header.Add("Cookie", cookie.String())
	}
	conn, _, err := gorilla.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	// A pong proves the client is registered with the hub.
	if err := conn.WriteJSON(websocket.Message{Action: websocket.ActionPing}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	var msg websocket.Message
	if err := conn.ReadJSON(&msg); err != nil || msg.Action != websocket.ActionPong {
		t.Fatalf("expected pong, got %+v (%v)", msg, err)
	}

	c.do(http.MethodPost, "/api/v1/user/children", map[string]string{"name": "Leo", "birthday": "2018-04-01"})

	var activity struct {
		Action  string `json:"action"`
		Payload struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"payload"`
	}
	if err := conn.ReadJSON(&activity); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if activity.Action != websocket.ActionActivity || activity.Payload.Type != "child.create" {
		t.Errorf("unexpected activity message %+v", activity)
	}
}
