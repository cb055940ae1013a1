package web

import (
	"context"
	"database/sql"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/piso3/piso/internal/api"
	"github.com/piso3/piso/internal/db"
	"github.com/piso3/piso/internal/model"
	"github.com/piso3/piso/internal/store"
)

const (
	testJWTSecret = "test-secret-0123456789"
	testPassword  = "password123"
)

var testNow = time.Date(2026, time.October, 15, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	db     *sql.DB
	server *httptest.Server
	supply *model.Supply
	ids    map[string]int64
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()
	database := db.NewTestDB(t)
	ctx := context.Background()

	router, err := NewRouter(Options{
		DB:         database,
		JWTSecret:  testJWTSecret,
		SessionTTL: time.Hour,
		Now:        func() time.Time { return testNow },
	})
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	env := &testEnv{db: database, server: server, ids: map[string]int64{}}

	hash, _ := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	for _, username := range []string{"ana", "ben", "cris"} {
		r, err := store.CreateRoommate(ctx, database, model.Roommate{
			Name:             strings.ToUpper(username[:1]) + username[1:],
			Email:            username + "@example.com",
			Username:         username,
			PasswordHash:     string(hash),
			IsAdmin:          username == "ana",
			NotificationDays: model.DefaultNotificationDays,
		})
		if err != nil {
			t.Fatalf("CreateRoommate: %v", err)
		}
		env.ids[username] = r.ID
	}

	supply, err := store.CreateSupply(ctx, database, model.Supply{
		Name:            "Water",
		Category:        model.CategoryWaterBottle,
		DurationDays:    7,
		Roster:          []int64{env.ids["ana"], env.ids["ben"], env.ids["cris"]},
		CurrentHolderID: env.ids["ana"],
	})
	if err != nil {
		t.Fatalf("CreateSupply: %v", err)
	}
	env.supply = supply
	return env
}

// newClient returns a client with a cookie jar that does not follow redirects.
func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (e *testEnv) login(t *testing.T, username string) *http.Client {
	t.Helper()
	client := newClient(t)
	resp := e.post(t, client, "/login", url.Values{"username": {username}, "password": {testPassword}})
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/" {
		t.Fatalf("login %s: status %d location %q", username, resp.StatusCode, resp.Header.Get("Location"))
	}
	return client
}

func (e *testEnv) post(t *testing.T, client *http.Client, path string, form url.Values) *http.Response {
	t.Helper()
	resp, err := client.PostForm(e.server.URL+path, form)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	resp.Body.Close()
	return resp
}

func (e *testEnv) get(t *testing.T, client *http.Client, path string) (*http.Response, string) {
	t.Helper()
	resp, err := client.Get(e.server.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, string(body)
}

func (e *testEnv) supplyPath(suffix string) string {
	return "/supplies/" + strconv.FormatInt(e.supply.ID, 10) + suffix
}

// flash returns the flash message a redirect carries under key.
func flash(t *testing.T, resp *http.Response, key string) string {
	t.Helper()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected redirect, got %d", resp.StatusCode)
	}
	u, err := url.Parse(resp.Header.Get("Location"))
	if err != nil {
		t.Fatalf("parsing location: %v", err)
	}
	return u.Query().Get(key)
}

func TestLoginAndDashboard(t *testing.T) {
	env := setupTestServer(t)

	resp, _ := env.get(t, newClient(t), "/")
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/login" {
		t.Fatalf("anonymous dashboard: status %d location %q", resp.StatusCode, resp.Header.Get("Location"))
	}

	resp, err := newClient(t).PostForm(env.server.URL+"/login", url.Values{"username": {"ana"}, "password": {"wrong-password"}})
	if err != nil {
		t.Fatalf("POST /login: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "Wrong username or password") {
		t.Errorf("bad login: status %d", resp.StatusCode)
	}

	client := env.login(t, "ana")
	resp, page := env.get(t, client, "/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("dashboard: %d", resp.StatusCode)
	}
	for _, want := range []string{"Water", "Ana (you)", "I bought it", "Skip to next"} {
		if !strings.Contains(page, want) {
			t.Errorf("dashboard missing %q", want)
		}
	}

	_, page = env.get(t, env.login(t, "ben"), "/")
	if strings.Contains(page, "I bought it") || strings.Contains(page, "Skip to next") {
		t.Error("ben should see neither the complete form nor admin controls")
	}
}

func TestInvalidCookieCleared(t *testing.T) {
	env := setupTestServer(t)

	req, _ := http.NewRequest(http.MethodGet, env.server.URL+"/", nil)
	req.AddCookie(&http.Cookie{Name: api.SessionCookie, Value: "garbage"})
	resp, err := newClient(t).Do(req)
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/login" {
		t.Fatalf("status %d location %q", resp.StatusCode, resp.Header.Get("Location"))
	}
	cleared := false
	for _, c := range resp.Cookies() {
		if c.Name == api.SessionCookie && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("invalid session cookie was not cleared")
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	env := setupTestServer(t)
	client := env.login(t, "ben")

	u, _ := url.Parse(env.server.URL)
	var token string
	for _, c := range client.Jar.Cookies(u) {
		if c.Name == api.SessionCookie {
			token = c.Value
		}
	}
	if token == "" {
		t.Fatal("no session cookie after login")
	}

	resp := env.post(t, client, "/logout", nil)
	if resp.Header.Get("Location") != "/login" {
		t.Fatalf("logout redirected to %q", resp.Header.Get("Location"))
	}

	req, _ := http.NewRequest(http.MethodGet, env.server.URL+"/", nil)
	req.AddCookie(&http.Cookie{Name: api.SessionCookie, Value: token})
	resp, err := newClient(t).Do(req)
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	resp.Body.Close()
	if resp.Header.Get("Location") != "/login" {
		t.Error("revoked session still accepted")
	}
}

func TestCompleteFromDashboard(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	resp := env.post(t, env.login(t, "ben"), env.supplyPath("/complete"), nil)
	if msg := flash(t, resp, "error"); msg != "not your turn" {
		t.Errorf("ben completing: error %q", msg)
	}

	resp = env.post(t, env.login(t, "ana"), env.supplyPath("/complete"), url.Values{"note": {"two packs"}})
	if msg := flash(t, resp, "ok"); !strings.Contains(msg, "Ben") {
		t.Errorf("success message %q does not name the next holder", msg)
	}

	supply, _ := store.GetSupply(ctx, env.db, env.supply.ID)
	if supply.CurrentHolderID != env.ids["ben"] {
		t.Errorf("holder = %d, want ben", supply.CurrentHolderID)
	}
	purchases, _ := store.ListPurchases(ctx, env.db, env.supply.ID)
	if len(purchases) != 1 || purchases[0].Note != "two packs" {
		t.Errorf("purchases = %+v", purchases)
	}
}

func TestAdminActions(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	resp := env.post(t, env.login(t, "ben"), env.supplyPath("/block"), nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("ben blocking: status %d, want 403", resp.StatusCode)
	}

	admin := env.login(t, "ana")
	env.post(t, admin, env.supplyPath("/block"), nil)
	supply, _ := store.GetSupply(ctx, env.db, env.supply.ID)
	if !supply.Blocked {
		t.Fatal("supply not blocked")
	}

	_, page := env.get(t, admin, "/")
	if !strings.Contains(page, "Locked") {
		t.Error("dashboard does not show the lock")
	}

	resp = env.post(t, admin, env.supplyPath("/unlock"), url.Values{"advance": {"true"}})
	if flash(t, resp, "ok") == "" {
		t.Error("unlock did not report success")
	}
	supply, _ = store.GetSupply(ctx, env.db, env.supply.ID)
	if supply.Blocked || supply.CurrentHolderID != env.ids["ben"] {
		t.Errorf("after unlock: blocked=%v holder=%d", supply.Blocked, supply.CurrentHolderID)
	}
}

func TestSupplyPage(t *testing.T) {
	env := setupTestServer(t)
	client := env.login(t, "cris")

	resp, page := env.get(t, client, env.supplyPath(""))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("supply page: %d", resp.StatusCode)
	}
	if !strings.Contains(page, "Nobody has bought it yet") || !strings.Contains(page, "No photo yet") {
		t.Error("empty supply page content missing")
	}

	resp, _ = env.get(t, client, "/supplies/9999")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown supply: %d, want 404", resp.StatusCode)
	}

	resp, _ = env.get(t, client, env.supplyPath("/image"))
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing photo: %d, want 404", resp.StatusCode)
	}
}

func TestDishesFlow(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	ana := env.login(t, "ana")

	resp := env.post(t, ana, "/dishes", url.Values{
		"roommate_id": {strconv.FormatInt(env.ids["ben"], 10)},
		"date":        {"2026-10-14"},
		"action":      {model.DishActionBoth},
	})
	if flash(t, resp, "ok") == "" {
		t.Fatalf("create dish record: %q", resp.Header.Get("Location"))
	}

	resp = env.post(t, ana, "/dishes", url.Values{"action": {"scrub"}})
	if flash(t, resp, "error") == "" {
		t.Error("invalid action accepted")
	}

	_, page := env.get(t, ana, "/dishes?date=2026-10-14")
	if !strings.Contains(page, "Washed and dried") || !strings.Contains(page, "Week 2026-42") {
		t.Error("dishes page does not show the record")
	}

	records, _ := store.ListDishRecords(ctx, env.db, "2026-10-12", "2026-10-18")
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	deletePath := "/dishes/" + strconv.FormatInt(records[0].ID, 10) + "/delete"

	resp = env.post(t, env.login(t, "cris"), deletePath, url.Values{"date": {"2026-10-14"}})
	if flash(t, resp, "error") == "" {
		t.Error("cris deleted someone else's record")
	}

	resp = env.post(t, env.login(t, "ben"), deletePath, url.Values{"date": {"2026-10-14"}})
	if flash(t, resp, "ok") == "" {
		t.Error("ben could not delete his own record")
	}
}

func TestDishesRedirectKeepsDateInOneParameter(t *testing.T) {
	env := setupTestServer(t)
	ana := env.login(t, "ana")
	date := "2026-10-14&ok=Record+added."

	for path, form := range map[string]url.Values{
		"/dishes":          {"date": {date}, "action": {model.DishActionWash}},
		"/dishes/9/delete": {"date": {date}},
	} {
		resp := env.post(t, ana, path, form)
		if flash(t, resp, "ok") != "" {
			t.Errorf("%s: date leaked an ok message into %q", path, resp.Header.Get("Location"))
		}
		if got := flash(t, resp, "date"); got != date {
			t.Errorf("%s: date = %q, want %q", path, got, date)
		}
	}
}

func TestSettings(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	ben := env.login(t, "ben")

	resp := env.post(t, ben, "/settings/notifications", url.Values{"notification_days": {"5"}})
	if flash(t, resp, "ok") == "" {
		t.Fatalf("update own notification days: %q", resp.Header.Get("Location"))
	}
	r, _ := store.GetRoommate(ctx, env.db, env.ids["ben"])
	if r.NotificationDays != 5 {
		t.Errorf("notification days = %d, want 5", r.NotificationDays)
	}

	resp = env.post(t, ben, "/settings/notifications", url.Values{
		"user_id":           {strconv.FormatInt(env.ids["ana"], 10)},
		"notification_days": {"3"},
	})
	if flash(t, resp, "error") == "" {
		t.Error("ben changed ana's notification days")
	}

	resp = env.post(t, ben, "/settings/notifications", url.Values{"notification_days": {"31"}})
	if flash(t, resp, "error") == "" {
		t.Error("out of range notification days accepted")
	}

	resp = env.post(t, ben, "/settings/duration", url.Values{
		"supply_id":     {strconv.FormatInt(env.supply.ID, 10)},
		"duration_days": {"10"},
	})
	if flash(t, resp, "ok") == "" {
		t.Fatalf("update duration: %q", resp.Header.Get("Location"))
	}
	supply, _ := store.GetSupply(ctx, env.db, env.supply.ID)
	if supply.DurationDays != 10 {
		t.Errorf("duration = %d, want 10", supply.DurationDays)
	}

	resp = env.post(t, ben, "/settings/password", url.Values{
		"current_password": {"wrong-password"},
		"new_password":     {"new-password-1"},
	})
	if flash(t, resp, "error") != "Current password is incorrect." {
		t.Error("wrong current password accepted")
	}

	resp = env.post(t, ben, "/settings/password", url.Values{
		"current_password": {testPassword},
		"new_password":     {"new-password-1"},
	})
	if flash(t, resp, "ok") == "" {
		t.Fatal("password change failed")
	}

	_, page := env.get(t, ben, "/settings")
	if strings.Contains(page, "Ana") {
		t.Error("non-admin settings page lists other roommates")
	}
}

func TestBuildWeek(t *testing.T) {
	start := time.Date(2026, time.October, 12, 0, 0, 0, 0, time.UTC)
	today := time.Date(2026, time.October, 15, 9, 0, 0, 0, time.UTC)
	roommates := []model.Roommate{{ID: 1, Name: "Ana"}, {ID: 2, Name: "Ben"}}
	records := []model.DishRecord{
		{ID: 1, RoommateID: 1, Date: "2026-10-12", Action: model.DishActionWash},
		{ID: 2, RoommateID: 2, Date: "2026-10-12", Action: model.DishActionDry},
		{ID: 3, RoommateID: 1, Date: "2026-10-15", Action: model.DishActionBoth},
	}

	days, tallies := BuildWeek(start, today, records, roommates)

	if len(days) != 7 {
		t.Fatalf("days = %d, want 7", len(days))
	}
	if len(days[0].Records) != 2 || len(days[3].Records) != 1 {
		t.Errorf("records per day: mon=%d thu=%d", len(days[0].Records), len(days[3].Records))
	}
	if !days[3].Today || days[0].Today {
		t.Error("today flag on the wrong day")
	}
	if tallies[0] != (DishTally{Name: "Ana", Washed: 2, Dried: 1}) {
		t.Errorf("ana tally = %+v", tallies[0])
	}
	if tallies[1] != (DishTally{Name: "Ben", Washed: 0, Dried: 1}) {
		t.Errorf("ben tally = %+v", tallies[1])
	}
}

func TestStaticAssets(t *testing.T) {
	env := setupTestServer(t)

	resp, body := env.get(t, newClient(t), "/static/style.css")
	if resp.StatusCode != http.StatusOK || !strings.Contains(body, ".card") {
		t.Errorf("stylesheet: status %d", resp.StatusCode)
	}
}
