package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/docscopilot/user-service/shared/cqrs"
	"github.com/docscopilot/user-service/shared/models"
	"github.com/gin-gonic/gin"
)

// ---- mock implementations ----

type mockAccountCommander struct {
	registerFn func(cqrs.RegisterAccountCommand) (*models.Account, error)
	updateFn   func(cqrs.UpdateProfileCommand) (*models.Account, error)
	resetFn    func(cqrs.ResetPasswordCommand) (*models.Account, error)
	removeFn   func(cqrs.DeleteAccountCommand) error
}

func (m *mockAccountCommander) Register(_ context.Context, cmd cqrs.RegisterAccountCommand) (*models.Account, error) {
	if m.registerFn != nil {
		return m.registerFn(cmd)
	}
	return nil, fmt.Errorf("not configured")
}
func (m *mockAccountCommander) UpdateProfile(_ context.Context, cmd cqrs.UpdateProfileCommand) (*models.Account, error) {
	if m.updateFn != nil {
		return m.updateFn(cmd)
	}
	return nil, fmt.Errorf("not configured")
}
func (m *mockAccountCommander) ResetPassword(_ context.Context, cmd cqrs.ResetPasswordCommand) (*models.Account, error) {
	if m.resetFn != nil {
		return m.resetFn(cmd)
	}
	return nil, fmt.Errorf("not configured")
}
func (m *mockAccountCommander) Remove(_ context.Context, cmd cqrs.DeleteAccountCommand) error {
	if m.removeFn != nil {
		return m.removeFn(cmd)
	}
	return fmt.Errorf("not configured")
}

type mockAccountQuerier struct {
	listFn    func(cqrs.ListAccountsQuery) (*models.AccountPage, error)
	lookupFn  func(cqrs.LookupQuery) (*models.Account, error)
	getFn     func(string) (*models.Account, error)
	profileFn func(cqrs.GetProfileQuery) (*models.Account, error)
}

func (m *mockAccountQuerier) ListAccounts(_ context.Context, q cqrs.ListAccountsQuery) (*models.AccountPage, error) {
	if m.listFn != nil {
		return m.listFn(q)
	}
	return nil, fmt.Errorf("not configured")
}
func (m *mockAccountQuerier) Lookup(_ context.Context, q cqrs.LookupQuery) (*models.Account, error) {
	if m.lookupFn != nil {
		return m.lookupFn(q)
	}
	return nil, fmt.Errorf("not configured")
}
func (m *mockAccountQuerier) GetByID(_ context.Context, id string) (*models.Account, error) {
	if m.getFn != nil {
		return m.getFn(id)
	}
	return nil, fmt.Errorf("not configured")
}
func (m *mockAccountQuerier) GetProfile(_ context.Context, q cqrs.GetProfileQuery) (*models.Account, error) {
	if m.profileFn != nil {
		return m.profileFn(q)
	}
	return nil, fmt.Errorf("not configured")
}

// ---- helpers ----

// fakeAuth stands in for the bearer token middleware.
func fakeAuth(userID string, roles ...int) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userId", userID)
		c.Set("roles", roles)
		c.Next()
	}
}

func newAccountTestRouter(cmds AccountCommander, qrys AccountQuerier, auth gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if auth == nil {
		auth = fakeAuth("")
	}
	NewAccountHandler(cmds, qrys).Mount(r, auth)
	return r
}

func doRequest(router *gin.Engine, method, url string, body interface{}) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, url, nil)
	if body != nil {
		b, _ := json.Marshal(body)
		req, _ = http.NewRequest(method, url, strings.NewReader(string(b)))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// ---- test data ----

const (
	selfID  = "0b9a7c52-3e1f-4d8a-9c61-2f4e5a6b7c8d"
	otherID = "5e2d8f10-7a3b-4c9e-8d12-6b7a8c9d0e1f"
	ghostID = "9f8e7d6c-5b4a-4392-8170-6f5e4d3c2b1a"
)

var testAccount = &models.Account{
	ID:        "6f1c1a0e-5d0b-4c4e-9f59-0a2b3c4d5e6f",
	Username:  "alice",
	Email:     "alice@example.com",
	Password:  "$argon2id$v=19$m=65536,t=3,p=4$c2FsdA$a2V5",
	RoleIDs:   []int{models.RoleUser},
	Profile:   &models.Profile{Gender: models.GenderOther, Address: "Berlin"},
	CreatedAt: time.Now(),
	UpdatedAt: time.Now(),
}

func validRegisterBody() map[string]interface{} {
	return map[string]interface{}{
		"username": "alice", "email": "alice@example.com",
		"password": "securepass123", "address": "Berlin",
	}
}

// ---- tests ----

func TestRegister(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		registerFn     func(cqrs.RegisterAccountCommand) (*models.Account, error)
		expectedStatus int
	}{
		{
			name: "success - creates new user",
			body: validRegisterBody(),
			registerFn: func(cmd cqrs.RegisterAccountCommand) (*models.Account, error) {
				if len(cmd.RoleIDs) != 1 || cmd.RoleIDs[0] != models.RoleUser {
					return nil, fmt.Errorf("unexpected roles %v", cmd.RoleIDs)
				}
				return testAccount, nil
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "bad request - missing username",
			body:           map[string]interface{}{"email": "alice@example.com"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "bad request - invalid email format",
			body:           map[string]interface{}{"username": "alice", "email": "not-valid"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "bad request - unknown gender",
			body:           map[string]interface{}{"username": "alice", "gender": "robot"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "bad request - malformed json",
			body:           "{not json",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "conflict - username taken",
			body: validRegisterBody(),
			registerFn: func(cmd cqrs.RegisterAccountCommand) (*models.Account, error) {
				return nil, fmt.Errorf("username %w", models.ErrConflict)
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name: "internal error - store unavailable",
			body: validRegisterBody(),
			registerFn: func(cmd cqrs.RegisterAccountCommand) (*models.Account, error) {
				return nil, fmt.Errorf("failed to begin transaction: connection refused")
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmds := &mockAccountCommander{registerFn: tt.registerFn}
			router := newAccountTestRouter(cmds, &mockAccountQuerier{}, nil)
			w := doRequest(router, http.MethodPost, "/v1/users", tt.body)
			if w.Code != tt.expectedStatus {
				t.Errorf("[%s] expected status %d, got %d; body: %s", tt.name, tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestRegister_ResponseOmitsPassword(t *testing.T) {
	cmds := &mockAccountCommander{registerFn: func(cqrs.RegisterAccountCommand) (*models.Account, error) { return testAccount, nil }}
	router := newAccountTestRouter(cmds, &mockAccountQuerier{}, nil)

	w := doRequest(router, http.MethodPost, "/v1/users", validRegisterBody())
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d; body: %s", http.StatusCreated, w.Code, w.Body.String())
	}
	if strings.Contains(w.Body.String(), "argon2id") || strings.Contains(w.Body.String(), "password") {
		t.Errorf("response leaks the password hash: %s", w.Body.String())
	}
}

func TestListAccounts(t *testing.T) {
	tests := []struct {
		name           string
		url            string
		listFn         func(cqrs.ListAccountsQuery) (*models.AccountPage, error)
		expectedStatus int
	}{
		{
			name: "success - defaults to first page of ten",
			url:  "/v1/users",
			listFn: func(q cqrs.ListAccountsQuery) (*models.AccountPage, error) {
				if q.Pagination.Page != 1 || q.Pagination.PageSize != 10 {
					return nil, fmt.Errorf("unexpected pagination %+v", q.Pagination)
				}
				return &models.AccountPage{Data: []models.Account{*testAccount}, Total: 1, TotalPages: 1}, nil
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "success - filters are passed through",
			url:  "/v1/users?page=2&limit=5&gender=female&role=1&username=alice",
			listFn: func(q cqrs.ListAccountsQuery) (*models.AccountPage, error) {
				f := q.Filter
				if q.Pagination.Page != 2 || q.Pagination.PageSize != 5 || f.Username != "alice" ||
					f.Gender == nil || *f.Gender != models.GenderFemale || f.RoleID == nil || *f.RoleID != 1 {
					return nil, fmt.Errorf("unexpected query %+v", q)
				}
				return &models.AccountPage{Data: []models.Account{}, Total: 0}, nil
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "bad request - zero limit",
			url:            "/v1/users?limit=0",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "bad request - non-numeric page",
			url:            "/v1/users?page=abc",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "bad request - page out of range",
			url:  "/v1/users?page=922337203685477581&limit=100",
			listFn: func(q cqrs.ListAccountsQuery) (*models.AccountPage, error) {
				return nil, fmt.Errorf("page %d is out of range: %w", q.Pagination.Page, models.ErrInvalidInput)
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "bad request - unknown role",
			url:            "/v1/users?role=7",
			expectedStatus: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newAccountTestRouter(&mockAccountCommander{}, &mockAccountQuerier{listFn: tt.listFn}, nil)
			w := doRequest(router, http.MethodGet, tt.url, nil)
			if w.Code != tt.expectedStatus {
				t.Errorf("[%s] expected status %d, got %d; body: %s", tt.name, tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestLookup(t *testing.T) {
	tests := []struct {
		name           string
		url            string
		lookupFn       func(cqrs.LookupQuery) (*models.Account, error)
		expectedStatus int
	}{
		{
			name: "success - by github id",
			url:  "/v1/users/lookup?githubId=583231",
			lookupFn: func(q cqrs.LookupQuery) (*models.Account, error) {
				if q.ExternalID != "583231" {
					return nil, fmt.Errorf("unexpected query %+v", q)
				}
				return testAccount, nil
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "bad request - no key",
			url:  "/v1/users/lookup",
			lookupFn: func(q cqrs.LookupQuery) (*models.Account, error) {
				return nil, fmt.Errorf("exactly one key: %w", models.ErrInvalidInput)
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "not found - unknown email",
			url:  "/v1/users/lookup?email=ghost@example.com",
			lookupFn: func(q cqrs.LookupQuery) (*models.Account, error) {
				return nil, fmt.Errorf("account %w", models.ErrNotFound)
			},
			expectedStatus: http.StatusNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newAccountTestRouter(&mockAccountCommander{}, &mockAccountQuerier{lookupFn: tt.lookupFn}, nil)
			w := doRequest(router, http.MethodGet, tt.url, nil)
			if w.Code != tt.expectedStatus {
				t.Errorf("[%s] expected status %d, got %d; body: %s", tt.name, tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestGetAccountAndProfile(t *testing.T) {
	qrys := &mockAccountQuerier{
		getFn: func(id string) (*models.Account, error) {
			if id == testAccount.ID {
				return testAccount, nil
			}
			return nil, fmt.Errorf("account %w", models.ErrNotFound)
		},
		profileFn: func(q cqrs.GetProfileQuery) (*models.Account, error) {
			if q.UserID == testAccount.ID {
				return testAccount, nil
			}
			return nil, fmt.Errorf("account %w", models.ErrNotFound)
		},
	}
	router := newAccountTestRouter(&mockAccountCommander{}, qrys, nil)

	tests := []struct {
		name           string
		url            string
		expectedStatus int
	}{
		{name: "success - get by id", url: "/v1/users/" + testAccount.ID, expectedStatus: http.StatusOK},
		{name: "success - get profile", url: "/v1/users/" + testAccount.ID + "/profile", expectedStatus: http.StatusOK},
		{name: "not found - get by id", url: "/v1/users/" + ghostID, expectedStatus: http.StatusNotFound},
		{name: "not found - get profile", url: "/v1/users/" + ghostID + "/profile", expectedStatus: http.StatusNotFound},
		{name: "not found - malformed id", url: "/v1/users/not-a-uuid", expectedStatus: http.StatusNotFound},
		{name: "not found - malformed id profile", url: "/v1/users/not-a-uuid/profile", expectedStatus: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(router, http.MethodGet, tt.url, nil)
			if w.Code != tt.expectedStatus {
				t.Errorf("[%s] expected status %d, got %d; body: %s", tt.name, tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestUpdateProfile(t *testing.T) {
	tests := []struct {
		name           string
		urlUserID      string
		auth           gin.HandlerFunc
		body           interface{}
		updateFn       func(cqrs.UpdateProfileCommand) (*models.Account, error)
		expectedStatus int
	}{
		{
			name:      "success - update own profile",
			urlUserID: selfID, auth: fakeAuth(selfID, models.RoleUser),
			body: map[string]interface{}{"address": "Paris"},
			updateFn: func(cmd cqrs.UpdateProfileCommand) (*models.Account, error) {
				if cmd.UserID != selfID || cmd.Address != "Paris" {
					return nil, fmt.Errorf("unexpected command %+v", cmd)
				}
				return testAccount, nil
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:      "success - admin updates another user",
			urlUserID: otherID, auth: fakeAuth(selfID, models.RoleAdmin),
			body:           map[string]interface{}{"description": "moderated"},
			updateFn:       func(cmd cqrs.UpdateProfileCommand) (*models.Account, error) { return testAccount, nil },
			expectedStatus: http.StatusOK,
		},
		{
			name:      "forbidden - update another user's profile",
			urlUserID: otherID, auth: fakeAuth(selfID, models.RoleUser),
			body:           map[string]interface{}{"address": "Paris"},
			expectedStatus: http.StatusForbidden,
		},
		{
			name:      "bad request - invalid email",
			urlUserID: selfID, auth: fakeAuth(selfID),
			body:           map[string]interface{}{"email": "nope"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:      "not found - user does not exist",
			urlUserID: selfID, auth: fakeAuth(selfID),
			body: map[string]interface{}{"address": "Paris"},
			updateFn: func(cmd cqrs.UpdateProfileCommand) (*models.Account, error) {
				return nil, fmt.Errorf("account %w", models.ErrNotFound)
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:      "conflict - username taken",
			urlUserID: selfID, auth: fakeAuth(selfID),
			body: map[string]interface{}{"username": "bobby"},
			updateFn: func(cmd cqrs.UpdateProfileCommand) (*models.Account, error) {
				return nil, fmt.Errorf("%w: users_username_key", models.ErrConflict)
			},
			expectedStatus: http.StatusConflict,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmds := &mockAccountCommander{updateFn: tt.updateFn}
			router := newAccountTestRouter(cmds, &mockAccountQuerier{}, tt.auth)
			w := doRequest(router, http.MethodPatch, "/v1/users/"+tt.urlUserID, tt.body)
			if w.Code != tt.expectedStatus {
				t.Errorf("[%s] expected status %d, got %d; body: %s", tt.name, tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestDeleteAccount(t *testing.T) {
	tests := []struct {
		name           string
		urlUserID      string
		auth           gin.HandlerFunc
		removeFn       func(cqrs.DeleteAccountCommand) error
		expectedStatus int
	}{
		{
			name:      "success - delete own account",
			urlUserID: selfID, auth: fakeAuth(selfID),
			removeFn:       func(cmd cqrs.DeleteAccountCommand) error { return nil },
			expectedStatus: http.StatusNoContent,
		},
		{
			name:      "success - super deletes another account",
			urlUserID: otherID, auth: fakeAuth(selfID, models.RoleSuper),
			removeFn:       func(cmd cqrs.DeleteAccountCommand) error { return nil },
			expectedStatus: http.StatusNoContent,
		},
		{
			name:      "forbidden - delete another user's account",
			urlUserID: otherID, auth: fakeAuth(selfID, models.RoleUser),
			expectedStatus: http.StatusForbidden,
		},
		{
			name:      "not found - user does not exist",
			urlUserID: ghostID, auth: fakeAuth(ghostID),
			removeFn:       func(cmd cqrs.DeleteAccountCommand) error { return fmt.Errorf("account %w", models.ErrNotFound) },
			expectedStatus: http.StatusNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmds := &mockAccountCommander{removeFn: tt.removeFn}
			router := newAccountTestRouter(cmds, &mockAccountQuerier{}, tt.auth)
			w := doRequest(router, http.MethodDelete, "/v1/users/"+tt.urlUserID, nil)
			if w.Code != tt.expectedStatus {
				t.Errorf("[%s] expected status %d, got %d; body: %s", tt.name, tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestResetPassword(t *testing.T) {
	validBody := map[string]interface{}{"email": "alice@example.com", "code": "123456", "password": "new-password-1"}

	tests := []struct {
		name           string
		body           interface{}
		resetFn        func(cqrs.ResetPasswordCommand) (*models.Account, error)
		expectedStatus int
	}{
		{
			name:           "success - code accepted",
			body:           validBody,
			resetFn:        func(cmd cqrs.ResetPasswordCommand) (*models.Account, error) { return testAccount, nil },
			expectedStatus: http.StatusOK,
		},
		{
			name: "forbidden - code invalid or expired",
			body: validBody,
			resetFn: func(cmd cqrs.ResetPasswordCommand) (*models.Account, error) {
				return nil, models.ErrInvalidReset
			},
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "bad request - missing code",
			body:           map[string]interface{}{"email": "alice@example.com", "password": "new-password-1"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "bad request - short password",
			body:           map[string]interface{}{"email": "alice@example.com", "code": "123456", "password": "short"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "internal error - code store unavailable",
			body: validBody,
			resetFn: func(cmd cqrs.ResetPasswordCommand) (*models.Account, error) {
				return nil, fmt.Errorf("failed to verify code: connection refused")
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmds := &mockAccountCommander{resetFn: tt.resetFn}
			router := newAccountTestRouter(cmds, &mockAccountQuerier{}, nil)
			w := doRequest(router, http.MethodPost, "/v1/users/password/reset", tt.body)
			if w.Code != tt.expectedStatus {
				t.Errorf("[%s] expected status %d, got %d; body: %s", tt.name, tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestRoutes_AuthenticatedOnlyForWrites(t *testing.T) {
	h := NewAccountHandler(&mockAccountCommander{}, &mockAccountQuerier{})
	for _, route := range h.Routes() {
		wantAuth := route.Method == http.MethodPatch || route.Method == http.MethodDelete
		if route.Authenticated != wantAuth {
			t.Errorf("%s %s: expected authenticated=%v", route.Method, route.Path, wantAuth)
		}
	}

	denyAll := func(c *gin.Context) {
		c.AbortWithStatus(http.StatusUnauthorized)
	}
	router := newAccountTestRouter(&mockAccountCommander{}, &mockAccountQuerier{}, denyAll)
	w := doRequest(router, http.MethodDelete, "/v1/users/"+selfID, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}

	w = doRequest(router, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}
}

func TestMalformedUserIDNeverReachesServices(t *testing.T) {
	called := false
	cmds := &mockAccountCommander{
		updateFn: func(cqrs.UpdateProfileCommand) (*models.Account, error) { called = true; return testAccount, nil },
		removeFn: func(cqrs.DeleteAccountCommand) error { called = true; return nil },
	}
	qrys := &mockAccountQuerier{
		getFn: func(string) (*models.Account, error) { called = true; return testAccount, nil },
	}
	router := newAccountTestRouter(cmds, qrys, fakeAuth("usr-001", models.RoleSuper))

	requests := []struct {
		method string
		url    string
		body   interface{}
	}{
		{http.MethodGet, "/v1/users/usr-001", nil},
		{http.MethodPatch, "/v1/users/usr-001", map[string]interface{}{"address": "Paris"}},
		{http.MethodDelete, "/v1/users/usr-001", nil},
	}
	for _, r := range requests {
		w := doRequest(router, r.method, r.url, r.body)
		if w.Code != http.StatusNotFound {
			t.Errorf("[%s %s] expected status %d, got %d; body: %s", r.method, r.url, http.StatusNotFound, w.Code, w.Body.String())
		}
	}
	if called {
		t.Errorf("expected malformed ids to be rejected before reaching the services")
	}
}
