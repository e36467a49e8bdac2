package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hugh/taskhub/internal/api/dto"
	"github.com/hugh/taskhub/internal/api/handlers"
	"github.com/hugh/taskhub/internal/api/middleware"
	"github.com/hugh/taskhub/internal/auth"
	"github.com/hugh/taskhub/internal/testutil"
	"github.com/hugh/taskhub/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAuthTestRouter(t *testing.T) (*chi.Mux, *testutil.TestSetup) {
	tc := testutil.NewTestContext(t)

	authService := auth.NewService(tc.DB, tc.JWTService)
	handler := handlers.NewAuthHandler(authService, util.DiscardLogger())

	r := chi.NewRouter()
	r.Post("/api/register", handler.Register)
	r.Post("/api/login", handler.Login)
	r.With(middleware.Auth(tc.JWTService)).Get("/api/me", handler.Me)

	return r, tc
}

func registerBody(email, identifier string) map[string]string {
	return map[string]string{
		"name":               "New User",
		"email":              email,
		"password":           "secret1",
		"company_name":       "New Company",
		"company_identifier": identifier,
	}
}

func TestAuthHandler_Register(t *testing.T) {
	router, tc := setupAuthTestRouter(t)
	defer tc.Cleanup()

	t.Run("successful registration", func(t *testing.T) {
		req := testutil.UnauthenticatedRequest(t, "POST", "/api/register", registerBody("newuser@example.com", "new-co"))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusCreated)

		var resp dto.AuthResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, "User registered successfully", resp.Message)
		assert.Equal(t, "newuser@example.com", resp.User.Email)
		assert.Equal(t, "New Company", resp.User.CompanyName)

		claims, err := tc.JWTService.ValidateToken(resp.Token)
		require.NoError(t, err)
		assert.Equal(t, resp.User.ID, claims.UserID.String())
		assert.Equal(t, resp.User.CompanyID, claims.CompanyID.String())
	})

	t.Run("password is never returned", func(t *testing.T) {
		req := testutil.UnauthenticatedRequest(t, "POST", "/api/register", registerBody("private@example.com", "private-co"))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusCreated)
		assert.NotContains(t, rr.Body.String(), "secret1")
		assert.NotContains(t, rr.Body.String(), "password")
	})

	t.Run("duplicate email", func(t *testing.T) {
		req := testutil.UnauthenticatedRequest(t, "POST", "/api/register", registerBody(tc.User.Email, "other-co"))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusUnprocessableEntity)
		var resp dto.ErrorResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Contains(t, resp.Details, "email")
	})

	t.Run("duplicate company identifier", func(t *testing.T) {
		req := testutil.UnauthenticatedRequest(t, "POST", "/api/register", registerBody("fresh@example.com", tc.Company.Identifier))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusUnprocessableEntity)
		var resp dto.ErrorResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Contains(t, resp.Details, "company_identifier")
	})

	tests := []struct {
		name  string
		edit  func(map[string]string)
		field string
	}{
		{"missing name", func(b map[string]string) { delete(b, "name") }, "name"},
		{"invalid email", func(b map[string]string) { b["email"] = "not-an-email" }, "email"},
		{"password too short", func(b map[string]string) { b["password"] = "12345" }, "password"},
		{"missing company name", func(b map[string]string) { b["company_name"] = " " }, "company_name"},
		{"missing company identifier", func(b map[string]string) { delete(b, "company_identifier") }, "company_identifier"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := registerBody("valid-"+uuid.NewString()[:8]+"@example.com", "co-"+uuid.NewString()[:8])
			tt.edit(body)

			req := testutil.UnauthenticatedRequest(t, "POST", "/api/register", body)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			testutil.AssertStatus(t, rr, http.StatusUnprocessableEntity)
			var resp dto.ErrorResponse
			testutil.ParseJSONResponse(t, rr, &resp)
			assert.Equal(t, "Validation failed", resp.Error)
			assert.Contains(t, resp.Details, tt.field)
		})
	}

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/register", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})
}

func TestAuthHandler_Login(t *testing.T) {
	router, tc := setupAuthTestRouter(t)
	defer tc.Cleanup()

	t.Run("successful login", func(t *testing.T) {
		body := map[string]string{"email": tc.User.Email, "password": testutil.TestPassword}
		req := testutil.UnauthenticatedRequest(t, "POST", "/api/login", body)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusOK)

		var resp dto.AuthResponse
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, "Login successful", resp.Message)
		assert.Equal(t, tc.User.ID.String(), resp.User.ID)
		assert.Equal(t, tc.Company.Name, resp.User.CompanyName)
	})

	t.Run("wrong password", func(t *testing.T) {
		body := map[string]string{"email": tc.User.Email, "password": "wrongpassword"}
		req := testutil.UnauthenticatedRequest(t, "POST", "/api/login", body)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	})

	t.Run("non-existent user", func(t *testing.T) {
		body := map[string]string{"email": "nobody@example.com", "password": testutil.TestPassword}
		req := testutil.UnauthenticatedRequest(t, "POST", "/api/login", body)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	})

	t.Run("missing password", func(t *testing.T) {
		body := map[string]string{"email": tc.User.Email}
		req := testutil.UnauthenticatedRequest(t, "POST", "/api/login", body)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusUnprocessableEntity)
	})
}

func TestAuthHandler_Me(t *testing.T) {
	router, tc := setupAuthTestRouter(t)
	defer tc.Cleanup()

	t.Run("current user", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "GET", "/api/me", nil, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusOK)
		var resp dto.UserDTO
		testutil.ParseJSONResponse(t, rr, &resp)
		assert.Equal(t, tc.User.Email, resp.Email)
		assert.Equal(t, tc.Company.ID.String(), resp.CompanyID)
	})

	t.Run("no token", func(t *testing.T) {
		req := testutil.UnauthenticatedRequest(t, "GET", "/api/me", nil)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	})
}
