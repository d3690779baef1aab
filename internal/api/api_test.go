package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/api-sentinel/sentinel-gateway/internal/models"
	"github.com/api-sentinel/sentinel-gateway/internal/services/accounting"
	"github.com/api-sentinel/sentinel-gateway/internal/services/exchangerate"
	"github.com/api-sentinel/sentinel-gateway/internal/services/keys"
	"github.com/api-sentinel/sentinel-gateway/internal/services/ledger"
	"github.com/api-sentinel/sentinel-gateway/internal/services/middleware"
	"github.com/api-sentinel/sentinel-gateway/internal/services/pricing"
	"github.com/api-sentinel/sentinel-gateway/internal/services/projects"
	"github.com/api-sentinel/sentinel-gateway/internal/services/users"

	"github.com/gofiber/fiber/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupApp(t *testing.T) *fiber.App {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Project{}, &models.SentinelKey{}, &models.UsageEvent{}, &models.PricingEntry{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	keysSvc := keys.NewService(db)
	ledgerSvc := ledger.NewService(db)
	fxCache := exchangerate.NewCache(83.50)
	accountingSvc := accounting.NewService(db, keysSvc, ledgerSvc, fxCache)
	usersSvc := users.NewService(db, models.AuthConfig{SecretKey: "test-secret"})
	projectsSvc := projects.NewService(db, keysSvc)
	pricingSvc := pricing.NewService(db)

	authMiddleware := middleware.NewAuthMiddleware(usersSvc)

	authHandler := NewAuthHandler(usersSvc)
	usersHandler := NewUsersHandler(usersSvc)
	projectsHandler := NewProjectsHandler(projectsSvc, accountingSvc)
	usageHandler := NewUsageHandler(keysSvc, ledgerSvc, accountingSvc)
	pricingHandler := NewPricingHandler(pricingSvc)

	app := fiber.New()

	app.Post("/auth/signup", authHandler.Signup)
	app.Post("/auth/token", authHandler.Token)

	app.Post("/v1/usage", usageHandler.ReportUsage)
	app.Get("/keys/verify", usageHandler.VerifyKey)

	app.Get("/v1/public/pricing/:api_name", pricingHandler.GetPricing)

	usersGroup := app.Group("/users", authMiddleware.RequireAuth())
	usersGroup.Get("/me", usersHandler.GetMe)
	usersGroup.Delete("/me", usersHandler.DeleteMe)

	projectsGroup := app.Group("/projects", authMiddleware.RequireAuth())
	projectsGroup.Post("/", projectsHandler.CreateProject)
	projectsGroup.Get("/", projectsHandler.ListProjects)
	projectsGroup.Delete("/:id", projectsHandler.DeleteProject)

	app.Get("/v1/projects/:id/stats", authMiddleware.RequireAuth(), projectsHandler.GetProjectStats)

	if err := pricingSvc.SeedDefaults(t.Context()); err != nil {
		t.Fatalf("failed to seed pricing: %v", err)
	}

	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(buf)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}

	var parsed map[string]any
	raw, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(raw, &parsed)
	return resp, parsed
}

func signupAndLogin(t *testing.T, app *fiber.App, email string) string {
	t.Helper()

	resp, _ := doJSON(t, app, http.MethodPost, "/auth/signup", "", fiber.Map{
		"email": email, "password": "hunter22",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("signup: expected 201, got %d", resp.StatusCode)
	}

	resp, body := doJSON(t, app, http.MethodPost, "/auth/token", "", fiber.Map{
		"email": email, "password": "hunter22",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("token: expected 200, got %d", resp.StatusCode)
	}

	token, _ := body["access_token"].(string)
	if token == "" {
		t.Fatal("Expected access_token in response")
	}
	return token
}

func createProject(t *testing.T, app *fiber.App, token, name string) (uint, string) {
	t.Helper()

	resp, body := doJSON(t, app, http.MethodPost, "/projects/", token, fiber.Map{"name": name})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create project: expected 201, got %d", resp.StatusCode)
	}

	id, _ := body["id"].(float64)
	key, _ := body["sentinel_key"].(string)
	if id == 0 || key == "" {
		t.Fatalf("Unexpected project response %v", body)
	}
	return uint(id), key
}

func TestSignupConflict(t *testing.T) {
	app := setupApp(t)
	signupAndLogin(t, app, "alice@example.com")

	resp, _ := doJSON(t, app, http.MethodPost, "/auth/signup", "", fiber.Map{
		"email": "alice@example.com", "password": "again",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("Expected 409 for duplicate email, got %d", resp.StatusCode)
	}
}

func TestTokenBadCredentials(t *testing.T) {
	app := setupApp(t)
	signupAndLogin(t, app, "alice@example.com")

	resp, _ := doJSON(t, app, http.MethodPost, "/auth/token", "", fiber.Map{
		"email": "alice@example.com", "password": "wrong",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401 for bad password, got %d", resp.StatusCode)
	}
}

func TestUsageReportAndVerify(t *testing.T) {
	app := setupApp(t)
	token := signupAndLogin(t, app, "alice@example.com")
	_, key := createProject(t, app, token, "prod")

	for _, cost := range []float64{100, 250.5, 49.5} {
		req := httptest.NewRequest(http.MethodPost, "/v1/usage", bytes.NewReader(mustJSON(t, fiber.Map{
			"cost":           cost,
			"usage_metadata": fiber.Map{"model": "gpt-4o"},
		})))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Sentinel-Key", key)

		resp, err := app.Test(req, -1)
		if err != nil {
			t.Fatal(err)
		}
		if resp.StatusCode != http.StatusAccepted {
			t.Fatalf("Expected 202, got %d", resp.StatusCode)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/keys/verify", nil)
	req.Header.Set("X-Sentinel-Key", key)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	var details models.SentinelKeyDetails
	if err := json.NewDecoder(resp.Body).Decode(&details); err != nil {
		t.Fatal(err)
	}
	if details.CurrentUsage != 400.0 {
		t.Errorf("Expected usage 400.0, got %f", details.CurrentUsage)
	}
	if details.MonthlyBudget != models.DefaultMonthlyBudget {
		t.Errorf("Expected budget %d, got %d", models.DefaultMonthlyBudget, details.MonthlyBudget)
	}
	if details.USDToINRRate != 83.50 {
		t.Errorf("Expected rate 83.50, got %f", details.USDToINRRate)
	}
}

func TestUsageWithoutKey(t *testing.T) {
	app := setupApp(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/usage", bytes.NewReader(mustJSON(t, fiber.Map{"cost": 1})))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401 without key header, got %d", resp.StatusCode)
	}
}

func TestUsageNegativeCost(t *testing.T) {
	app := setupApp(t)
	token := signupAndLogin(t, app, "alice@example.com")
	_, key := createProject(t, app, token, "prod")

	req := httptest.NewRequest(http.MethodPost, "/v1/usage", bytes.NewReader(mustJSON(t, fiber.Map{"cost": -5})))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Sentinel-Key", key)

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for negative cost, got %d", resp.StatusCode)
	}
}

func TestProjectStatsEndpoint(t *testing.T) {
	app := setupApp(t)
	token := signupAndLogin(t, app, "alice@example.com")
	projectID, key := createProject(t, app, token, "prod")

	req := httptest.NewRequest(http.MethodPost, "/v1/usage", bytes.NewReader(mustJSON(t, fiber.Map{"cost": 42})))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Sentinel-Key", key)
	if _, err := app.Test(req, -1); err != nil {
		t.Fatal(err)
	}

	resp, body := doJSON(t, app, http.MethodGet, fmt.Sprintf("/v1/projects/%d/stats", projectID), token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if usage, _ := body["current_usage"].(float64); usage != 42 {
		t.Errorf("Expected usage 42, got %v", body["current_usage"])
	}

	// Another account cannot see the project.
	otherToken := signupAndLogin(t, app, "bob@example.com")
	resp, _ = doJSON(t, app, http.MethodGet, fmt.Sprintf("/v1/projects/%d/stats", projectID), otherToken, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 for foreign project, got %d", resp.StatusCode)
	}
}

func TestDeleteProjectRevokesKey(t *testing.T) {
	app := setupApp(t)
	token := signupAndLogin(t, app, "alice@example.com")
	projectID, key := createProject(t, app, token, "prod")

	resp, _ := doJSON(t, app, http.MethodDelete, fmt.Sprintf("/projects/%d", projectID), token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	req := httptest.NewRequest(http.MethodGet, "/keys/verify", nil)
	req.Header.Set("X-Sentinel-Key", key)
	verifyResp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if verifyResp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401 for revoked key, got %d", verifyResp.StatusCode)
	}
}

func TestPricingEndpoint(t *testing.T) {
	app := setupApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/v1/public/pricing/openai", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 for seeded provider, got %d", resp.StatusCode)
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/v1/public/pricing/unknown", nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown provider, got %d", resp.StatusCode)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	app := setupApp(t)

	resp, _ := doJSON(t, app, http.MethodGet, "/projects/", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401 without token, got %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, app, http.MethodGet, "/users/me", "garbage-token", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401 for invalid token, got %d", resp.StatusCode)
	}
}

func TestDeleteAccountCascades(t *testing.T) {
	app := setupApp(t)
	token := signupAndLogin(t, app, "alice@example.com")
	_, key := createProject(t, app, token, "prod")

	resp, _ := doJSON(t, app, http.MethodDelete, "/users/me", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	req := httptest.NewRequest(http.MethodGet, "/keys/verify", nil)
	req.Header.Set("X-Sentinel-Key", key)
	verifyResp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	if verifyResp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401 after account deletion, got %d", verifyResp.StatusCode)
	}

	// The old token no longer resolves to a user.
	resp, _ = doJSON(t, app, http.MethodGet, "/users/me", token, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401 for deleted account token, got %d", resp.StatusCode)
	}
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	buf, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return buf
}
