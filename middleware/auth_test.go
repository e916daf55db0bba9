package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func newAuthApp(t *testing.T, handlers ...fiber.Handler) *fiber.App {
	t.Helper()
	app := fiber.New()
	chain := append([]fiber.Handler{UserContext(testSecret)}, handlers...)
	chain = append(chain, func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"user_id": c.Locals("user_id")})
	})
	app.Get("/protected", chain...)
	return app
}

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func doRequest(t *testing.T, app *fiber.App, authHeader string) *http.Response {
	t.Helper()
	req := httptest.NewRequest("GET", "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func TestUserContextAcceptsValidToken(t *testing.T) {
	app := newAuthApp(t)
	token := signToken(t, testSecret, jwt.MapClaims{"id": "user-1"})

	resp := doRequest(t, app, "Bearer "+token)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestUserContextRejectsBadRequests(t *testing.T) {
	app := newAuthApp(t)

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc123"},
		{"wrong secret", "Bearer " + signToken(t, "other-secret", jwt.MapClaims{"id": "user-1"})},
		{"missing user id", "Bearer " + signToken(t, testSecret, jwt.MapClaims{"sub": "x"})},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := doRequest(t, app, tc.header)
			if resp.StatusCode != fiber.StatusUnauthorized {
				t.Errorf("expected 401, got %d", resp.StatusCode)
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	app := newAuthApp(t, RequireAdmin())

	adminToken := signToken(t, testSecret, jwt.MapClaims{"id": "admin-1", "roles": []string{"admin"}})
	resp := doRequest(t, app, "Bearer "+adminToken)
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("admin should pass, got %d", resp.StatusCode)
	}

	userToken := signToken(t, testSecret, jwt.MapClaims{"id": "user-1", "roles": []string{"player"}})
	resp = doRequest(t, app, "Bearer "+userToken)
	if resp.StatusCode != fiber.StatusForbidden {
		t.Errorf("non-admin should get 403, got %d", resp.StatusCode)
	}
}

func TestGatewayAuth(t *testing.T) {
	app := fiber.New()
	app.Use(GatewayAuth("svc-secret"))
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendString("pong") })

	cases := []struct {
		name  string
		token string
		want  int
	}{
		{"valid token", "svc-secret", fiber.StatusOK},
		{"missing token", "", fiber.StatusUnauthorized},
		{"wrong token", "nope", fiber.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/ping", nil)
			if tc.token != "" {
				req.Header.Set("X-Service-Token", tc.token)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			if resp.StatusCode != tc.want {
				t.Errorf("expected %d, got %d", tc.want, resp.StatusCode)
			}
		})
	}
}
