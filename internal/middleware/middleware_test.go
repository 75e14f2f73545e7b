package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ok(c *fiber.Ctx) error { return c.SendString("ok") }

func TestUserRateLimiter_PerUser(t *testing.T) {
	app := fiber.New()
	app.Post("/bot/:userID/message", UserRateLimiter(2, time.Minute), ok)

	status := func(user string) int {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/bot/"+user+"/message", nil))
		require.NoError(t, err)
		return resp.StatusCode
	}

	assert.Equal(t, fiber.StatusOK, status("1"))
	assert.Equal(t, fiber.StatusOK, status("1"))
	assert.Equal(t, fiber.StatusTooManyRequests, status("1"))
	assert.Equal(t, fiber.StatusOK, status("2"))
}

func TestRateLimiter_ExemptPaths(t *testing.T) {
	app := fiber.New()
	app.Use(RateLimiter(1, time.Minute, "/payment/webhook"))
	app.Post("/payment/webhook", ok)
	app.Get("/bot/help", ok)

	tests := []struct {
		name   string
		method string
		path   string
		want   []int
	}{
		{name: "limited path", method: fiber.MethodGet, path: "/bot/help", want: []int{fiber.StatusOK, fiber.StatusTooManyRequests}},
		{name: "exempt path", method: fiber.MethodPost, path: "/payment/webhook", want: []int{fiber.StatusOK, fiber.StatusOK, fiber.StatusOK}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i, want := range tt.want {
				resp, err := app.Test(httptest.NewRequest(tt.method, tt.path, nil))
				require.NoError(t, err)
				assert.Equal(t, want, resp.StatusCode, "request %d", i+1)
			}
		})
	}
}

func TestInternalSecret(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		header string
		want   int
	}{
		{name: "match", secret: "s3cret", header: "s3cret", want: fiber.StatusOK},
		{name: "mismatch", secret: "s3cret", header: "s3cres", want: fiber.StatusUnauthorized},
		{name: "missing header", secret: "s3cret", want: fiber.StatusUnauthorized},
		{name: "unconfigured", secret: "", header: "", want: fiber.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/admin", InternalSecret(tt.secret), ok)

			req := httptest.NewRequest(fiber.MethodGet, "/admin", nil)
			if tt.header != "" {
				req.Header.Set(InternalSecretHeader, tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}
