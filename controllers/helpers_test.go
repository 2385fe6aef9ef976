package controllers

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/Adnan2208/EcoTech/services"
)

func doError(t *testing.T, err error) (int, map[string]any) {
	t.Helper()
	app := fiber.New()
	app.Get("/x", func(c *fiber.Ctx) error { return serviceError(c, err) })

	resp, terr := app.Test(httptest.NewRequest("GET", "/x", nil))
	require.NoError(t, terr)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestServiceErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"validation", services.ValidationError{Err: errors.New("please provide a title")}, fiber.StatusBadRequest},
		{"report not found", services.ErrReportNotFound, fiber.StatusNotFound},
		{"user not found", services.ErrUserNotFound, fiber.StatusNotFound},
		{"forbidden", services.ErrNotAuthorized, fiber.StatusForbidden},
		{"bad credentials", services.ErrInvalidCredentials, fiber.StatusUnauthorized},
		{"email taken", services.ErrEmailTaken, fiber.StatusBadRequest},
		{"upstream failure", errors.New("roboflow API error: 502 - bad gateway"), fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := doError(t, tt.err)
			require.Equal(t, tt.wantStatus, status)
			require.Equal(t, false, body["success"])
			require.NotEmpty(t, body["message"])
		})
	}
}

func TestServiceErrorPassesMessageThrough(t *testing.T) {
	_, body := doError(t, errors.New("roboflow API error: 502 - bad gateway"))
	require.Equal(t, "roboflow API error: 502 - bad gateway", body["message"])
}

func TestIntQuery(t *testing.T) {
	app := fiber.New()
	app.Get("/p", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"page":  intQuery(c, "page", 1),
			"limit": intQuery(c, "limit", 10),
		})
	})

	tests := []struct {
		url       string
		wantPage  float64
		wantLimit float64
	}{
		{"/p", 1, 10},
		{"/p?page=3&limit=25", 3, 25},
		{"/p?page=0", 1, 10},
		{"/p?page=-2&limit=abc", 1, 10},
	}
	for _, tt := range tests {
		resp, err := app.Test(httptest.NewRequest("GET", tt.url, nil))
		require.NoError(t, err)
		var body map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		resp.Body.Close()
		require.Equal(t, tt.wantPage, body["page"], tt.url)
		require.Equal(t, tt.wantLimit, body["limit"], tt.url)
	}
}
