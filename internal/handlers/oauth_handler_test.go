package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/khanghh/tokend/internal/issuer"
	"github.com/khanghh/tokend/internal/tokens"
	"github.com/khanghh/tokend/internal/verifier"
)

type staticVerifier struct {
	password string
}

func (v *staticVerifier) Authenticate(ctx context.Context, username string, password string) (*verifier.Identity, error) {
	if password != v.password {
		return nil, verifier.ErrInvalidCredentials
	}
	return &verifier.Identity{Username: username}, nil
}

func (v *staticVerifier) GroupsOf(ctx context.Context, username string) ([]string, error) {
	return nil, verifier.ErrGroupsUnsupported
}

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	issuerService := issuer.NewService(
		issuer.Config{DefaultTTL: time.Hour},
		&staticVerifier{password: "secret"},
		tokens.NewMemStore(),
		issuer.NewKeyLocker(),
	)
	handler := NewOAuthHandler(issuerService)

	app := fiber.New()
	app.Post("/oauth/token", handler.PostToken)
	app.Get("/oauth/checktoken", handler.GetCheckToken)
	app.Delete("/oauth/token", handler.DeleteToken)
	return app
}

func postForm(t *testing.T, app *fiber.App, path string, form url.Values) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var body T
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	return body
}

func TestPostToken(t *testing.T) {
	app := newTestApp(t)

	resp := postForm(t, app, "/oauth/token", url.Values{
		"grant_type": {"password"},
		"username":   {"alice"},
		"password":   {"secret"},
		"scope":      {"read"},
		"expires_in": {"3600"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	grant := decodeBody[issuer.Grant](t, resp)
	if grant.AccessToken == "" {
		t.Error("empty access_token")
	}
	if grant.TokenType != "bearer" {
		t.Errorf("token_type = %q, want bearer", grant.TokenType)
	}
	if grant.Scope != "read" || grant.ExpiresIn != 3600 {
		t.Errorf("unexpected grant: %+v", grant)
	}
}

func TestPostTokenInvalidGrant(t *testing.T) {
	app := newTestApp(t)

	resp := postForm(t, app, "/oauth/token", url.Values{
		"grant_type": {"password"},
		"username":   {"bob"},
		"password":   {"wrongpass"},
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	body := decodeBody[ErrorResponse](t, resp)
	if body.Error != "invalid_grant" {
		t.Errorf("error = %q, want invalid_grant", body.Error)
	}
}

func TestPostTokenUnsupportedGrantType(t *testing.T) {
	app := newTestApp(t)

	resp := postForm(t, app, "/oauth/token", url.Values{
		"grant_type": {"authorization_code"},
		"username":   {"alice"},
		"password":   {"secret"},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	body := decodeBody[ErrorResponse](t, resp)
	if body.Error != "unsupported_grant_type" {
		t.Errorf("error = %q, want unsupported_grant_type", body.Error)
	}
}

func TestCheckToken(t *testing.T) {
	app := newTestApp(t)

	resp := postForm(t, app, "/oauth/token", url.Values{
		"grant_type": {"password"},
		"username":   {"alice"},
		"password":   {"secret"},
		"scope":      {"read"},
	})
	grant := decodeBody[issuer.Grant](t, resp)

	req := httptest.NewRequest(http.MethodGet, "/oauth/checktoken?access_token="+url.QueryEscape(grant.AccessToken), nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body := decodeBody[CheckTokenResponse](t, resp)
	if body.Username != "alice" || body.Scope != "read" {
		t.Errorf("unexpected response: %+v", body)
	}

	req = httptest.NewRequest(http.MethodGet, "/oauth/checktoken?access_token=unknown", nil)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestDeleteToken(t *testing.T) {
	app := newTestApp(t)

	resp := postForm(t, app, "/oauth/token", url.Values{
		"grant_type": {"password"},
		"username":   {"alice"},
		"password":   {"secret"},
	})
	grant := decodeBody[issuer.Grant](t, resp)

	form := url.Values{"access_token": {grant.AccessToken}}
	req := httptest.NewRequest(http.MethodDelete, "/oauth/token", strings.NewReader(form.Encode()))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}

	req = httptest.NewRequest(http.MethodGet, "/oauth/checktoken?access_token="+url.QueryEscape(grant.AccessToken), nil)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("revoked token still valid, status = %d", resp.StatusCode)
	}
}
