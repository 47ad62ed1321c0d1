package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
)

// ---- fakes ----

type fakeAccounts struct {
	signupView *models.AccountView
	signupErr  error
	gotEmail   string
	gotPass    string

	session  *models.SessionView
	loginErr error

	logoutID  string
	logoutErr error

	subIdentity *models.Identity
	subErr      error
	gotTier     models.SubscriptionTier

	verifyErr   error
	gotToken    string
	resendErr   error
	resendEmail string
}

func (f *fakeAccounts) Signup(_ context.Context, email, password string) (*models.AccountView, error) {
	f.gotEmail, f.gotPass = email, password
	return f.signupView, f.signupErr
}

func (f *fakeAccounts) Login(_ context.Context, email, password string) (*models.SessionView, error) {
	f.gotEmail, f.gotPass = email, password
	return f.session, f.loginErr
}

func (f *fakeAccounts) Logout(_ context.Context, accountID string) error {
	f.logoutID = accountID
	return f.logoutErr
}

func (f *fakeAccounts) Current(identity models.Identity) models.Identity { return identity }

func (f *fakeAccounts) UpdateSubscription(_ context.Context, _ string, tier models.SubscriptionTier) (*models.Identity, error) {
	f.gotTier = tier
	return f.subIdentity, f.subErr
}

func (f *fakeAccounts) VerifyEmail(_ context.Context, token string) error {
	f.gotToken = token
	return f.verifyErr
}

func (f *fakeAccounts) ResendVerification(_ context.Context, email string) error {
	f.resendEmail = email
	return f.resendErr
}

// fakeGate accepts exactly one token.
type fakeGate struct {
	token    string
	identity *models.Identity
	err      error
}

func (g *fakeGate) Authenticate(_ context.Context, raw string) (*models.Identity, error) {
	if g.err != nil {
		return nil, g.err
	}
	if raw == "" || raw != g.token {
		return nil, common.ErrUnauthenticated
	}
	return g.identity, nil
}

type fakeAvatars struct {
	got      *services.Upload
	existed  bool
	url      string
	err      error
	identity *models.Identity
}

func (a *fakeAvatars) Update(_ context.Context, identity *models.Identity, up *services.Upload) (string, error) {
	a.identity = identity
	a.got = up
	if up == nil {
		return "", a.errOr(errNoUpload)
	}
	a.existed = fileExists(up.TempPath)
	return a.url, a.err
}

func (a *fakeAvatars) errOr(def error) error {
	if a.err != nil {
		return a.err
	}
	return def
}

var errNoUpload = fmt.Errorf("%w: no file uploaded", common.ErrValidation)

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ---- fixture ----

const testToken = "good-token"

var testIdentity = &models.Identity{ID: "acc-1", Email: "a@x.com", Subscription: models.TierStarter}

type fixture struct {
	accounts *fakeAccounts
	gate     *fakeGate
	avatars  *fakeAvatars
	reg      *prometheus.Registry
	metrics  *Metrics
	server   *HTTPServer
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	if opts.GinMode == "" {
		opts.GinMode = "test"
	}
	if opts.UploadDir == "" {
		opts.UploadDir = t.TempDir()
	}
	reg := prometheus.NewRegistry()
	f := &fixture{
		accounts: &fakeAccounts{},
		gate:     &fakeGate{token: testToken, identity: testIdentity},
		avatars:  &fakeAvatars{},
		reg:      reg,
		metrics:  NewMetrics(reg),
	}
	f.server = NewHTTPServer(opts, logging.Nop{}, f.accounts, f.gate, f.avatars, f.metrics)
	return f
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func authorized(req *http.Request) *http.Request {
	req.Header.Set(common.AuthorizationHeaderName, common.BearerScheme+" "+testToken)
	return req
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return out
}
