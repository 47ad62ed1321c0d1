package http

import (
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

func TestMetrics_CountsOperationsByResult(t *testing.T) {
	f := newFixture(t, Options{})
	f.accounts.session = &models.SessionView{Token: "jwt"}

	body := map[string]string{"email": "a@x.com", "password": "secret123"}
	f.do(jsonRequest(t, http.MethodPost, "/api/users/login", body))
	f.do(jsonRequest(t, http.MethodPost, "/api/users/login", body))

	f.accounts.loginErr = common.ErrAuthentication
	f.do(jsonRequest(t, http.MethodPost, "/api/users/login", body))

	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.operations.WithLabelValues(opLogin, "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.operations.WithLabelValues(opLogin, "401")))
}

func TestMetrics_RequestDurationUsesRouteTemplate(t *testing.T) {
	f := newFixture(t, Options{})

	f.do(jsonRequest(t, http.MethodGet, "/api/users/verify/abc", nil))
	f.do(jsonRequest(t, http.MethodGet, "/api/users/verify/def", nil))

	assert.Equal(t, 1, testutil.CollectAndCount(f.metrics.duration, "gophauth_http_request_duration_seconds"))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.observe("x", http.StatusOK)
		m.observeRequest(http.MethodGet, "/", http.StatusOK, 0.1)
	})
}

func TestNewMetrics_RegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.observe(opSignup, http.StatusCreated)

	n, err := testutil.GatherAndCount(reg, "gophauth_account_operations_total")
	assert.NoError(t, err)
	assert.Equal(t, 1, n)
}
