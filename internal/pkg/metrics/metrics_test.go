package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"escrow_wallet/internal/domain/entity"
)

func TestRegistryCounters(t *testing.T) {
	m := New()

	m.ObserveApproval("success")
	m.ObserveApproval("success")
	m.ObserveApproval("failure")
	m.ObserveRejection("non_positive")
	m.ObserveTransition(entity.StateIdle, entity.StatePrompting)
	m.ObserveReadFailure("decimals")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.approvalsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.approvalsTotal.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rejectionsTotal.WithLabelValues("non_positive")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitionsTotal.WithLabelValues("idle", "prompting")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.readFailures.WithLabelValues("decimals")))
}

func TestRegistryHandler(t *testing.T) {
	m := New()
	m.ObserveApproval("success")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, string(body), `escrow_wallet_approvals_total{result="success"} 1`)
}
