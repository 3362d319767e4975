package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordHelpers(t *testing.T) {
	before := testutil.ToFloat64(DefaultMetrics.Rejections.WithLabelValues("blacklist"))
	RecordRejection("blacklist")
	assert.Equal(t, before+1, testutil.ToFloat64(DefaultMetrics.Rejections.WithLabelValues("blacklist")))

	okBefore := testutil.ToFloat64(DefaultMetrics.AccountAttempts.WithLabelValues("success"))
	failBefore := testutil.ToFloat64(DefaultMetrics.AccountAttempts.WithLabelValues("failure"))
	RecordAccountAttempt(true, 0.2)
	RecordAccountAttempt(false, 0)
	assert.Equal(t, okBefore+1, testutil.ToFloat64(DefaultMetrics.AccountAttempts.WithLabelValues("success")))
	assert.Equal(t, failBefore+1, testutil.ToFloat64(DefaultMetrics.AccountAttempts.WithLabelValues("failure")))

	SetDailySpent(1.25)
	assert.Equal(t, 1.25, testutil.ToFloat64(DefaultMetrics.DailySpentSOL))

	SetPendingApprovals(3)
	assert.Equal(t, 3.0, testutil.ToFloat64(DefaultMetrics.PendingApprovals))

	errBefore := testutil.ToFloat64(DefaultMetrics.DBQueryErrors.WithLabelValues("postgres", "insert"))
	RecordDBQuery("postgres", "insert", 0.01, errors.New("boom"))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(DefaultMetrics.DBQueryErrors.WithLabelValues("postgres", "insert")))
}

func TestHandlerExposesNamespace(t *testing.T) {
	RecordEvaluation()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "solana_sniper_matcher_evaluations_total"))
}
