package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/flowscript/internal/transpile"
)

func TestObserveTranspile(t *testing.T) {
	ok := testutil.ToFloat64(Transpiles.WithLabelValues(StatusOK))
	partial := testutil.ToFloat64(Transpiles.WithLabelValues(StatusPartial))
	failed := testutil.ToFloat64(Transpiles.WithLabelValues(StatusFailed))
	warnings := testutil.ToFloat64(Diagnostics.WithLabelValues(transpile.SeverityWarning))
	errs := testutil.ToFloat64(Diagnostics.WithLabelValues(transpile.SeverityError))

	ObserveTranspile(&transpile.Result{Stats: transpile.Stats{Duration: time.Millisecond}}, nil)
	ObserveTranspile(&transpile.Result{
		Diagnostics: []transpile.Diagnostic{
			{Severity: transpile.SeverityError},
			{Severity: transpile.SeverityWarning},
			{Severity: transpile.SeverityWarning},
		},
	}, nil)
	ObserveTranspile(nil, errors.New("boom"))

	assert.Equal(t, ok+1, testutil.ToFloat64(Transpiles.WithLabelValues(StatusOK)))
	assert.Equal(t, partial+1, testutil.ToFloat64(Transpiles.WithLabelValues(StatusPartial)))
	assert.Equal(t, failed+1, testutil.ToFloat64(Transpiles.WithLabelValues(StatusFailed)))
	assert.Equal(t, warnings+2, testutil.ToFloat64(Diagnostics.WithLabelValues(transpile.SeverityWarning)))
	assert.Equal(t, errs+1, testutil.ToFloat64(Diagnostics.WithLabelValues(transpile.SeverityError)))
}

func TestHandlerExposesCollectors(t *testing.T) {
	ScheduledJobs.Set(3)
	ObserveTranspile(&transpile.Result{}, nil)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	for _, name := range []string{
		"flowscript_transpiles_total",
		"flowscript_transpile_duration_ms",
		"flowscript_scheduled_jobs 3",
	} {
		assert.True(t, strings.Contains(body, name), name)
	}
}
