package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorCounts(t *testing.T) {
	c := NewCollector(48 * time.Hour)

	c.ShiftStarted()
	c.ShiftRejected("driver_already_on_shift")
	c.ShiftRejected("driver_already_on_shift")
	c.LocationAccepted()
	c.CleanupObserve(7)
	c.NATSSetConnected(true)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.ShiftsStarted))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.ShiftRejections.WithLabelValues("driver_already_on_shift")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.LocationsAccepted))
	assert.Equal(t, 7.0, testutil.ToFloat64(c.CleanupDeleted))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.NATSConnected))
	assert.Equal(t, 48.0, testutil.ToFloat64(c.RetentionHours))
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	c.ShiftStarted()
	c.LocationRejected("validation")
	c.LatestObserve(time.Millisecond)
	c.NATSSetConnected(false)
	c.CleanupObserve(1)
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := NewCollector(time.Hour)
	c.ShiftCompleted()

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	res, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "tracker_shifts_completed_total 1"))
}
