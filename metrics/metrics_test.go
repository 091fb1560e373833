package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveConversion(t *testing.T) {
	c := conversionsTotal.WithLabelValues("prediction", "ok")
	before := testutil.ToFloat64(c)
	ObserveConversion("prediction", "ok", time.Millisecond)
	if got := testutil.ToFloat64(c); got != before+1 {
		t.Errorf("counter = %v, want %v", got, before+1)
	}
}

func TestObserveHTTPGroupsStatus(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{200, "2xx"},
		{204, "2xx"},
		{304, "3xx"},
		{404, "4xx"},
		{422, "4xx"},
		{500, "5xx"},
	}
	for _, tt := range tests {
		if got := statusLabel(tt.code); got != tt.want {
			t.Errorf("statusLabel(%d) = %s, want %s", tt.code, got, tt.want)
		}
	}

	c := httpRequestsTotal.WithLabelValues("/api/convert", "4xx")
	before := testutil.ToFloat64(c)
	ObserveHTTP("/api/convert", 422)
	if got := testutil.ToFloat64(c); got != before+1 {
		t.Errorf("counter = %v, want %v", got, before+1)
	}
}

func TestSetSessions(t *testing.T) {
	SetSessions(3)
	if got := testutil.ToFloat64(activeSessions); got != 3 {
		t.Errorf("sessions = %v", got)
	}
}
