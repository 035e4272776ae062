package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordOrder(t *testing.T) {
	before := testutil.ToFloat64(OrdersCreated.WithLabelValues("eat_in", "cash"))
	revenue := testutil.ToFloat64(OrderRevenue.WithLabelValues("eat_in"))

	RecordOrder("eat_in", "cash", 8.84)

	if got := testutil.ToFloat64(OrdersCreated.WithLabelValues("eat_in", "cash")); got != before+1 {
		t.Errorf("orders created = %v, want %v", got, before+1)
	}
	if got := testutil.ToFloat64(OrderRevenue.WithLabelValues("eat_in")); got-revenue < 8.83 || got-revenue > 8.85 {
		t.Errorf("revenue delta = %v, want 8.84", got-revenue)
	}
}

func TestRecordAuditWrite(t *testing.T) {
	ok := testutil.ToFloat64(AuditWrites.WithLabelValues("ok"))
	failed := testutil.ToFloat64(AuditWrites.WithLabelValues("error"))

	RecordAuditWrite(nil)
	RecordAuditWrite(errors.New("insert failed"))

	if got := testutil.ToFloat64(AuditWrites.WithLabelValues("ok")); got != ok+1 {
		t.Errorf("ok = %v, want %v", got, ok+1)
	}
	if got := testutil.ToFloat64(AuditWrites.WithLabelValues("error")); got != failed+1 {
		t.Errorf("error = %v, want %v", got, failed+1)
	}
}

func TestRecordAPIRequest(t *testing.T) {
	RecordAPIRequest("POST", "/orders", "201", 15*time.Millisecond)
	if got := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("POST", "/orders", "201")); got < 1 {
		t.Errorf("requests = %v", got)
	}
}

func TestMetricsLint(t *testing.T) {
	problems, err := testutil.GatherAndLint(prometheus.DefaultGatherer)
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, p := range problems {
		if len(p.Metric) > 6 && p.Metric[:7] == "bakery_" {
			t.Errorf("lint %s: %s", p.Metric, p.Text)
		}
	}
}
