package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestHelpersCount(t *testing.T) {
	MustRegister()
	MustRegister()

	before := testutil.ToFloat64(paymentsTotal.WithLabelValues("approved", "renewal"))
	IncPayment(" Approved ", true)
	if got := testutil.ToFloat64(paymentsTotal.WithLabelValues("approved", "renewal")); got != before+1 {
		t.Errorf("payments approved/renewal = %v, want %v", got, before+1)
	}

	AddSweepRows("expire", 3)
	if got := testutil.ToFloat64(sweepRows.WithLabelValues("expire")); got < 3 {
		t.Errorf("sweep expire rows = %v, want >= 3", got)
	}

	IncIPRegistration("web", "ok")
	if got := testutil.ToFloat64(ipRegistrations.WithLabelValues("web", "ok")); got != 1 {
		t.Errorf("ip registrations web/ok = %v, want 1", got)
	}
}
