package enums

import "testing"

func TestOrderStatusTransitionGraph(t *testing.T) {
	allowed := map[[2]OrderStatus]bool{
		{OrderStatusPending, OrderStatusPaid}:     true,
		{OrderStatusPending, OrderStatusCanceled}: true,
		{OrderStatusPaid, OrderStatusRefunded}:    true,
		{OrderStatusPaid, OrderStatusCompleted}:   true,
	}

	for _, from := range validOrderStatuses {
		for _, to := range validOrderStatuses {
			got := from.CanTransitionTo(to)
			want := allowed[[2]OrderStatus{from, to}]
			if got != want {
				t.Errorf("transition %s→%s: got %v want %v", from, to, got, want)
			}
		}
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	terminals := []OrderStatus{OrderStatusCanceled, OrderStatusRefunded, OrderStatusCompleted}
	for _, s := range terminals {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	if OrderStatusPending.IsTerminal() || OrderStatusPaid.IsTerminal() {
		t.Errorf("pending and paid must not be terminal")
	}
	if OrderStatus("bogus").IsTerminal() {
		t.Errorf("unknown status must not report terminal")
	}
}

func TestParseOrderStatus(t *testing.T) {
	if _, err := ParseOrderStatus("paid"); err != nil {
		t.Fatalf("paid should parse: %v", err)
	}
	if _, err := ParseOrderStatus("shipped"); err == nil {
		t.Fatalf("unknown status should not parse")
	}
}
