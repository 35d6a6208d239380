package payment

import (
	"testing"

	"github.com/santosoadam/coursemarket/gateway/midtrans"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name  string
		state string
		fraud string
		want  Status
		known bool
	}{
		{"capture accepted", midtrans.StateCapture, midtrans.FraudAccept, Success, true},
		{"capture challenged", midtrans.StateCapture, midtrans.FraudChallenge, Pending, true},
		{"capture without fraud signal", midtrans.StateCapture, "", Pending, false},
		{"settlement", midtrans.StateSettlement, "", Success, true},
		{"cancel", midtrans.StateCancel, "", Failed, true},
		{"deny", midtrans.StateDeny, "", Failed, true},
		{"expire", midtrans.StateExpire, "", Expired, true},
		{"pending", midtrans.StatePending, "", Pending, true},
		{"unknown state", "refund", "", Pending, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, known := resolve(tt.state, tt.fraud)
			if got != tt.want {
				t.Fatalf("resolve(%q, %q) = %q, want %q", tt.state, tt.fraud, got, tt.want)
			}
			if known != tt.known {
				t.Fatalf("resolve(%q, %q) known = %v, want %v", tt.state, tt.fraud, known, tt.known)
			}
		})
	}
}

func TestStatusTerminal(t *testing.T) {
	terminal := map[Status]bool{
		Pending: false,
		Success: true,
		Failed:  true,
		Expired: true,
	}

	for s, want := range terminal {
		if got := s.Terminal(); got != want {
			t.Fatalf("%q.Terminal() = %v, want %v", s, got, want)
		}
	}
}
