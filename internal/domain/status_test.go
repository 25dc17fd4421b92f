package domain

import (
	"errors"
	"testing"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		name    string
		from    DepositStatus
		to      DepositStatus
		wantErr bool
	}{
		{"initiated to approved", DepositInitiated, DepositApproved, false},
		{"initiated to failed", DepositInitiated, DepositFailed, false},
		{"approved re-entry", DepositApproved, DepositApproved, false},
		{"failed re-entry", DepositFailed, DepositFailed, false},
		{"approved to failed", DepositApproved, DepositFailed, true},
		{"failed to approved", DepositFailed, DepositApproved, true},
		{"approved back to initiated", DepositApproved, DepositInitiated, true},
		{"initiated to initiated", DepositInitiated, DepositInitiated, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := CanTransition(tc.from, tc.to)
			if tc.wantErr && !errors.Is(err, ErrIllegalTransition) {
				t.Fatalf("CanTransition(%s, %s) = %v, want ErrIllegalTransition", tc.from, tc.to, err)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("CanTransition(%s, %s) = %v, want nil", tc.from, tc.to, err)
			}
		})
	}
}

func TestTerminal(t *testing.T) {
	if DepositInitiated.Terminal() {
		t.Fatal("initiated must not be terminal")
	}
	if !DepositApproved.Terminal() || !DepositFailed.Terminal() {
		t.Fatal("approved and failed must be terminal")
	}
}

func TestPlanReconcile(t *testing.T) {
	cases := []struct {
		name       string
		current    DepositStatus
		storedRef  string
		conf       DepositConfirmation
		wantAction ReconcileAction
		wantTarget DepositStatus
		wantErr    error
	}{
		{
			name:       "fresh success",
			current:    DepositInitiated,
			conf:       DepositConfirmation{DepositID: "d", ExternalTxRef: "t", Outcome: OutcomeSuccess},
			wantAction: ReconcileApply,
			wantTarget: DepositApproved,
		},
		{
			name:       "fresh failure",
			current:    DepositInitiated,
			conf:       DepositConfirmation{DepositID: "d", ExternalTxRef: "t", Outcome: OutcomeFailure},
			wantAction: ReconcileApply,
			wantTarget: DepositFailed,
		},
		{
			name:       "duplicate success",
			current:    DepositApproved,
			storedRef:  "t",
			conf:       DepositConfirmation{DepositID: "d", ExternalTxRef: "t", Outcome: OutcomeSuccess},
			wantAction: ReconcileNoop,
			wantTarget: DepositApproved,
		},
		{
			name:      "success after failure",
			current:   DepositFailed,
			storedRef: "t",
			conf:      DepositConfirmation{DepositID: "d", ExternalTxRef: "t2", Outcome: OutcomeSuccess},
			wantErr:   ErrConflict,
		},
		{
			name:      "failure after success",
			current:   DepositApproved,
			storedRef: "t",
			conf:      DepositConfirmation{DepositID: "d", ExternalTxRef: "t", Outcome: OutcomeFailure},
			wantErr:   ErrConflict,
		},
		{
			name:      "matching outcome, different reference",
			current:   DepositApproved,
			storedRef: "t",
			conf:      DepositConfirmation{DepositID: "d", ExternalTxRef: "other", Outcome: OutcomeSuccess},
			wantErr:   ErrConflict,
		},
		{
			name:       "matching outcome, empty incoming reference",
			current:    DepositApproved,
			storedRef:  "t",
			conf:       DepositConfirmation{DepositID: "d", Outcome: OutcomeSuccess},
			wantAction: ReconcileNoop,
			wantTarget: DepositApproved,
		},
		{
			name:    "invalid outcome",
			current: DepositInitiated,
			conf:    DepositConfirmation{DepositID: "d", Outcome: "maybe"},
			wantErr: ErrValidation,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			action, target, err := PlanReconcile(tc.current, tc.storedRef, tc.conf)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("err = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if action != tc.wantAction {
				t.Fatalf("action = %v, want %v", action, tc.wantAction)
			}
			if target != tc.wantTarget {
				t.Fatalf("target = %s, want %s", target, tc.wantTarget)
			}
		})
	}
}

func TestOutcomeDepositStatus(t *testing.T) {
	if OutcomeSuccess.DepositStatus() != DepositApproved {
		t.Fatal("success must map to approved")
	}
	if OutcomeFailure.DepositStatus() != DepositFailed {
		t.Fatal("failure must map to failed")
	}
}
