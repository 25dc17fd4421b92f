package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/waseembabar1113-crypto/Treasure-money-backend/internal/domain"
)

type mockService struct {
	recorded  []domain.SettlementEvent
	failures  int
	callCount int
}

func (m *mockService) CreateAccount(ctx context.Context, req domain.CreateAccountRequest) (*domain.Account, error) {
	return nil, nil
}
func (m *mockService) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	return nil, nil
}
func (m *mockService) GetBalance(ctx context.Context, accountID string) (int64, error) {
	return 0, nil
}
func (m *mockService) CreateDepositIntent(ctx context.Context, req domain.CreateDepositRequest) (*domain.DepositIntent, error) {
	return nil, nil
}
func (m *mockService) GetDepositIntent(ctx context.Context, id string) (*domain.DepositIntent, error) {
	return nil, nil
}
func (m *mockService) CreateWithdrawIntent(ctx context.Context, req domain.CreateWithdrawRequest) (*domain.WithdrawIntent, error) {
	return nil, nil
}
func (m *mockService) ReconcileDeposit(ctx context.Context, conf domain.DepositConfirmation) (*domain.ReconcileResult, error) {
	return nil, nil
}

func (m *mockService) RecordSettlement(ctx context.Context, event domain.SettlementEvent) error {
	m.callCount++
	if m.callCount <= m.failures {
		return fmt.Errorf("%w: connection reset", domain.ErrStorage)
	}
	m.recorded = append(m.recorded, event)
	return nil
}

func TestHandleSettlement(t *testing.T) {
	svc := &mockService{}
	w := &JournalWorker{svc: svc}

	event := domain.SettlementEvent{
		DepositID: "d-1",
		AccountID: "a-1",
		Coins:     500,
		Status:    domain.DepositApproved,
	}
	payload, _ := json.Marshal(event)

	w.handleSettlement(context.Background(), payload)

	if len(svc.recorded) != 1 {
		t.Fatalf("recorded %d events, want 1", len(svc.recorded))
	}
	if svc.recorded[0].DepositID != "d-1" {
		t.Fatalf("recorded deposit id = %q", svc.recorded[0].DepositID)
	}
}

func TestHandleSettlementRetriesStorageErrors(t *testing.T) {
	svc := &mockService{failures: 2}
	w := &JournalWorker{svc: svc}

	event := domain.SettlementEvent{DepositID: "d-2", AccountID: "a-1"}
	payload, _ := json.Marshal(event)

	w.handleSettlement(context.Background(), payload)

	if svc.callCount != 3 {
		t.Fatalf("call count = %d, want 3 (two transient failures, one success)", svc.callCount)
	}
	if len(svc.recorded) != 1 {
		t.Fatalf("recorded %d events, want 1", len(svc.recorded))
	}
}

func TestHandleSettlementBadPayload(t *testing.T) {
	svc := &mockService{}
	w := &JournalWorker{svc: svc}

	w.handleSettlement(context.Background(), []byte("not json"))

	if svc.callCount != 0 {
		t.Fatal("malformed payload must not reach the service")
	}
}
