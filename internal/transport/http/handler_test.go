package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/waseembabar1113-crypto/Treasure-money-backend/internal/domain"
)

type mockService struct {
	reconcileConf *domain.DepositConfirmation
	reconcileRes  *domain.ReconcileResult
	reconcileErr  error
	account       *domain.Account
	accountErr    error
	deposit       *domain.DepositIntent
	depositErr    error
}

func (m *mockService) CreateAccount(ctx context.Context, req domain.CreateAccountRequest) (*domain.Account, error) {
	return m.account, m.accountErr
}
func (m *mockService) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	return m.account, m.accountErr
}
func (m *mockService) GetBalance(ctx context.Context, accountID string) (int64, error) {
	if m.account == nil {
		return 0, m.accountErr
	}
	return m.account.Balance, nil
}
func (m *mockService) CreateDepositIntent(ctx context.Context, req domain.CreateDepositRequest) (*domain.DepositIntent, error) {
	return m.deposit, m.depositErr
}
func (m *mockService) GetDepositIntent(ctx context.Context, id string) (*domain.DepositIntent, error) {
	return m.deposit, m.depositErr
}
func (m *mockService) CreateWithdrawIntent(ctx context.Context, req domain.CreateWithdrawRequest) (*domain.WithdrawIntent, error) {
	return nil, nil
}
func (m *mockService) ReconcileDeposit(ctx context.Context, conf domain.DepositConfirmation) (*domain.ReconcileResult, error) {
	m.reconcileConf = &conf
	return m.reconcileRes, m.reconcileErr
}
func (m *mockService) RecordSettlement(ctx context.Context, event domain.SettlementEvent) error {
	return nil
}

func newTestMux(svc *mockService) *http.ServeMux {
	mux := http.NewServeMux()
	NewHandler(svc).Register(mux)
	return mux
}

func TestCreateAccountHandler(t *testing.T) {
	svc := &mockService{account: &domain.Account{ID: "a-1", Email: "u@example.com"}}
	mux := newTestMux(svc)

	req := httptest.NewRequest(http.MethodPost, "/accounts", strings.NewReader(`{"email":"u@example.com"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateAccountHandlerBadJSON(t *testing.T) {
	mux := newTestMux(&mockService{})

	req := httptest.NewRequest(http.MethodPost, "/accounts", strings.NewReader(`{`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGetDepositNotFound(t *testing.T) {
	svc := &mockService{depositErr: fmt.Errorf("%w: deposit d-404", domain.ErrNotFound)}
	mux := newTestMux(svc)

	req := httptest.NewRequest(http.MethodGet, "/deposits/d-404", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestConfirmPaymentTranslatesPayload(t *testing.T) {
	svc := &mockService{
		reconcileRes: &domain.ReconcileResult{
			Intent:     &domain.DepositIntent{ID: "d-1", Status: domain.DepositApproved},
			NewBalance: 500,
			Applied:    true,
		},
	}
	mux := newTestMux(svc)

	body := `{"depositId":"d-1","txId":"TX-9","status":"completed","amountPKR":500,"method":"easypaisa"}`
	req := httptest.NewRequest(http.MethodPost, "/payments/confirm", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}
	if svc.reconcileConf == nil {
		t.Fatal("ReconcileDeposit was not called")
	}
	if svc.reconcileConf.DepositID != "d-1" || svc.reconcileConf.ExternalTxRef != "TX-9" {
		t.Fatalf("confirmation = %+v", svc.reconcileConf)
	}
	if svc.reconcileConf.Outcome != domain.OutcomeSuccess {
		t.Fatalf("outcome = %s, want success (completed maps to success)", svc.reconcileConf.Outcome)
	}

	var res domain.ReconcileResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if res.NewBalance != 500 {
		t.Fatalf("new balance = %d, want 500", res.NewBalance)
	}
}

func TestConfirmPaymentUnknownStatus(t *testing.T) {
	mux := newTestMux(&mockService{})

	body := `{"depositId":"d-1","txId":"TX-9","status":"maybe"}`
	req := httptest.NewRequest(http.MethodPost, "/payments/confirm", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestConfirmPaymentConflict(t *testing.T) {
	svc := &mockService{reconcileErr: fmt.Errorf("%w: deposit already failed", domain.ErrConflict)}
	mux := newTestMux(svc)

	body := `{"depositId":"d-1","txId":"TX-9","status":"success"}`
	req := httptest.NewRequest(http.MethodPost, "/payments/confirm", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestSimulatorRendersDeposit(t *testing.T) {
	svc := &mockService{deposit: &domain.DepositIntent{
		ID:        "d-1",
		AmountPKR: 500,
		Coins:     500,
		Method:    "easypaisa",
		Status:    domain.DepositInitiated,
	}}
	mux := newTestMux(svc)

	req := httptest.NewRequest(http.MethodGet, "/simulator?deposit_id=d-1", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "d-1") {
		t.Fatal("simulator page does not mention the deposit id")
	}
}

func TestSimulatorMissingID(t *testing.T) {
	mux := newTestMux(&mockService{})

	req := httptest.NewRequest(http.MethodGet, "/simulator", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestWithdrawalInsufficientFunds(t *testing.T) {
	errSvc := &withdrawErrService{err: fmt.Errorf("%w: balance 0, requested 100", domain.ErrInsufficientFunds)}
	mux := http.NewServeMux()
	NewHandler(errSvc).Register(mux)

	body := `{"account_id":"a-1","amount":100,"destination":"PK36SCBL0000001123456702"}`
	req := httptest.NewRequest(http.MethodPost, "/withdrawals", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
}

type withdrawErrService struct {
	mockService
	err error
}

func (s *withdrawErrService) CreateWithdrawIntent(ctx context.Context, req domain.CreateWithdrawRequest) (*domain.WithdrawIntent, error) {
	return nil, s.err
}
