package http_handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fileledger/go-file-registry/internal/registry/config"
	"github.com/fileledger/go-file-registry/internal/registry/domain"
	"github.com/fileledger/go-file-registry/internal/registry/port"
)

type fakeRegistry struct {
	registerFn func(ctx context.Context, caller domain.Principal, in port.RegisterInput) (domain.FileID, error)
	readFn     func(ctx context.Context, caller domain.Principal, id domain.FileID) (*domain.Record, error)
	deleteFn   func(ctx context.Context, caller domain.Principal, id domain.FileID) error
	grantFn    func(ctx context.Context, caller domain.Principal, id domain.FileID, recipient domain.Principal) error
	setFeeFn   func(ctx context.Context, caller domain.Principal, rate *big.Int) error
}

func (f *fakeRegistry) Register(ctx context.Context, caller domain.Principal, in port.RegisterInput) (domain.FileID, error) {
	return f.registerFn(ctx, caller, in)
}

func (f *fakeRegistry) Delete(ctx context.Context, caller domain.Principal, id domain.FileID) error {
	return f.deleteFn(ctx, caller, id)
}

func (f *fakeRegistry) Grant(ctx context.Context, caller domain.Principal, id domain.FileID, recipient domain.Principal) error {
	return f.grantFn(ctx, caller, id, recipient)
}

func (f *fakeRegistry) Revoke(ctx context.Context, caller domain.Principal, id domain.FileID, recipient domain.Principal) error {
	return nil
}

func (f *fakeRegistry) Read(ctx context.Context, caller domain.Principal, id domain.FileID) (*domain.Record, error) {
	return f.readFn(ctx, caller, id)
}

func (f *fakeRegistry) ListOwned(ctx context.Context, caller domain.Principal) ([]domain.FileID, error) {
	return []domain.FileID{0, 2}, nil
}

func (f *fakeRegistry) ListPublic(ctx context.Context) ([]domain.FileID, error) {
	return []domain.FileID{1}, nil
}

func (f *fakeRegistry) CalculateFee(ctx context.Context, sizeBytes int64) (*big.Int, error) {
	return big.NewInt(sizeBytes * 100), nil
}

func (f *fakeRegistry) SetFeePerByte(ctx context.Context, caller domain.Principal, rate *big.Int) error {
	return f.setFeeFn(ctx, caller, rate)
}

func newTestServer(fake *fakeRegistry) *Server {
	return NewServer(config.DefaultConfig(), fake)
}

func doRequest(t *testing.T, s *Server, method, target, principal, body string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if principal != "" {
		req.Header.Set(PrincipalHeader, principal)
	}
	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("request %s %s: %v", method, target, err)
	}
	return resp
}

func TestHandleRegister(t *testing.T) {
	var gotCaller domain.Principal
	var gotIn port.RegisterInput
	fake := &fakeRegistry{
		registerFn: func(ctx context.Context, caller domain.Principal, in port.RegisterInput) (domain.FileID, error) {
			gotCaller = caller
			gotIn = in
			return 7, nil
		},
	}
	s := newTestServer(fake)

	body := `{"name":"a.txt","mime_type":"text/plain","size_bytes":1000,"content_address":"Qma","is_public":true,"paid_amount":"150000"}`
	resp := doRequest(t, s, http.MethodPost, "/files", "0xB0B", body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	if gotCaller != "0xB0B" {
		t.Fatalf("caller = %s, want 0xB0B", gotCaller)
	}
	if gotIn.Paid.Cmp(big.NewInt(150000)) != 0 {
		t.Fatalf("paid = %s, want 150000", gotIn.Paid)
	}
	if gotIn.SizeBytes != 1000 || !gotIn.IsPublic || gotIn.Name != "a.txt" {
		t.Fatalf("input not decoded: %+v", gotIn)
	}

	var out struct {
		ID uint64 `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.ID != 7 {
		t.Fatalf("id = %d, want 7", out.ID)
	}
}

func TestHandleRegister_RequiresPrincipal(t *testing.T) {
	s := newTestServer(&fakeRegistry{})

	resp := doRequest(t, s, http.MethodPost, "/files", "", `{"name":"a"}`)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestHandleRegister_InsufficientPayment(t *testing.T) {
	fake := &fakeRegistry{
		registerFn: func(ctx context.Context, caller domain.Principal, in port.RegisterInput) (domain.FileID, error) {
			return 0, fmt.Errorf("register: %w", domain.ErrInsufficientPayment)
		},
	}
	s := newTestServer(fake)

	resp := doRequest(t, s, http.MethodPost, "/files", "0xB0B", `{"size_bytes":1000,"paid_amount":"1"}`)
	if resp.StatusCode != http.StatusPaymentRequired {
		t.Fatalf("status = %d, want 402", resp.StatusCode)
	}
}

func TestHandleRead_ErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"not found", domain.ErrNotFound, http.StatusNotFound},
		{"forbidden", domain.ErrForbidden, http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fake := &fakeRegistry{
				readFn: func(ctx context.Context, caller domain.Principal, id domain.FileID) (*domain.Record, error) {
					return nil, fmt.Errorf("read: %w", tc.err)
				},
			}
			s := newTestServer(fake)
			resp := doRequest(t, s, http.MethodGet, "/files/3", "0xB0B", "")
			if resp.StatusCode != tc.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.wantStatus)
			}
		})
	}
}

func TestHandleRead_InvalidID(t *testing.T) {
	s := newTestServer(&fakeRegistry{})

	resp := doRequest(t, s, http.MethodGet, "/files/abc", "", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestHandleDelete_AlreadyDeletedMapsToGone(t *testing.T) {
	fake := &fakeRegistry{
		deleteFn: func(ctx context.Context, caller domain.Principal, id domain.FileID) error {
			return fmt.Errorf("delete: %w", domain.ErrAlreadyDeleted)
		},
	}
	s := newTestServer(fake)

	resp := doRequest(t, s, http.MethodDelete, "/files/3", "0xB0B", "")
	if resp.StatusCode != http.StatusGone {
		t.Fatalf("status = %d, want 410", resp.StatusCode)
	}
}

func TestHandleGrant_InvalidRecipient(t *testing.T) {
	fake := &fakeRegistry{
		grantFn: func(ctx context.Context, caller domain.Principal, id domain.FileID, recipient domain.Principal) error {
			return fmt.Errorf("grant: %w", domain.ErrInvalidRecipient)
		},
	}
	s := newTestServer(fake)

	resp := doRequest(t, s, http.MethodPost, "/files/3/grants", "0xB0B", `{"recipient":""}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestHandleFee(t *testing.T) {
	s := newTestServer(&fakeRegistry{})

	resp := doRequest(t, s, http.MethodGet, "/fee?size_bytes=1000", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var out struct {
		Fee string `json:"fee"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Fee != "100000" {
		t.Fatalf("fee = %s, want 100000", out.Fee)
	}

	resp = doRequest(t, s, http.MethodGet, "/fee?size_bytes=-1", "", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestHandleSetFee_NonAdmin(t *testing.T) {
	fake := &fakeRegistry{
		setFeeFn: func(ctx context.Context, caller domain.Principal, rate *big.Int) error {
			return fmt.Errorf("set fee: %w", domain.ErrUnauthorized)
		},
	}
	s := newTestServer(fake)

	resp := doRequest(t, s, http.MethodPut, "/admin/fee", "0xB0B", `{"fee_per_byte":"250"}`)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
}

func TestHandleListPublic(t *testing.T) {
	s := newTestServer(&fakeRegistry{})

	resp := doRequest(t, s, http.MethodGet, "/public", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var out struct {
		IDs []uint64 `json:"ids"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(out.IDs) != 1 || out.IDs[0] != 1 {
		t.Fatalf("ids = %v, want [1]", out.IDs)
	}
}
