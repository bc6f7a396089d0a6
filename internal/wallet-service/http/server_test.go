package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/auction-bidding-core/internal/wallet-service/repo"
)

type fakeRepo struct {
	wallet repo.Wallet
	err    error
	calls  []string
}

func (f *fakeRepo) record(op string) (repo.Wallet, error) {
	f.calls = append(f.calls, op)
	return f.wallet, f.err
}

func (f *fakeRepo) GetOrCreateWallet(context.Context, string) (repo.Wallet, error) {
	return f.record("get")
}
func (f *fakeRepo) Deposit(context.Context, string, int64, string) (repo.Wallet, error) {
	return f.record("deposit")
}
func (f *fakeRepo) Block(context.Context, string, int64, string) (repo.Wallet, error) {
	return f.record("block")
}
func (f *fakeRepo) Unblock(context.Context, string, int64, string) (repo.Wallet, error) {
	return f.record("unblock")
}
func (f *fakeRepo) Debit(context.Context, string, int64, string) (repo.Wallet, error) {
	return f.record("debit")
}

func TestRouter(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		body   string
		err    error
		want   int
		call   string
	}{
		{"get wallet", http.MethodGet, "/wallet?customer_id=x", "", nil, http.StatusOK, "get"},
		{"get without customer", http.MethodGet, "/wallet", "", nil, http.StatusBadRequest, ""},
		{"deposit", http.MethodPost, "/wallet/deposit", `{"customer_id":"x","amount":100}`, nil, http.StatusOK, "deposit"},
		{"deposit bad json", http.MethodPost, "/wallet/deposit", `{`, nil, http.StatusBadRequest, ""},
		{"block", http.MethodPost, "/wallet/block", `{"customer_id":"x","amount":24,"reference":"lot:l1:bid:120"}`, nil, http.StatusOK, "block"},
		{"block without reference", http.MethodPost, "/wallet/block", `{"customer_id":"x","amount":24}`, nil, http.StatusBadRequest, ""},
		{"block insufficient", http.MethodPost, "/wallet/block", `{"customer_id":"x","amount":24,"reference":"r"}`, repo.ErrInsufficientAvailable, http.StatusConflict, "block"},
		{"unblock", http.MethodPost, "/wallet/unblock", `{"customer_id":"x","amount":24,"reference":"r"}`, nil, http.StatusOK, "unblock"},
		{"debit missing", http.MethodPost, "/wallet/debit", `{"customer_id":"x","amount":24,"reference":"r"}`, repo.ErrNotFound, http.StatusNotFound, "debit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeRepo{wallet: repo.Wallet{ID: "w", CustomerID: "x", Balance: 100, BlockedBalance: 24}, err: tt.err}
			srv := NewServer(zap.NewNop(), f)

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			srv.Router().ServeHTTP(rec, req)

			require.Equal(t, tt.want, rec.Code)
			if tt.call == "" {
				require.Empty(t, f.calls)
			} else {
				require.Equal(t, []string{tt.call}, f.calls)
			}
			if tt.want == http.StatusOK {
				require.Contains(t, rec.Body.String(), `"available":76`)
			}
		})
	}
}
