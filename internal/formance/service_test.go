package formance

import (
	"context"
	"errors"
	"math/big"
	"strconv"
	"testing"
	"time"

	"microtask-ledger-go/internal/database"
	"microtask-ledger-go/internal/models"
	"microtask-ledger-go/internal/store"

	"github.com/shopspring/decimal"
)

// ---------- Unit tests for pure helpers (no Formance stack needed) ----------

func TestFormanceAsset(t *testing.T) {
	tests := []struct {
		currency models.CurrencyType
		want     string
	}{
		{models.CurrencyUSD, "USD/2"},
		{models.CurrencyUSDTTRC20, "USDT/6"},
	}
	for _, tt := range tests {
		got, err := formanceAsset(tt.currency)
		if err != nil || got != tt.want {
			t.Errorf("formanceAsset(%q) = %q, %v, want %q", tt.currency, got, err, tt.want)
		}
	}

	if _, err := formanceAsset("EUR"); err == nil {
		t.Error("expected error for unsupported currency")
	}
}

func TestBigIntToDecimal(t *testing.T) {
	// 1_250_000 smallest units of USDT (precision 6) = 1.25
	result := bigIntToDecimal(big.NewInt(1_250_000), models.CurrencyUSDTTRC20)
	if !result.Equal(decimal.RequireFromString("1.25")) {
		t.Errorf("expected 1.25, got %s", result.String())
	}

	result = bigIntToDecimal(big.NewInt(9500), models.CurrencyUSD)
	if !result.Equal(decimal.NewFromInt(95)) {
		t.Errorf("expected 95, got %s", result.String())
	}

	if !bigIntToDecimal(nil, models.CurrencyUSD).IsZero() {
		t.Error("expected nil to map to zero")
	}
}

func TestIsConflictError(t *testing.T) {
	if isConflictError(nil) {
		t.Error("nil should not be a conflict error")
	}
	if isConflictError(errors.New("boom")) {
		t.Error("plain error should not be a conflict error")
	}
}

func row(id int64, kind, txType, amount string, currency models.CurrencyType) models.WalletTransaction {
	return models.WalletTransaction{
		Id:              id,
		WalletId:        "wallet-1",
		WalletKind:      kind,
		TransactionType: txType,
		Amount:          decimal.RequireFromString(amount),
		CurrencyType:    currency,
		ReferenceId:     "ref",
	}
}

func TestPostingFor(t *testing.T) {
	tests := []struct {
		name        string
		entry       store.MirrorEntry
		source      string
		destination string
		amount      string
	}{
		{
			name:        "deposit",
			entry:       store.MirrorEntry{Transaction: row(1, models.WalletKindUser, models.TransactionTypeDeposit, "95", models.CurrencyUSD), UserId: "alice"},
			source:      "world",
			destination: "users:alice:USD",
			amount:      "9500",
		},
		{
			name:        "commission",
			entry:       store.MirrorEntry{Transaction: row(2, models.WalletKindAdmin, models.TransactionTypeCommission, "0.617284", models.CurrencyUSDTTRC20)},
			source:      "world",
			destination: "platform:commission:USDT_TRC20",
			amount:      "617284",
		},
		{
			name:        "task payment debit",
			entry:       store.MirrorEntry{Transaction: row(3, models.WalletKindUser, models.TransactionTypeTaskPayment, "-10", models.CurrencyUSD), UserId: "alice"},
			source:      "users:alice:USD",
			destination: "platform:transfers:USD",
			amount:      "1000",
		},
		{
			name:        "task payment credit",
			entry:       store.MirrorEntry{Transaction: row(4, models.WalletKindUser, models.TransactionTypeTaskPayment, "10", models.CurrencyUSD), UserId: "bob"},
			source:      "platform:transfers:USD",
			destination: "users:bob:USD",
			amount:      "1000",
		},
		{
			name:        "user withdrawal",
			entry:       store.MirrorEntry{Transaction: row(5, models.WalletKindUser, models.TransactionTypeWithdrawal, "-30", models.CurrencyUSD), UserId: "bob"},
			source:      "users:bob:USD",
			destination: "platform:payouts:USD",
			amount:      "3000",
		},
		{
			name:        "admin withdrawal",
			entry:       store.MirrorEntry{Transaction: row(6, models.WalletKindAdmin, models.TransactionTypeWithdrawal, "-5", models.CurrencyUSD)},
			source:      "platform:commission:USD",
			destination: "platform:payouts:USD",
			amount:      "500",
		},
		{
			name:        "reversal",
			entry:       store.MirrorEntry{Transaction: row(7, models.WalletKindUser, models.TransactionTypeWithdrawalReversal, "30", models.CurrencyUSD), UserId: "bob"},
			source:      "platform:payouts:USD",
			destination: "users:bob:USD",
			amount:      "3000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := PostingFor(tt.entry)
			if err != nil {
				t.Fatalf("PostingFor failed: %v", err)
			}
			if p.Source != tt.source || p.Destination != tt.destination || p.Amount != tt.amount {
				t.Errorf("got %s -> %s (%s), want %s -> %s (%s)",
					p.Source, p.Destination, p.Amount, tt.source, tt.destination, tt.amount)
			}
			if p.Vars["source"] != p.Source || p.Vars["amount"] != p.Amount {
				t.Errorf("vars out of sync with posting: %+v", p.Vars)
			}
		})
	}
}

func TestPostingFor_Deterministic(t *testing.T) {
	entry := store.MirrorEntry{Transaction: row(42, models.WalletKindUser, models.TransactionTypeDeposit, "12.5", models.CurrencyUSD), UserId: "alice"}

	a, err := PostingFor(entry)
	if err != nil {
		t.Fatalf("PostingFor failed: %v", err)
	}
	b, _ := PostingFor(entry)
	if a.Reference != "wallet_tx_42" || a.Reference != b.Reference {
		t.Errorf("unexpected references %q and %q", a.Reference, b.Reference)
	}
}

func TestPostingFor_Errors(t *testing.T) {
	cases := []store.MirrorEntry{
		{Transaction: row(1, models.WalletKindUser, models.TransactionTypeDeposit, "0", models.CurrencyUSD), UserId: "alice"},
		{Transaction: row(2, models.WalletKindUser, models.TransactionTypeDeposit, "1.005", models.CurrencyUSD), UserId: "alice"},
		{Transaction: row(3, models.WalletKindUser, models.TransactionTypeDeposit, "1", models.CurrencyUSD)},
		{Transaction: row(4, "escrow", models.TransactionTypeDeposit, "1", models.CurrencyUSD), UserId: "alice"},
		{Transaction: row(5, models.WalletKindUser, "refund", "1", models.CurrencyUSD), UserId: "alice"},
		{Transaction: row(6, models.WalletKindUser, models.TransactionTypeDeposit, "1", "EUR"), UserId: "alice"},
	}
	for i, entry := range cases {
		if _, err := PostingFor(entry); err == nil {
			t.Errorf("case %d: expected error", i)
		}
	}
}

// ---------- Mirror against an in-memory store ----------

type fakePoster struct {
	posted  []*Posting
	failRef string
}

func (f *fakePoster) Post(_ context.Context, p *Posting) error {
	if p.Reference == f.failRef {
		return errors.New("stack unavailable")
	}
	f.posted = append(f.posted, p)
	return nil
}

func setupMirrorStore(t *testing.T) *database.Service {
	t.Helper()

	db, err := database.NewService(context.Background(), models.DatabaseConfig{
		Path:         ":memory:",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
		PingTimeout:  time.Second,
		BusyTimeout:  5 * time.Second,
		TxMaxRetries: 3,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(db.Close)

	_, err = db.Deposit(context.Background(), store.DepositParams{
		UserId:       "alice",
		CurrencyType: models.CurrencyUSD,
		NetAmount:    decimal.NewFromInt(95),
		Commission:   decimal.NewFromInt(5),
		ReferenceId:  "deposit_1",
	})
	if err != nil {
		t.Fatalf("Deposit failed: %v", err)
	}
	return db
}

func TestMirror_SyncExportsOnce(t *testing.T) {
	db := setupMirrorStore(t)
	ctx := context.Background()
	poster := &fakePoster{}
	mirror := NewMirror(db, poster, time.Hour, 10)

	n, err := mirror.Sync(ctx)
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if n != 2 || len(poster.posted) != 2 {
		t.Fatalf("expected the deposit and commission rows, got %d", n)
	}
	if poster.posted[0].Destination != "users:alice:USD" || poster.posted[1].Destination != "platform:commission:USD" {
		t.Errorf("unexpected postings: %+v %+v", poster.posted[0], poster.posted[1])
	}

	n, err = mirror.Sync(ctx)
	if err != nil || n != 0 {
		t.Fatalf("expected nothing left to mirror, got %d, %v", n, err)
	}
}

func TestMirror_StopsAtFirstFailure(t *testing.T) {
	db := setupMirrorStore(t)
	ctx := context.Background()

	entries, err := db.ListUnmirroredTransactions(ctx, 10)
	if err != nil || len(entries) != 2 {
		t.Fatalf("expected 2 unmirrored rows, got %d, %v", len(entries), err)
	}

	poster := &fakePoster{failRef: "wallet_tx_" + strconv.FormatInt(entries[0].Transaction.Id, 10)}
	n, err := NewMirror(db, poster, time.Hour, 10).Sync(ctx)
	if err == nil || n != 0 {
		t.Fatalf("expected failure before any row, got %d, %v", n, err)
	}

	remaining, _ := db.ListUnmirroredTransactions(ctx, 10)
	if len(remaining) != 2 {
		t.Errorf("expected both rows still unmirrored, got %d", len(remaining))
	}
}
