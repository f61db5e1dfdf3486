package formance

import (
	"context"
	"fmt"
	"strconv"

	"microtask-ledger-go/internal/models"
	"microtask-ledger-go/internal/store"

	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"go.uber.org/zap"
)

// numscriptLedgerRow moves one ledger row between two accounts.
// Sources may overdraw: local balances are authoritative.
const numscriptLedgerRow = `vars {
  asset $asset
  number $amount
  account $source
  account $destination
  string $wallet_tx_id
  string $wallet_id
  string $transaction_type
  string $reference_id
  string $amount_human
}

send [$asset $amount] (
  source = $source allowing unbounded overdraft
  destination = $destination
)

set_tx_meta("wallet_tx_id", $wallet_tx_id)
set_tx_meta("wallet_id", $wallet_id)
set_tx_meta("transaction_type", $transaction_type)
set_tx_meta("reference_id", $reference_id)
set_tx_meta("amount_human", $amount_human)
`

// Posting is a single ledger row expressed as a Formance transfer
type Posting struct {
	Reference   string
	Source      string
	Destination string
	Asset       string
	Amount      string
	Vars        map[string]string
}

func userAccount(userId string, currency models.CurrencyType) string {
	return fmt.Sprintf("users:%s:%s", userId, currency)
}

func platformAccount(kind string, currency models.CurrencyType) string {
	return fmt.Sprintf("platform:%s:%s", kind, currency)
}

// PostingFor maps a ledger row to its Formance posting. Task payments and
// transfers are written as two rows; both legs pass through the transfers
// account, which nets to zero once both are mirrored.
func PostingFor(entry store.MirrorEntry) (*Posting, error) {
	t := entry.Transaction

	asset, err := formanceAsset(t.CurrencyType)
	if err != nil {
		return nil, err
	}
	if t.Amount.IsZero() {
		return nil, fmt.Errorf("wallet transaction %d has a zero amount", t.Id)
	}

	units := t.Amount.Abs().Shift(t.CurrencyType.Precision())
	if !units.IsInteger() {
		return nil, fmt.Errorf("wallet transaction %d amount %s exceeds %s precision", t.Id, t.Amount, t.CurrencyType)
	}

	var own string
	switch t.WalletKind {
	case models.WalletKindUser:
		if entry.UserId == "" {
			return nil, fmt.Errorf("wallet transaction %d has no owning user", t.Id)
		}
		own = userAccount(entry.UserId, t.CurrencyType)
	case models.WalletKindAdmin:
		own = platformAccount("commission", t.CurrencyType)
	default:
		return nil, fmt.Errorf("wallet transaction %d has unknown wallet kind %q", t.Id, t.WalletKind)
	}

	var counterparty string
	switch t.TransactionType {
	case models.TransactionTypeDeposit, models.TransactionTypeCommission:
		counterparty = "world"
	case models.TransactionTypeWithdrawal, models.TransactionTypeWithdrawalReversal:
		counterparty = platformAccount("payouts", t.CurrencyType)
	case models.TransactionTypeTaskPayment:
		counterparty = platformAccount("transfers", t.CurrencyType)
	default:
		return nil, fmt.Errorf("wallet transaction %d has unknown type %q", t.Id, t.TransactionType)
	}

	source, destination := counterparty, own
	if t.Amount.IsNegative() {
		source, destination = own, counterparty
	}

	reference := "wallet_tx_" + strconv.FormatInt(t.Id, 10)
	return &Posting{
		Reference:   reference,
		Source:      source,
		Destination: destination,
		Asset:       asset,
		Amount:      units.BigInt().String(),
		Vars: map[string]string{
			"asset":            asset,
			"amount":           units.BigInt().String(),
			"source":           source,
			"destination":      destination,
			"wallet_tx_id":     strconv.FormatInt(t.Id, 10),
			"wallet_id":        t.WalletId,
			"transaction_type": t.TransactionType,
			"reference_id":     t.ReferenceId,
			"amount_human":     t.Amount.Abs().String(),
		},
	}, nil
}

// Post records a posting. A reference conflict means the row was already
// mirrored and is reported as success.
func (s *Service) Post(ctx context.Context, p *Posting) error {
	reference := p.Reference
	_, err := s.client.Ledger.V2.CreateTransaction(ctx, operations.V2CreateTransactionRequest{
		Ledger: s.ledger,
		V2PostTransaction: shared.V2PostTransaction{
			Reference: &reference,
			Script: &shared.V2PostTransactionScript{
				Plain: numscriptLedgerRow,
				Vars:  p.Vars,
			},
		},
	})
	if err != nil {
		if isConflictError(err) {
			zap.L().Debug("Posting already recorded", zap.String("reference", p.Reference))
			return nil
		}
		return fmt.Errorf("error recording posting %s: %w", p.Reference, err)
	}

	zap.L().Debug("Posting recorded in Formance",
		zap.String("reference", p.Reference),
		zap.String("source", p.Source),
		zap.String("destination", p.Destination),
		zap.String("asset", p.Asset),
		zap.String("amount", p.Amount))
	return nil
}
