package formance

import (
	"context"
	"fmt"
	"math/big"

	"microtask-ledger-go/internal/models"

	v3 "github.com/formancehq/formance-sdk-go/v3"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// UserBalance returns the mirrored balance of a user's wallet
func (s *Service) UserBalance(ctx context.Context, userId string, currency models.CurrencyType) (decimal.Decimal, error) {
	return s.accountBalance(ctx, userAccount(userId, currency), currency)
}

// CommissionBalance returns the mirrored balance of the platform commission account
func (s *Service) CommissionBalance(ctx context.Context, currency models.CurrencyType) (decimal.Decimal, error) {
	return s.accountBalance(ctx, platformAccount("commission", currency), currency)
}

func (s *Service) accountBalance(ctx context.Context, address string, currency models.CurrencyType) (decimal.Decimal, error) {
	fAsset, err := formanceAsset(currency)
	if err != nil {
		return decimal.Zero, err
	}

	zap.L().Debug("Getting account balance from Formance",
		zap.String("address", address), zap.String("asset", fAsset))

	resp, err := s.client.Ledger.V2.GetAccount(ctx, operations.V2GetAccountRequest{
		Ledger:  s.ledger,
		Address: address,
		Expand:  v3.Pointer("volumes"),
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get account %s: %w", address, err)
	}

	bal := volumeBalance(resp.V2AccountResponse.Data.Volumes, fAsset)
	return bigIntToDecimal(bal, currency), nil
}

// volumeBalance extracts the balance for a specific asset from volumes.
func volumeBalance(vols map[string]shared.V2Volume, fAsset string) *big.Int {
	vol, ok := vols[fAsset]
	if !ok {
		return nil
	}
	if vol.Balance != nil {
		return vol.Balance
	}
	if vol.Input == nil {
		return nil
	}
	result := new(big.Int).Set(vol.Input)
	if vol.Output != nil {
		result.Sub(result, vol.Output)
	}
	return result
}

// bigIntToDecimal converts a *big.Int in smallest-unit to a human-readable decimal.
func bigIntToDecimal(raw *big.Int, currency models.CurrencyType) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -currency.Precision())
}
