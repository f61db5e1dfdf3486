/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package payout

import (
	"context"
	"errors"
	"fmt"

	"microtask-ledger-go/internal/models"
	"microtask-ledger-go/internal/prime"
)

// PrimeGateway submits crypto payouts as Coinbase Prime blockchain withdrawals
type PrimeGateway struct {
	service     *prime.Service
	portfolioId string
	walletId    string
	asset       string
}

func NewPrimeGateway(service *prime.Service, portfolioId, walletId, asset string) *PrimeGateway {
	return &PrimeGateway{
		service:     service,
		portfolioId: portfolioId,
		walletId:    walletId,
		asset:       asset,
	}
}

func (g *PrimeGateway) Submit(ctx context.Context, p models.Payout) (string, error) {
	withdrawal, err := g.service.CreateWithdrawal(ctx, prime.CreateWithdrawalParams{
		PortfolioId:        g.portfolioId,
		WalletId:           g.walletId,
		DestinationAddress: p.PaymentAddress,
		Amount:             p.Amount.StringFixed(p.CurrencyType.Precision()),
		Asset:              g.asset,
		IdempotencyKey:     p.Id,
	})
	if errors.Is(err, prime.ErrInvalidDestination) {
		return "", fmt.Errorf("%w: %v", ErrRejected, err)
	}
	if err != nil {
		return "", err
	}
	return withdrawal.ActivityId, nil
}
