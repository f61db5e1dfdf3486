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

package common

import (
	"fmt"
	"os"
	"path/filepath"

	"microtask-ledger-go/internal/commission"
	"microtask-ledger-go/internal/models"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"
)

// PlatformSettings is the seed file for the admin settings row
type PlatformSettings struct {
	CommissionRate decimal.Decimal
	MinAmount      decimal.Decimal
	Currencies     []models.CurrencyType
}

type settingsFile struct {
	CommissionRate string   `yaml:"commission_rate"`
	MinAmount      string   `yaml:"min_amount"`
	Currencies     []string `yaml:"currencies"`
}

// LoadSettings reads and validates a settings.yaml file. Relative paths are
// resolved against the working directory.
func LoadSettings(settingsPath string) (*PlatformSettings, error) {
	path := settingsPath
	if !filepath.IsAbs(path) {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		path = filepath.Join(wd, settingsPath)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", settingsPath, err)
	}
	return ParseSettings(data)
}

func ParseSettings(data []byte) (*PlatformSettings, error) {
	var raw settingsFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unable to parse settings: %w", err)
	}

	rate, err := decimal.NewFromString(raw.CommissionRate)
	if err != nil {
		return nil, fmt.Errorf("invalid commission_rate %q: %w", raw.CommissionRate, err)
	}
	if err := commission.ValidateRate(rate); err != nil {
		return nil, err
	}

	minAmount, err := decimal.NewFromString(raw.MinAmount)
	if err != nil {
		return nil, fmt.Errorf("invalid min_amount %q: %w", raw.MinAmount, err)
	}
	if minAmount.IsNegative() {
		return nil, fmt.Errorf("min_amount cannot be negative, got %s", minAmount)
	}

	settings := &PlatformSettings{CommissionRate: rate, MinAmount: minAmount}
	for i, c := range raw.Currencies {
		currency := models.CurrencyType(c)
		if !currency.Valid() {
			return nil, fmt.Errorf("currency at index %d is not supported: %q", i, c)
		}
		settings.Currencies = append(settings.Currencies, currency)
	}
	if len(settings.Currencies) == 0 {
		settings.Currencies = models.SupportedCurrencies
	}

	return settings, nil
}
