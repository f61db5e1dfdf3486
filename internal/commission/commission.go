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

package commission

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Places is the number of decimal places commission is rounded to
const Places = 2

var one = decimal.NewFromInt(1)

// Compute splits a gross amount into the net amount and the platform commission.
// Rounding is applied once, to the commission, so net + commission == gross exactly.
func Compute(gross, rate decimal.Decimal) (net decimal.Decimal, commission decimal.Decimal, err error) {
	if err := ValidateRate(rate); err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	if gross.IsNegative() {
		return decimal.Zero, decimal.Zero, fmt.Errorf("gross amount cannot be negative, got %s", gross.String())
	}

	commission = gross.Mul(rate).Round(Places)
	net = gross.Sub(commission)
	return net, commission, nil
}

// ValidateRate checks that a commission rate is a fraction in [0, 1]
func ValidateRate(rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(one) {
		return fmt.Errorf("commission rate must be between 0 and 1, got %s", rate.String())
	}
	return nil
}
