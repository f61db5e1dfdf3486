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

package models

import "time"

// Config represents the application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Payout   PayoutConfig
	Mirror   MirrorConfig
	Prime    PrimeConfig
	Formance FormanceConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path             string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
	ConnMaxIdleTime  time.Duration
	PingTimeout      time.Duration
	BusyTimeout      time.Duration
	TxMaxRetries     int
	CreateDummyUsers bool
	SettingsFile     string
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Addr            string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// PayoutConfig holds payout dispatcher settings
type PayoutConfig struct {
	PollingInterval time.Duration
	BatchSize       int
	PortfolioId     string
	WalletId        string
	CryptoAsset     string
}

// MirrorConfig holds ledger mirror settings
type MirrorConfig struct {
	PollingInterval time.Duration
	BatchSize       int
}

// PrimeConfig holds Coinbase Prime API credentials used by the payout dispatcher
type PrimeConfig struct {
	AccessKey  string
	Passphrase string
	SigningKey string
}

// FormanceConfig holds the Formance Stack connection used by the ledger mirror
type FormanceConfig struct {
	StackURL     string
	ClientID     string
	ClientSecret string
	LedgerName   string
}
