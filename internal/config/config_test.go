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

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "ledger.db", cfg.Database.Path)
	assert.Equal(t, 3, cfg.Database.TxMaxRetries)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "USDT-tron-mainnet", cfg.Payout.CryptoAsset)
	assert.Empty(t, cfg.Server.AllowedOrigins)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_PATH", "/tmp/test.db")
	t.Setenv("DB_BUSY_TIMEOUT", "250ms")
	t.Setenv("DB_TX_MAX_RETRIES", "9")
	t.Setenv("SERVER_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("MIRROR_BATCH_SIZE", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/test.db", cfg.Database.Path)
	assert.Equal(t, 250*time.Millisecond, cfg.Database.BusyTimeout)
	assert.Equal(t, 9, cfg.Database.TxMaxRetries)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 100, cfg.Mirror.BatchSize)
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("PAYOUT_POLLING_INTERVAL", "soon")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PAYOUT_POLLING_INTERVAL")
}
