package prime

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"microtask-ledger-go/internal/models"

	"github.com/coinbase-samples/prime-sdk-go/client"
	"github.com/coinbase-samples/prime-sdk-go/credentials"
	"github.com/coinbase-samples/prime-sdk-go/model"
	"github.com/coinbase-samples/prime-sdk-go/portfolios"
	"github.com/coinbase-samples/prime-sdk-go/transactions"
	"github.com/coinbase-samples/prime-sdk-go/wallets"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
)

// ErrInvalidDestination is returned before any API call when a payout address cannot be used
var ErrInvalidDestination = errors.New("invalid destination address")

type Portfolio struct {
	Id   string
	Name string
}

type Wallet struct {
	Id     string
	Name   string
	Symbol string
	Type   string
}

type Withdrawal struct {
	ActivityId     string
	Asset          string
	Amount         string
	Destination    string
	IdempotencyKey string
}

type Service struct {
	client          client.RestClient
	portfoliosSvc   portfolios.PortfoliosService
	walletsSvc      wallets.WalletsService
	transactionsSvc transactions.TransactionsService
}

func NewService(cfg models.PrimeConfig) (*Service, error) {
	creds, err := loadCredentials(cfg)
	if err != nil {
		return nil, err
	}

	httpClient, err := createCustomHttpClient()
	if err != nil {
		return nil, fmt.Errorf("unable to create custom http client: %w", err)
	}

	restClient := client.NewRestClient(creds, httpClient)

	return &Service{
		client:          restClient,
		portfoliosSvc:   portfolios.NewPortfoliosService(restClient),
		walletsSvc:      wallets.NewWalletsService(restClient),
		transactionsSvc: transactions.NewTransactionsService(restClient),
	}, nil
}

func loadCredentials(cfg models.PrimeConfig) (*credentials.Credentials, error) {
	if cfg.AccessKey == "" || cfg.Passphrase == "" || cfg.SigningKey == "" {
		return nil, fmt.Errorf("missing required Prime API credentials: PRIME_ACCESS_KEY, PRIME_PASSPHRASE, PRIME_SIGNING_KEY")
	}

	return &credentials.Credentials{
		AccessKey:  cfg.AccessKey,
		Passphrase: cfg.Passphrase,
		SigningKey: cfg.SigningKey,
	}, nil
}

func createCustomHttpClient() (http.Client, error) {
	tr := &http.Transport{
		ResponseHeaderTimeout: 30 * time.Second,
		Proxy:                 http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			KeepAlive: 30 * time.Second,
			Timeout:   15 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConnsPerHost:   5,
		ExpectContinueTimeout: 5 * time.Second,
	}

	if err := http2.ConfigureTransport(tr); err != nil {
		return http.Client{}, err
	}

	return http.Client{
		Transport: tr,
		Timeout:   60 * time.Second,
	}, nil
}

func (s *Service) ListPortfolios(ctx context.Context) ([]Portfolio, error) {
	response, err := s.portfoliosSvc.ListPortfolios(ctx, &portfolios.ListPortfoliosRequest{})
	if err != nil {
		return nil, fmt.Errorf("unable to list portfolios: %w", err)
	}

	portfolioList := make([]Portfolio, len(response.Portfolios))
	for i, p := range response.Portfolios {
		portfolioList[i] = Portfolio{
			Id:   p.Id,
			Name: p.Name,
		}
	}

	return portfolioList, nil
}

func (s *Service) FindDefaultPortfolio(ctx context.Context) (*Portfolio, error) {
	portfolioList, err := s.ListPortfolios(ctx)
	if err != nil {
		return nil, err
	}

	for _, portfolio := range portfolioList {
		if portfolio.Name == "Default Portfolio" {
			return &portfolio, nil
		}
	}

	return nil, fmt.Errorf("default portfolio not found")
}

func (s *Service) ListWallets(ctx context.Context, portfolioId, walletType string, symbols []string) ([]Wallet, error) {
	request := &wallets.ListWalletsRequest{
		PortfolioId: portfolioId,
		Type:        walletType,
		Symbols:     symbols,
	}

	response, err := s.walletsSvc.ListWallets(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("unable to list wallets: %w", err)
	}

	walletList := make([]Wallet, len(response.Wallets))
	for i, w := range response.Wallets {
		walletList[i] = Wallet{
			Id:     w.Id,
			Name:   w.Name,
			Symbol: w.Symbol,
			Type:   w.Type,
		}
	}

	return walletList, nil
}

// FindPayoutWallet returns the first trading wallet holding the asset's symbol
func (s *Service) FindPayoutWallet(ctx context.Context, portfolioId, asset string) (*Wallet, error) {
	symbol, _, _ := splitAsset(asset)

	walletList, err := s.ListWallets(ctx, portfolioId, "TRADING", []string{symbol})
	if err != nil {
		return nil, err
	}
	if len(walletList) == 0 {
		return nil, fmt.Errorf("no %s trading wallet in portfolio %s", symbol, portfolioId)
	}
	return &walletList[0], nil
}

// CreateWithdrawalParams contains parameters for creating a withdrawal
type CreateWithdrawalParams struct {
	PortfolioId        string
	WalletId           string
	DestinationAddress string
	Amount             string
	Asset              string
	IdempotencyKey     string
}

// CreateWithdrawal creates a blockchain withdrawal from a wallet.
// Retrying with the same IdempotencyKey never creates a second withdrawal.
func (s *Service) CreateWithdrawal(ctx context.Context, params CreateWithdrawalParams) (*Withdrawal, error) {
	zap.L().Info("Creating withdrawal via Prime API",
		zap.String("portfolio_id", params.PortfolioId),
		zap.String("wallet_id", params.WalletId),
		zap.String("asset", params.Asset),
		zap.String("amount", params.Amount),
		zap.String("destination", params.DestinationAddress))

	symbol, networkId, networkType := splitAsset(params.Asset)
	if err := ValidateAddress(networkId, params.DestinationAddress); err != nil {
		return nil, err
	}

	blockchainAddr := &model.BlockchainAddress{
		Address: params.DestinationAddress,
	}
	if networkId != "" {
		blockchainAddr.Network = &model.NetworkDetails{
			Id:   networkId,
			Type: networkType,
		}
	}

	request := &transactions.CreateWalletWithdrawalRequest{
		PortfolioId:       params.PortfolioId,
		SourceWalletId:    params.WalletId,
		Amount:            params.Amount,
		IdempotencyKey:    params.IdempotencyKey,
		Symbol:            symbol,
		DestinationType:   "DESTINATION_BLOCKCHAIN",
		BlockchainAddress: blockchainAddr,
	}
	zap.L().Debug("Withdrawal request details",
		zap.String("portfolio_id", request.PortfolioId),
		zap.String("wallet_id", request.SourceWalletId),
		zap.String("amount", request.Amount),
		zap.String("idempotency_key", request.IdempotencyKey),
		zap.Any("blockchain_address", request.BlockchainAddress))

	response, err := s.transactionsSvc.CreateWalletWithdrawal(ctx, request)
	if err != nil {
		zap.L().Error("Failed to create withdrawal",
			zap.String("wallet_id", params.WalletId),
			zap.String("amount", params.Amount),
			zap.String("asset", params.Asset),
			zap.Error(err))
		return nil, fmt.Errorf("unable to create withdrawal: %w", err)
	}

	zap.L().Info("Withdrawal created successfully",
		zap.String("activity_id", response.ActivityId),
		zap.String("wallet_id", params.WalletId),
		zap.String("amount", params.Amount),
		zap.String("asset", params.Asset))

	return &Withdrawal{
		ActivityId:     response.ActivityId,
		Asset:          params.Asset,
		Amount:         params.Amount,
		Destination:    params.DestinationAddress,
		IdempotencyKey: params.IdempotencyKey,
	}, nil
}

// splitAsset parses "USDT-tron-mainnet" into symbol, network id and network type.
// A bare symbol leaves the network empty.
func splitAsset(asset string) (symbol, networkId, networkType string) {
	parts := strings.Split(asset, "-")
	symbol = parts[0]
	if len(parts) >= 3 {
		networkId = parts[1]
		networkType = parts[2]
	}
	return symbol, networkId, networkType
}

const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// ValidateAddress performs a format check on a destination address.
// Only tron addresses are checked; other networks are passed through.
func ValidateAddress(networkId, address string) error {
	if address == "" {
		return fmt.Errorf("%w: empty", ErrInvalidDestination)
	}
	if networkId != "tron" {
		return nil
	}

	if len(address) != 34 || address[0] != 'T' {
		return fmt.Errorf("%w: %q is not a tron address", ErrInvalidDestination, address)
	}
	for _, c := range address {
		if !strings.ContainsRune(base58Alphabet, c) {
			return fmt.Errorf("%w: %q is not a tron address", ErrInvalidDestination, address)
		}
	}
	return nil
}
