// =============================
// File: internal/dex/pumpswap/pool.go
// =============================
package pumpswap

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpswap-engine/internal/blockchain"
)

////////////////////////////////////////////////////////////////////////////////
// Интерфейс и конструкторы
////////////////////////////////////////////////////////////////////////////////

// PoolManagerInterface определяет набор основных методов для работы с пулами.
type PoolManagerInterface interface {
	FindPool(ctx context.Context, tokenMint solana.PublicKey) (*PoolInfo, error)
	FindPoolWithRetry(ctx context.Context, tokenMint solana.PublicKey, maxRetries int, retryDelay time.Duration) (*PoolInfo, error)
	FetchPoolInfo(ctx context.Context, poolAddress solana.PublicKey) (*PoolInfo, error)
	GlobalConfig(ctx context.Context) (*GlobalConfig, error)
}

// PoolManager отвечает за операции с пулами PumpSwap.
type PoolManager struct {
	client     blockchain.Client
	logger     *zap.Logger
	programID  solana.PublicKey
	maxRetries int
	retryDelay time.Duration

	// кеш глобальной конфигурации; состояние самих пулов не кешируется,
	// каждая сделка читает свежие резервы
	cfgOnce sync.Once
	cfg     *GlobalConfig
	cfgErr  error
}

// PoolManagerOptions содержит опции для создания нового PoolManager.
type PoolManagerOptions struct {
	MaxRetries int
	RetryDelay time.Duration
	ProgramID  solana.PublicKey
}

// DefaultPoolManagerOptions возвращает настройки по умолчанию.
func DefaultPoolManagerOptions() PoolManagerOptions {
	return PoolManagerOptions{
		MaxRetries: 3,
		RetryDelay: time.Second,
		ProgramID:  PumpSwapProgramID,
	}
}

// NewPoolManager создаёт новый PoolManager с заданными опциями.
func NewPoolManager(client blockchain.Client, logger *zap.Logger, opts ...PoolManagerOptions) *PoolManager {
	var options PoolManagerOptions
	if len(opts) > 0 {
		options = opts[0]
	} else {
		options = DefaultPoolManagerOptions()
	}

	logger.Info("Создание нового PoolManager",
		zap.String("program_id", options.ProgramID.String()),
		zap.Int("max_retries", options.MaxRetries),
		zap.Duration("retry_delay", options.RetryDelay))

	return &PoolManager{
		client:     client,
		logger:     logger.Named("pool_manager"),
		programID:  options.ProgramID,
		maxRetries: options.MaxRetries,
		retryDelay: options.RetryDelay,
	}
}

// GlobalConfig возвращает (и кеширует) глобальную конфигурацию программы.
func (pm *PoolManager) GlobalConfig(ctx context.Context) (*GlobalConfig, error) {
	pm.cfgOnce.Do(func() {
		pm.cfg, pm.cfgErr = pm.fetchGlobalConfig(ctx)
	})
	return pm.cfg, pm.cfgErr
}

////////////////////////////////////////////////////////////////////////////////
// Вспомогательные функции
////////////////////////////////////////////////////////////////////////////////

// getAccountBinaryData retrieves binary data for a single account with a timeout.
func (pm *PoolManager) getAccountBinaryData(ctx context.Context, pubkey solana.PublicKey) ([]byte, error) {
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	accountInfo, err := pm.client.GetAccountInfo(cctx, pubkey)
	if err != nil {
		pm.logger.Error("GetAccountInfo failed", zap.String("account", pubkey.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to get account info for %s: %w", pubkey.String(), err)
	}
	if accountInfo == nil || accountInfo.Value == nil {
		return nil, fmt.Errorf("account not found: %s", pubkey.String())
	}

	return accountInfo.Value.Data.GetBinary(), nil
}

// getAccountBinaryDataMultiple retrieves binary data for multiple accounts with a timeout.
func (pm *PoolManager) getAccountBinaryDataMultiple(ctx context.Context, accounts []solana.PublicKey) ([][]byte, error) {
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	resp, err := pm.client.GetMultipleAccounts(cctx, accounts)
	if err != nil {
		pm.logger.Error("GetMultipleAccounts failed", zap.Error(err))
		return nil, fmt.Errorf("failed to get multiple accounts info: %w", err)
	}

	data := make([][]byte, len(accounts))
	for i, info := range resp.Value {
		if info != nil {
			data[i] = info.Data.GetBinary()
		}
	}
	return data, nil
}

// parseTokenAccountAmount извлекает баланс из бинарных данных токен-аккаунта.
// Короткие или отсутствующие данные считаются ошибкой, а не нулевым балансом.
func parseTokenAccountAmount(data []byte) (uint64, error) {
	if len(data) < int(TokenAccountAmountOffset+TokenAccountAmountSize) {
		return 0, fmt.Errorf("token account data too short: %d bytes", len(data))
	}
	return binary.LittleEndian.Uint64(data[TokenAccountAmountOffset : TokenAccountAmountOffset+TokenAccountAmountSize]), nil
}

////////////////////////////////////////////////////////////////////////////////
// Основные методы для работы с пулами
////////////////////////////////////////////////////////////////////////////////

// FindPool ищет пул для пары (token, WSOL). Порядок операндов внутри
// аккаунта пула заранее неизвестен, поэтому поиск идёт последовательно:
// сначала token в base-слоте, затем WSOL в base-слоте. Первый непустой
// результат выигрывает. Стоимость здесь определяется сетевой задержкой,
// и большинство токенов размещены в доминирующем порядке, так что
// параллелить два скана нет смысла.
func (pm *PoolManager) FindPool(ctx context.Context, tokenMint solana.PublicKey) (*PoolInfo, error) {
	orderings := []MintOrdering{OrderingBaseFirst, OrderingQuoteFirst}

	for _, ordering := range orderings {
		baseMint, quoteMint := tokenMint, WSOLMint
		if ordering == OrderingQuoteFirst {
			baseMint, quoteMint = WSOLMint, tokenMint
		}

		pool, err := pm.findPoolByProgramAccounts(ctx, baseMint, quoteMint)
		if err != nil {
			pm.logger.Debug("Поиск пула не дал результата",
				zap.String("token_mint", tokenMint.String()),
				zap.Int("ordering", int(ordering)),
				zap.Error(err))
			continue
		}
		return pool, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrPoolNotFound, tokenMint.String())
}

// findPoolByProgramAccounts ищет пул по паре mint'ов с минимальным числом RPC.
func (pm *PoolManager) findPoolByProgramAccounts(ctx context.Context, baseMint, quoteMint solana.PublicKey) (*PoolInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := &rpc.GetProgramAccountsOpts{
		Commitment: rpc.CommitmentConfirmed,
		Encoding:   solana.EncodingBase64,
		Filters: []rpc.RPCFilter{
			{Memcmp: &rpc.RPCFilterMemcmp{Offset: 0, Bytes: PoolDiscriminator}},
			{Memcmp: &rpc.RPCFilterMemcmp{Offset: PoolBaseMintOffset, Bytes: baseMint.Bytes()}},
			{Memcmp: &rpc.RPCFilterMemcmp{Offset: PoolQuoteMintOffset, Bytes: quoteMint.Bytes()}},
		},
	}

	accounts, err := pm.client.GetProgramAccountsWithOpts(ctx, pm.programID, opts)
	if err != nil {
		return nil, fmt.Errorf("GetProgramAccountsWithOpts: %w", err)
	}
	if len(accounts) == 0 {
		return nil, fmt.Errorf("no program accounts match %s/%s", baseMint, quoteMint)
	}

	// --- получаем весь бинарный контент пулов одним запросом ---
	pubkeys := make([]solana.PublicKey, len(accounts))
	for i, acc := range accounts {
		pubkeys[i] = acc.Pubkey
	}

	poolsRaw, err := pm.getAccountBinaryDataMultiple(ctx, pubkeys)
	if err != nil {
		return nil, err
	}

	cfg, err := pm.GlobalConfig(ctx)
	if err != nil {
		return nil, err
	}

	// перебираем кандидатов
	for i, raw := range poolsRaw {
		pool, err := ParsePool(raw)
		if err != nil {
			continue
		}

		// резервы токен-аккаунтов (два за один запрос)
		baseRes, quoteRes, err := pm.fetchReserves(ctx, pool)
		if err != nil {
			pm.logger.Warn("Не удалось прочитать резервы кандидата",
				zap.String("pool", pubkeys[i].String()), zap.Error(err))
			continue
		}
		if baseRes == 0 || quoteRes == 0 {
			continue
		}

		return buildPoolInfo(pubkeys[i], pool, baseRes, quoteRes, cfg), nil
	}

	return nil, fmt.Errorf("all candidate pools have zero liquidity for %s/%s", baseMint, quoteMint)
}

// fetchReserves читает живые балансы обоих токен-аккаунтов пула.
func (pm *PoolManager) fetchReserves(ctx context.Context, pool *Pool) (uint64, uint64, error) {
	tokens := []solana.PublicKey{pool.PoolBaseTokenAccount, pool.PoolQuoteTokenAccount}
	raw, err := pm.getAccountBinaryDataMultiple(ctx, tokens)
	if err != nil {
		return 0, 0, err
	}
	baseRes, err := parseTokenAccountAmount(raw[0])
	if err != nil {
		return 0, 0, &BalanceFetchError{Account: pool.PoolBaseTokenAccount.String(), Err: err}
	}
	quoteRes, err := parseTokenAccountAmount(raw[1])
	if err != nil {
		return 0, 0, &BalanceFetchError{Account: pool.PoolQuoteTokenAccount.String(), Err: err}
	}
	return baseRes, quoteRes, nil
}

func buildPoolInfo(address solana.PublicKey, pool *Pool, baseRes, quoteRes uint64, cfg *GlobalConfig) *PoolInfo {
	return &PoolInfo{
		Address:               address,
		BaseMint:              pool.BaseMint,
		QuoteMint:             pool.QuoteMint,
		BaseReserves:          baseRes,
		QuoteReserves:         quoteRes,
		LPSupply:              pool.LPSupply,
		FeesBasisPoints:       cfg.LPFeeBasisPoints,
		ProtocolFeeBPS:        cfg.ProtocolFeeBasisPoints,
		LPMint:                pool.LPMint,
		PoolBaseTokenAccount:  pool.PoolBaseTokenAccount,
		PoolQuoteTokenAccount: pool.PoolQuoteTokenAccount,
		CoinCreator:           pool.CoinCreator,
		Orientation:           pool.Orientation(),
	}
}

// FetchPoolInfo получает полную информацию о пуле по его адресу.
func (pm *PoolManager) FetchPoolInfo(ctx context.Context, poolAddress solana.PublicKey) (*PoolInfo, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	data, err := pm.getAccountBinaryData(timeoutCtx, poolAddress)
	if err != nil {
		pm.logger.Error("Не удалось получить данные пула", zap.String("pool_address", poolAddress.String()), zap.Error(err))
		return nil, err
	}
	pool, err := ParsePool(data)
	if err != nil {
		return nil, err
	}

	cfg, err := pm.GlobalConfig(timeoutCtx)
	if err != nil {
		pm.logger.Error("Не удалось получить глобальную конфигурацию", zap.Error(err))
		return nil, err
	}

	baseRes, quoteRes, err := pm.fetchReserves(timeoutCtx, pool)
	if err != nil {
		pm.logger.Error("Не удалось получить данные токен-аккаунтов", zap.Error(err))
		return nil, err
	}

	return buildPoolInfo(poolAddress, pool, baseRes, quoteRes, cfg), nil
}

// fetchGlobalConfig получает глобальную конфигурацию программы PumpSwap.
func (pm *PoolManager) fetchGlobalConfig(ctx context.Context) (*GlobalConfig, error) {
	globalConfig, _, err := solana.FindProgramAddress([][]byte{[]byte("global_config")}, pm.programID)
	if err != nil {
		pm.logger.Error("Не удалось вывести адрес глобальной конфигурации", zap.Error(err))
		return nil, fmt.Errorf("failed to derive global config address: %w", err)
	}

	data, err := pm.getAccountBinaryData(ctx, globalConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to get global config account: %w", err)
	}

	config, err := ParseGlobalConfig(data)
	if err != nil {
		pm.logger.Error("Не удалось разобрать глобальную конфигурацию", zap.String("global_config", globalConfig.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to parse global config: %w", err)
	}

	return config, nil
}

// FindPoolWithRetry ищет пул для токена с повторными попытками.
func (pm *PoolManager) FindPoolWithRetry(ctx context.Context, tokenMint solana.PublicKey, maxRetries int, retryDelay time.Duration) (*PoolInfo, error) {
	// Используем значения по умолчанию, если параметры не заданы
	if maxRetries <= 0 {
		maxRetries = pm.maxRetries
	}
	if retryDelay <= 0 {
		retryDelay = pm.retryDelay
	}

	backoffPolicy := backoff.NewExponentialBackOff()
	backoffPolicy.InitialInterval = retryDelay
	backoffPolicy.MaxInterval = retryDelay * 10

	notify := func(err error, duration time.Duration) {
		pm.logger.Info("Повтор попытки после ошибки", zap.Error(err), zap.Duration("backoff", duration))
	}

	operation := func() (*PoolInfo, error) {
		return pm.FindPool(ctx, tokenMint)
	}

	pool, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoffPolicy),
		backoff.WithMaxTries(uint(maxRetries)),
		backoff.WithNotify(notify))

	if err != nil {
		pm.logger.Error("Не удалось найти пул после всех попыток",
			zap.String("token_mint", tokenMint.String()), zap.Error(err))
		return nil, err
	}

	return pool, nil
}
