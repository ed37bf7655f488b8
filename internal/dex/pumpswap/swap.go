// =============================
// File: internal/dex/pumpswap/swap.go
// =============================
package pumpswap

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpswap-engine/internal/blockchain"
	"github.com/rovshanmuradov/pumpswap-engine/internal/wallet"
)

// TradePayload — детали успешно исполненной сделки.
type TradePayload struct {
	Signature   solana.Signature
	SOLAmount   float64 // фактически перемещённые SOL
	TokenAmount float64 // фактически перемещённые токены
	Price       float64 // фактическая цена исполнения, SOL за токен
}

// TradeResult — итог вызова Buy/Sell. Конструируется один раз и не
// изменяется; ошибки через фасад не пробрасываются, вызывающий код
// проверяет поле Success.
type TradeResult struct {
	Success bool
	Message string
	Payload *TradePayload
}

func failedResult(format string, args ...interface{}) *TradeResult {
	return &TradeResult{Success: false, Message: fmt.Sprintf(format, args...)}
}

// DEX — фасад торгового движка PumpSwap. Оркестрирует поиск пула,
// ценообразование, escrow, сборку инструкций, жизненный цикл транзакции
// и реконсиляцию. Экземпляр безопасен для параллельных сделок: всё
// состояние сделки локально, общим остаётся только транспортный клиент.
type DEX struct {
	client      blockchain.Client
	wallet      *wallet.Wallet
	logger      *zap.Logger
	config      *Config
	poolManager PoolManagerInterface
	lifecycle   *TxLifecycle

	buySlippage  float64
	sellSlippage float64
	priorityFee  uint64 // микролампорты за вычислительную единицу

	decimalsCache sync.Map // mint → uint8
}

// DEXOptions — параметры создания фасада.
type DEXOptions struct {
	BuySlippage  float64
	SellSlippage float64
	PriorityFee  uint64
}

const DefaultSlippagePercent = 0.3

// NewDEX создаёт новый экземпляр DEX для PumpSwap.
func NewDEX(
	client blockchain.Client,
	w *wallet.Wallet,
	logger *zap.Logger,
	config *Config,
	poolManager PoolManagerInterface,
	opts DEXOptions,
) (*DEX, error) {
	if client == nil || w == nil || logger == nil || config == nil || poolManager == nil {
		return nil, fmt.Errorf("client, wallet, logger, poolManager и config не могут быть nil")
	}
	if opts.BuySlippage < 0 || opts.BuySlippage > 99 || opts.SellSlippage < 0 || opts.SellSlippage > 99 {
		return nil, fmt.Errorf("slippage must be within [0,99]")
	}

	return &DEX{
		client:      client,
		wallet:      w,
		logger:      logger.Named("pumpswap"),
		config:      config,
		poolManager: poolManager,
		lifecycle: NewTxLifecycle(client, w, logger,
			config.ConfirmRetries, time.Duration(config.ConfirmDelayMS)*time.Millisecond),
		buySlippage:  opts.BuySlippage,
		sellSlippage: opts.SellSlippage,
		priorityFee:  opts.PriorityFee,
	}, nil
}

// Buy покупает токен за указанную сумму SOL.
func (d *DEX) Buy(ctx context.Context, solAmount float64) *TradeResult {
	pool, err := d.resolvePool(ctx)
	if err != nil {
		return failedResult("pool resolution failed: %v", err)
	}

	decimals := d.tokenDecimals(ctx, pool.TokenMint())

	quote, err := ComputeBuyQuote(pool, solAmount, d.buySlippage, decimals)
	if err != nil {
		return failedResult("pricing failed: %v", err)
	}

	d.logger.Info("Параметры покупки рассчитаны",
		zap.Float64("sol_in", quote.SOLIn),
		zap.Float64("token_out", quote.TokenOut),
		zap.Float64("max_sol_spend", quote.MaxSOLSpend),
		zap.Float64("price", quote.Price),
		zap.String("orientation", pool.Orientation.String()))

	escrow, err := NewWSOLEscrow(ctx, d.client, d.wallet.PublicKey, SolToLamports(quote.MaxSOLSpend))
	if err != nil {
		return failedResult("escrow setup failed: %v", err)
	}

	global, err := d.poolManager.GlobalConfig(ctx)
	if err != nil {
		return failedResult("global config unavailable: %v", err)
	}

	ataIx := d.wallet.CreateAssociatedTokenAccountIdempotentInstruction(
		d.wallet.PublicKey, d.wallet.PublicKey, pool.TokenMint())

	instructions, err := BuildBuyInstructions(BuyBuildInput{
		Config:        d.config,
		Global:        global,
		Pool:          pool,
		Quote:         quote,
		Escrow:        escrow,
		User:          d.wallet.PublicKey,
		CreateATAIx:   ataIx,
		TokenDecimals: decimals,
		PriorityFee:   d.priorityFee,
	})
	if err != nil {
		return failedResult("instruction assembly failed: %v", err)
	}

	sig, entry, err := d.lifecycle.Execute(ctx, instructions)
	if err != nil {
		return d.executionFailure(sig, err)
	}

	return d.reconcileResult(sig, entry, pool, global, true, quote.SOLIn, quote.TokenOut, quote.Price)
}

// Sell продаёт указанное количество токенов за SOL.
func (d *DEX) Sell(ctx context.Context, tokenAmount float64) *TradeResult {
	pool, err := d.resolvePool(ctx)
	if err != nil {
		return failedResult("pool resolution failed: %v", err)
	}

	decimals := d.tokenDecimals(ctx, pool.TokenMint())

	quote, err := ComputeSellQuote(pool, tokenAmount, d.sellSlippage, decimals)
	if err != nil {
		return failedResult("pricing failed: %v", err)
	}

	d.logger.Info("Параметры продажи рассчитаны",
		zap.Float64("token_in", quote.TokenIn),
		zap.Float64("expected_sol", quote.ExpectedSOL),
		zap.Float64("min_sol_out", quote.MinSOLOut),
		zap.Float64("price", quote.Price),
		zap.String("orientation", pool.Orientation.String()))

	// выручка приходит на escrow; собственных лампортов сверх ренты не нужно
	escrow, err := NewWSOLEscrow(ctx, d.client, d.wallet.PublicKey, 0)
	if err != nil {
		return failedResult("escrow setup failed: %v", err)
	}

	global, err := d.poolManager.GlobalConfig(ctx)
	if err != nil {
		return failedResult("global config unavailable: %v", err)
	}

	fullExit, err := d.isFullExit(ctx, pool.TokenMint(), TokensToRaw(tokenAmount, decimals))
	if err != nil {
		// закрытие опустевшего ATA — необязательная оптимизация
		d.logger.Debug("Не удалось определить остаток токена", zap.Error(err))
		fullExit = false
	}

	instructions, err := BuildSellInstructions(SellBuildInput{
		Config:        d.config,
		Global:        global,
		Pool:          pool,
		Quote:         quote,
		Escrow:        escrow,
		User:          d.wallet.PublicKey,
		TokenDecimals: decimals,
		PriorityFee:   d.priorityFee,
		FullExit:      fullExit,
	})
	if err != nil {
		return failedResult("instruction assembly failed: %v", err)
	}

	sig, entry, err := d.lifecycle.Execute(ctx, instructions)
	if err != nil {
		return d.executionFailure(sig, err)
	}

	return d.reconcileResult(sig, entry, pool, global, false, quote.ExpectedSOL, quote.TokenIn, quote.Price)
}

// SellPercent продаёт указанный процент от доступного баланса токена.
func (d *DEX) SellPercent(ctx context.Context, percent float64) *TradeResult {
	if percent <= 0 || percent > 100 {
		return failedResult("percent must be within (0,100], got %f", percent)
	}

	balance, err := d.GetTokenBalance(ctx)
	if err != nil {
		return failedResult("balance fetch failed: %v", err)
	}
	if balance == 0 {
		return failedResult("no tokens to sell")
	}

	pool, err := d.resolvePool(ctx)
	if err != nil {
		return failedResult("pool resolution failed: %v", err)
	}
	decimals := d.tokenDecimals(ctx, pool.TokenMint())

	amountRaw := uint64(float64(balance) * percent / 100.0)
	if amountRaw == 0 {
		amountRaw = 1
	}

	return d.Sell(ctx, RawToTokens(amountRaw, decimals))
}

// GetTokenPrice возвращает текущую цену токена в SOL по резервам пула.
func (d *DEX) GetTokenPrice(ctx context.Context) (float64, error) {
	pool, err := d.resolvePool(ctx)
	if err != nil {
		return 0, err
	}
	return SpotPrice(pool, d.tokenDecimals(ctx, pool.TokenMint()))
}

// GetTokenBalance получает баланс торгуемого токена в кошельке пользователя.
func (d *DEX) GetTokenBalance(ctx context.Context, commitment ...rpc.CommitmentType) (uint64, error) {
	userATA, err := d.wallet.GetATA(d.config.TokenMint)
	if err != nil {
		return 0, fmt.Errorf("failed to derive associated token account: %w", err)
	}

	// По умолчанию Processed — самый быстрый уровень
	commitmentLevel := rpc.CommitmentProcessed
	if len(commitment) > 0 {
		commitmentLevel = commitment[0]
	}

	result, err := d.client.GetTokenAccountBalance(ctx, userATA, commitmentLevel)

	// При неудаче с Processed пробуем Confirmed
	if err != nil && commitmentLevel == rpc.CommitmentProcessed {
		d.logger.Debug("Failed to get balance with Processed commitment, trying Confirmed",
			zap.String("token_mint", d.config.TokenMint.String()),
			zap.String("user_ata", userATA.String()),
			zap.Error(err))
		result, err = d.client.GetTokenAccountBalance(ctx, userATA, rpc.CommitmentConfirmed)
	}

	if err != nil {
		return 0, &BalanceFetchError{Account: userATA.String(), Err: err}
	}
	if result == nil || result.Value.Amount == "" {
		return 0, &BalanceFetchError{Account: userATA.String(), Err: fmt.Errorf("no token balance found")}
	}

	balance, err := strconv.ParseUint(result.Value.Amount, 10, 64)
	if err != nil {
		return 0, &BalanceFetchError{Account: userATA.String(), Err: err}
	}

	return balance, nil
}

////////////////////////////////////////////////////////////////////////////////
// Внутренние помощники
////////////////////////////////////////////////////////////////////////////////

// resolvePool находит пул для настроенного токена. Состояние пула
// запрашивается заново при каждой сделке: ценообразование всегда
// опирается на свежие резервы.
func (d *DEX) resolvePool(ctx context.Context) (*PoolInfo, error) {
	return d.poolManager.FindPoolWithRetry(ctx, d.config.TokenMint, 0, 0)
}

// tokenDecimals читает decimals из данных mint-аккаунта с кешированием.
// При недоступности возвращается значение по умолчанию.
func (d *DEX) tokenDecimals(ctx context.Context, mint solana.PublicKey) uint8 {
	if v, ok := d.decimalsCache.Load(mint.String()); ok {
		return v.(uint8)
	}

	// decimals лежит по смещению 44 в данных mint-аккаунта
	info, err := d.client.GetAccountInfo(ctx, mint)
	if err != nil || info == nil || info.Value == nil {
		d.logger.Debug("Не удалось получить mint-аккаунт, используем decimals по умолчанию",
			zap.String("mint", mint.String()), zap.Error(err))
		return DefaultTokenDecimals
	}
	data := info.Value.Data.GetBinary()
	if len(data) < 45 {
		return DefaultTokenDecimals
	}

	decimals := data[44]
	d.decimalsCache.Store(mint.String(), decimals)
	return decimals
}

// isFullExit определяет, исчерпывает ли продажа весь баланс токена.
func (d *DEX) isFullExit(ctx context.Context, mint solana.PublicKey, sellRaw uint64) (bool, error) {
	balance, err := d.GetTokenBalance(ctx)
	if err != nil {
		return false, err
	}
	return sellRaw >= balance, nil
}

// executionFailure формирует результат для сделки, не дошедшей до
// подтверждения или отклонённой программой.
func (d *DEX) executionFailure(sig solana.Signature, err error) *TradeResult {
	d.logger.Error("Сделка не исполнена",
		zap.String("signature", sig.String()),
		zap.Error(err))
	return failedResult("trade failed: %v", err)
}

// reconcileResult строит итоговый TradeResult из записи леджера. Если
// запись недоступна, сделка всё равно считается успешной, а суммы
// помечаются как расчётные.
func (d *DEX) reconcileResult(
	sig solana.Signature,
	entry *rpc.GetTransactionResult,
	pool *PoolInfo,
	global *GlobalConfig,
	isBuy bool,
	solEst, tokenEst, priceEst float64,
) *TradeResult {
	estimated := &TradeResult{
		Success: true,
		Message: "trade confirmed; amounts are pre-trade estimates (ledger entry unavailable)",
		Payload: &TradePayload{
			Signature:   sig,
			SOLAmount:   roundTo(solEst, WSOLDecimals),
			TokenAmount: roundTo(tokenEst, DefaultTokenDecimals),
			Price:       priceEst,
		},
	}

	if entry == nil {
		return estimated
	}

	ledger, err := BuildTradeLedger(entry)
	if err != nil {
		d.logger.Warn("Не удалось разобрать запись леджера", zap.Error(err))
		return estimated
	}

	accounts, err := resolveSwapAccounts(d.config, global, pool, d.wallet.PublicKey)
	if err != nil {
		d.logger.Warn("Не удалось разрешить аккаунты для реконсиляции", zap.Error(err))
		return estimated
	}

	outcome, err := Reconcile(ledger, pool, isBuy, accounts.CoinCreatorVaultATA)
	if err != nil {
		d.logger.Warn("Реконсиляция не удалась", zap.Error(err))
		return estimated
	}

	d.logger.Info("Сделка исполнена",
		zap.String("signature", sig.String()),
		zap.Bool("is_buy", isBuy),
		zap.Float64("sol_amount", outcome.SOLAmount),
		zap.Float64("token_amount", outcome.TokenAmount),
		zap.Float64("price", outcome.Price))

	return &TradeResult{
		Success: true,
		Message: "trade executed",
		Payload: &TradePayload{
			Signature:   sig,
			SOLAmount:   outcome.SOLAmount,
			TokenAmount: outcome.TokenAmount,
			Price:       outcome.Price,
		},
	}
}
