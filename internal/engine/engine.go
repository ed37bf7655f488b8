// =============================================
// File: internal/engine/engine.go
// =============================================
// Package engine orchestrates trading task execution.
package engine

import (
	"context"
	"fmt"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/pumpswap-engine/internal/blockchain"
	"github.com/rovshanmuradov/pumpswap-engine/internal/blockchain/solbc"
	"github.com/rovshanmuradov/pumpswap-engine/internal/config"
	"github.com/rovshanmuradov/pumpswap-engine/internal/dex/pumpswap"
	"github.com/rovshanmuradov/pumpswap-engine/internal/task"
	"github.com/rovshanmuradov/pumpswap-engine/internal/wallet"
)

// trader — операции, которые движок выполняет над DEX.
type trader interface {
	Buy(ctx context.Context, solAmount float64) *pumpswap.TradeResult
	Sell(ctx context.Context, tokenAmount float64) *pumpswap.TradeResult
	SellPercent(ctx context.Context, percent float64) *pumpswap.TradeResult
}

// Engine запускает торговые задачи на пуле RPC-узлов с ограниченным
// числом параллельных воркеров.
type Engine struct {
	cfg         *config.Config
	logger      *zap.Logger
	client      blockchain.Client
	wallets     map[string]*wallet.Wallet
	taskManager *task.Manager

	// newTrader подменяется в тестах.
	newTrader func(t *task.Task, w *wallet.Wallet, logger *zap.Logger) (trader, error)
}

// New создает движок: пул RPC-клиентов и кошельки из конфигурации.
func New(cfg *config.Config, logger *zap.Logger) (*Engine, error) {
	wallets, err := wallet.LoadWallets(cfg.WalletsFile)
	if err != nil {
		return nil, fmt.Errorf("load wallets: %w", err)
	}
	if len(wallets) == 0 {
		return nil, fmt.Errorf("no wallets loaded from %s", cfg.WalletsFile)
	}

	e := &Engine{
		cfg:         cfg,
		logger:      logger,
		client:      solbc.NewPool(cfg.RPCList, logger),
		wallets:     wallets,
		taskManager: task.NewManager(logger),
	}
	e.newTrader = e.buildDEX
	return e, nil
}

// Run загружает задачи и исполняет их, пока не закончатся или не придет
// сигнал завершения.
func (e *Engine) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tasks, err := e.taskManager.LoadTasks(e.cfg.TasksFile)
	if err != nil {
		return fmt.Errorf("load tasks: %w", err)
	}
	e.logger.Info("Loaded trading tasks", zap.Int("count", len(tasks)))

	workers := e.cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	e.logger.Info("Starting execution", zap.Int("workers", workers))

	var failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, t := range tasks {
		t := t
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			if !e.runTask(gctx, t) {
				failed.Add(1)
			}
			// Ошибки отдельных задач не останавливают остальные.
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	e.logger.Info("All tasks finished",
		zap.Int("total", len(tasks)),
		zap.Int64("failed", failed.Load()))
	if n := failed.Load(); n > 0 {
		return fmt.Errorf("%d of %d tasks failed", n, len(tasks))
	}
	return nil
}

// runTask выполняет одну задачу; возвращает true при успехе.
func (e *Engine) runTask(ctx context.Context, t *task.Task) bool {
	logger := e.logger.With(
		zap.String("task", t.TaskName),
		zap.String("operation", string(t.Operation)),
		zap.String("token_mint", t.TokenMint),
	)

	w, ok := e.wallets[t.WalletName]
	if !ok {
		logger.Warn("Skipping task - no wallet found", zap.String("wallet", t.WalletName))
		return false
	}

	dexAdapter, err := e.newTrader(t, w, logger)
	if err != nil {
		logger.Error("DEX adapter init error", zap.Error(err))
		return false
	}

	// Общий дедлайн на сделку: сборка, отправка и подтверждение.
	tradeCtx, cancel := context.WithTimeout(ctx, time.Duration(e.cfg.ConfirmTimeout)*time.Millisecond)
	defer cancel()

	logger.Info("Executing task")
	start := time.Now()

	var result *pumpswap.TradeResult
	switch {
	case t.Operation == task.OperationBuy:
		result = dexAdapter.Buy(tradeCtx, t.AmountSol)
	case t.UsesPercent():
		result = dexAdapter.SellPercent(tradeCtx, t.PercentToSell)
	default:
		result = dexAdapter.Sell(tradeCtx, t.AmountSol)
	}

	elapsed := time.Since(start)
	if !result.Success {
		logger.Error("Task failed",
			zap.String("message", result.Message),
			zap.Duration("elapsed", elapsed))
		return false
	}

	fields := []zap.Field{
		zap.String("message", result.Message),
		zap.Duration("elapsed", elapsed),
	}
	if result.Payload != nil {
		fields = append(fields,
			zap.String("signature", result.Payload.Signature.String()),
			zap.Float64("sol_amount", result.Payload.SOLAmount),
			zap.Float64("token_amount", result.Payload.TokenAmount),
			zap.Float64("price", result.Payload.Price))
	}
	logger.Info("Task executed successfully", fields...)
	return true
}

// buildDEX собирает DEX-адаптер PumpSwap для конкретной задачи.
func (e *Engine) buildDEX(t *task.Task, w *wallet.Wallet, logger *zap.Logger) (trader, error) {
	cfg := pumpswap.GetDefaultConfig()
	cfg.ConfirmRetries = e.cfg.ConfirmRetries
	cfg.ConfirmDelayMS = e.cfg.ConfirmDelay
	if t.ComputeUnits > 0 {
		cfg.ComputeUnits = t.ComputeUnits
	}
	if err := cfg.SetupForToken(t.TokenMint, logger); err != nil {
		return nil, err
	}

	buySlippage := e.cfg.BuySlippage
	sellSlippage := e.cfg.SellSlippage
	if t.SlippagePercent >= 0 {
		// Переопределение из задачи действует на обе стороны.
		buySlippage = t.SlippagePercent
		sellSlippage = t.SlippagePercent
	}
	priorityFee := e.cfg.PriorityFee
	if t.PriorityFee > 0 {
		priorityFee = t.PriorityFee
	}

	poolManager := pumpswap.NewPoolManager(e.client, logger)
	return pumpswap.NewDEX(e.client, w, logger, cfg, poolManager, pumpswap.DEXOptions{
		BuySlippage:  buySlippage,
		SellSlippage: sellSlippage,
		PriorityFee:  priorityFee,
	})
}
