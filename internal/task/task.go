// =============================================
// File: internal/task/task.go
// =============================================
// Package task provides task management functionality
package task

import (
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
)

// OperationType определяет тип торговой операции.
type OperationType string

const (
	OperationBuy  OperationType = "buy"
	OperationSell OperationType = "sell"
)

// Task represents a trading task loaded from CSV or YAML configuration.
type Task struct {
	ID              int
	TaskName        string
	WalletName      string
	Operation       OperationType
	AmountSol       float64 // For buy: SOL to spend. For sell: number of tokens to sell
	PercentToSell   float64 // For sell: percentage of balance instead of absolute amount
	SlippagePercent float64 // Slippage tolerance in percent (0-99), -1 means use config default
	PriorityFee     uint64  // Compute unit price in micro-lamports, 0 means use config default
	ComputeUnits    uint32  // Compute unit limit, 0 means use default
	TokenMint       string
	CreatedAt       time.Time
}

// Validate проверяет обязательные поля задачи.
func (t *Task) Validate() error {
	if t.TaskName == "" {
		return fmt.Errorf("task_name is required")
	}
	if t.WalletName == "" {
		return fmt.Errorf("wallet is required")
	}
	switch t.Operation {
	case OperationBuy, OperationSell:
	default:
		return fmt.Errorf("unsupported operation: %q", t.Operation)
	}
	if _, err := solana.PublicKeyFromBase58(t.TokenMint); err != nil {
		return fmt.Errorf("invalid token_mint %q: %w", t.TokenMint, err)
	}
	if t.Operation == OperationBuy && t.AmountSol <= 0 {
		return fmt.Errorf("buy operation requires positive amount")
	}
	if t.Operation == OperationSell && t.AmountSol <= 0 && (t.PercentToSell <= 0 || t.PercentToSell > 100) {
		return fmt.Errorf("sell operation requires positive amount or percent_to_sell in (0, 100]")
	}
	if t.SlippagePercent > 99 {
		return fmt.Errorf("slippage_percent must be within [0, 99]")
	}
	return nil
}

// UsesPercent true, если продажа задана долей баланса, а не абсолютным числом токенов.
func (t *Task) UsesPercent() bool {
	return t.Operation == OperationSell && t.AmountSol <= 0 && t.PercentToSell > 0
}
