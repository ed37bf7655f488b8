// =============================
// File: internal/dex/pumpswap/errors.go
// =============================
package pumpswap

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Константы для кодов ошибок Solana
const (
	SlippageExceededCode    = "0x1774"
	SlippageExceededCodeInt = 6004
)

// Ошибки уровня сделки. Наружу через фасад они не выбрасываются:
// Buy/Sell упаковывают их в TradeResult с Success=false.
var (
	// ErrPoolNotFound — пул не найден ни в одном из двух порядков операндов.
	ErrPoolNotFound = errors.New("pumpswap: pool not found")
	// ErrMalformedPoolAccount — данные аккаунта пула не соответствуют схеме.
	ErrMalformedPoolAccount = errors.New("pumpswap: malformed pool account")
	// ErrMalformedGlobalConfig — данные GlobalConfig не соответствуют схеме.
	ErrMalformedGlobalConfig = errors.New("pumpswap: malformed global config account")
	// ErrConfirmationTimeout — попытки подтверждения исчерпаны без определённого результата.
	ErrConfirmationTimeout = errors.New("pumpswap: transaction confirmation timed out")
	// ErrZeroReserves — у пула нулевая ликвидность, цена не определена.
	ErrZeroReserves = errors.New("pumpswap: pool has zero reserves")
)

// TransactionBuildError — ошибка сборки инструкций или транзакции.
type TransactionBuildError struct {
	Stage string
	Err   error
}

func (e *TransactionBuildError) Error() string {
	return fmt.Sprintf("failed to build transaction at %s: %v", e.Stage, e.Err)
}

func (e *TransactionBuildError) Unwrap() error { return e.Err }

// SubmissionError — транспорт отклонил отправку транзакции. Повторных
// попыток на этапе отправки не делается.
type SubmissionError struct {
	Err error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("transaction submission failed: %v", e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// OnChainExecutionError — транзакция подтверждена сетью, но отклонена
// программой. Отличается от таймаута подтверждения: здесь есть
// определённый вердикт цепочки.
type OnChainExecutionError struct {
	Signature string
	Detail    interface{}
}

func (e *OnChainExecutionError) Error() string {
	return fmt.Sprintf("transaction %s failed on-chain: %v", e.Signature, e.Detail)
}

// BalanceFetchError — не удалось получить баланс. Исторически такие
// ошибки глушились до нуля; теперь решение остаётся за вызывающим кодом.
type BalanceFetchError struct {
	Account string
	Err     error
}

func (e *BalanceFetchError) Error() string {
	return fmt.Sprintf("failed to fetch balance of %s: %v", e.Account, e.Err)
}

func (e *BalanceFetchError) Unwrap() error { return e.Err }

// SlippageExceededError представляет ошибку превышения проскальзывания
type SlippageExceededError struct {
	SlippagePercent float64
	Amount          uint64
	OriginalError   error
}

func (e *SlippageExceededError) Error() string {
	return fmt.Sprintf("slippage exceeded: transaction requires more funds than maximum specified (%f%%): %v",
		e.SlippagePercent, e.OriginalError)
}

func (e *SlippageExceededError) Unwrap() error {
	return e.OriginalError
}

// IsSlippageExceededError определяет, является ли ошибка ошибкой превышения проскальзывания
func IsSlippageExceededError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "ExceededSlippage") ||
		strings.Contains(err.Error(), SlippageExceededCode) ||
		strings.Contains(err.Error(), strconv.Itoa(SlippageExceededCodeInt)))
}
