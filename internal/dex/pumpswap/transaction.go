// =============================
// File: internal/dex/pumpswap/transaction.go
// =============================
package pumpswap

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpswap-engine/internal/blockchain"
	"github.com/rovshanmuradov/pumpswap-engine/internal/wallet"
)

// TxLifecycle проводит транзакцию через стадии
// Built → Signed → Submitted → {Confirmed, Failed, TimedOut}.
// Отправка не повторяется: транспортная ошибка на этом этапе фатальна.
// Подтверждение опрашивается с фиксированным числом попыток и задержкой.
type TxLifecycle struct {
	client blockchain.Client
	wallet *wallet.Wallet
	logger *zap.Logger

	confirmRetries int
	confirmDelay   time.Duration
}

// NewTxLifecycle создаёт менеджер жизненного цикла транзакций.
func NewTxLifecycle(client blockchain.Client, w *wallet.Wallet, logger *zap.Logger, retries int, delay time.Duration) *TxLifecycle {
	if retries <= 0 {
		retries = DefaultConfirmRetries
	}
	if delay <= 0 {
		delay = time.Duration(DefaultConfirmDelayMS) * time.Millisecond
	}
	return &TxLifecycle{
		client:         client,
		wallet:         w,
		logger:         logger.Named("tx_lifecycle"),
		confirmRetries: retries,
		confirmDelay:   delay,
	}
}

// BuildAndSign создаёт и подписывает транзакцию с актуальным blockhash.
func (t *TxLifecycle) BuildAndSign(ctx context.Context, instructions []solana.Instruction) (*solana.Transaction, error) {
	blockhash, err := t.client.GetRecentBlockhash(ctx)
	if err != nil {
		return nil, &TransactionBuildError{Stage: "fetch blockhash", Err: err}
	}

	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(t.wallet.PublicKey))
	if err != nil {
		return nil, &TransactionBuildError{Stage: "assemble transaction", Err: err}
	}

	if err := t.wallet.SignTransaction(tx); err != nil {
		return nil, &TransactionBuildError{Stage: "sign transaction", Err: err}
	}

	return tx, nil
}

// Submit отправляет транзакцию. Повторных попыток нет.
func (t *TxLifecycle) Submit(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	sig, err := t.client.SendTransaction(ctx, tx)
	if err != nil {
		if IsSlippageExceededError(err) {
			return solana.Signature{}, &SlippageExceededError{OriginalError: err}
		}
		return solana.Signature{}, &SubmissionError{Err: err}
	}

	t.logger.Info("Транзакция отправлена", zap.String("signature", sig.String()))
	return sig, nil
}

// Confirm опрашивает статус подписи до подтверждения. Каждая попытка
// завершается одним из трёх исходов: определённое подтверждение,
// определённая ошибка программы (без дальнейших попыток) или
// неопределённость (повтор). Исчерпание попыток даёт ErrConfirmationTimeout.
func (t *TxLifecycle) Confirm(ctx context.Context, sig solana.Signature) error {
	for attempt := 1; attempt <= t.confirmRetries; attempt++ {
		status, err := t.checkStatus(ctx, sig)
		if err != nil {
			// транспортная ошибка опроса — неопределённость, пробуем ещё
			t.logger.Debug("Не удалось получить статус подписи",
				zap.String("signature", sig.String()),
				zap.Int("attempt", attempt),
				zap.Error(err))
		} else if status != nil {
			if status.Err != nil {
				// сеть подтвердила транзакцию, но программа её отклонила
				return &OnChainExecutionError{Signature: sig.String(), Detail: status.Err}
			}
			if status.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
				status.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
				t.logger.Info("Транзакция подтверждена",
					zap.String("signature", sig.String()),
					zap.Int("attempts", attempt))
				return nil
			}
		}

		if attempt < t.confirmRetries {
			select {
			case <-ctx.Done():
				return fmt.Errorf("confirmation cancelled: %w", ctx.Err())
			case <-time.After(t.confirmDelay):
			}
		}
	}

	return fmt.Errorf("%w: %s after %d attempts", ErrConfirmationTimeout, sig.String(), t.confirmRetries)
}

func (t *TxLifecycle) checkStatus(ctx context.Context, sig solana.Signature) (*rpc.SignatureStatusesResult, error) {
	resp, err := t.client.GetSignatureStatuses(ctx, sig)
	if err != nil {
		return nil, err
	}
	if resp == nil || len(resp.Value) == 0 {
		return nil, nil
	}
	return resp.Value[0], nil
}

// FetchLedgerEntry получает полную запись подтверждённой транзакции
// вместе с балансами до и после исполнения.
func (t *TxLifecycle) FetchLedgerEntry(ctx context.Context, sig solana.Signature) (*rpc.GetTransactionResult, error) {
	entry, err := t.client.GetTransaction(ctx, sig)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ledger entry for %s: %w", sig.String(), err)
	}
	if entry == nil || entry.Meta == nil {
		return nil, fmt.Errorf("ledger entry for %s has no metadata", sig.String())
	}
	return entry, nil
}

// Execute проводит полный цикл: сборка, подпись, отправка, подтверждение
// и выборка записи из леджера.
func (t *TxLifecycle) Execute(ctx context.Context, instructions []solana.Instruction) (solana.Signature, *rpc.GetTransactionResult, error) {
	tx, err := t.BuildAndSign(ctx, instructions)
	if err != nil {
		return solana.Signature{}, nil, err
	}

	sig, err := t.Submit(ctx, tx)
	if err != nil {
		return solana.Signature{}, nil, err
	}

	if err := t.Confirm(ctx, sig); err != nil {
		return sig, nil, err
	}

	entry, err := t.FetchLedgerEntry(ctx, sig)
	if err != nil {
		// сделка подтверждена, но запись недоступна: это не ошибка сделки,
		// вызывающий код обойдётся расчётными суммами
		t.logger.Warn("Запись леджера недоступна", zap.Error(err))
		return sig, nil, nil
	}

	return sig, entry, nil
}
