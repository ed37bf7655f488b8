// =============================
// File: internal/dex/pumpswap/reconcile.go
// =============================
package pumpswap

import (
	"fmt"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// Реконсилятор вычисляет фактически исполненные суммы сделки из дельт
// балансов в записи леджера, а не из запрошенных величин: программа могла
// исполнить сделку по цене, отличной от расчётной.

// TokenBalanceEntry — баланс токен-аккаунта до или после транзакции.
// Decimals читаются из самой записи леджера, а не предполагаются.
type TokenBalanceEntry struct {
	AccountIndex uint16
	Mint         solana.PublicKey
	Owner        solana.PublicKey
	RawAmount    uint64
	Decimals     uint8
}

// TradeLedger — развязанное от RPC-представления описание записи леджера.
// Отдельный тип позволяет собирать синтетические записи в тестах.
type TradeLedger struct {
	AccountKeys       []solana.PublicKey
	PreBalances       []uint64
	PostBalances      []uint64
	PreTokenBalances  []TokenBalanceEntry
	PostTokenBalances []TokenBalanceEntry
}

// TradeOutcome — фактически исполненные суммы сделки.
type TradeOutcome struct {
	SOLAmount   float64 // SOL, прошедшие через хранилище WSOL пула
	TokenAmount float64 // чистое количество токенов для трейдера
	Price       float64 // фактическая цена исполнения, SOL за токен
}

// BuildTradeLedger переводит ответ GetTransaction в TradeLedger.
func BuildTradeLedger(entry *rpc.GetTransactionResult) (*TradeLedger, error) {
	if entry == nil || entry.Meta == nil || entry.Transaction == nil {
		return nil, fmt.Errorf("ledger entry is incomplete")
	}

	tx, err := entry.Transaction.GetTransaction()
	if err != nil {
		return nil, fmt.Errorf("failed to decode ledger transaction: %w", err)
	}

	ledger := &TradeLedger{
		AccountKeys:  tx.Message.AccountKeys,
		PreBalances:  entry.Meta.PreBalances,
		PostBalances: entry.Meta.PostBalances,
	}

	ledger.PreTokenBalances, err = convertTokenBalances(entry.Meta.PreTokenBalances)
	if err != nil {
		return nil, err
	}
	ledger.PostTokenBalances, err = convertTokenBalances(entry.Meta.PostTokenBalances)
	if err != nil {
		return nil, err
	}

	return ledger, nil
}

func convertTokenBalances(balances []rpc.TokenBalance) ([]TokenBalanceEntry, error) {
	entries := make([]TokenBalanceEntry, 0, len(balances))
	for _, b := range balances {
		if b.UiTokenAmount == nil {
			continue
		}
		raw, err := strconv.ParseUint(b.UiTokenAmount.Amount, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse token balance amount %q: %w", b.UiTokenAmount.Amount, err)
		}
		entry := TokenBalanceEntry{
			AccountIndex: b.AccountIndex,
			Mint:         b.Mint,
			RawAmount:    raw,
			Decimals:     b.UiTokenAmount.Decimals,
		}
		if b.Owner != nil {
			entry.Owner = *b.Owner
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// accountIndexOf возвращает позицию аккаунта в списке аккаунтов транзакции.
func (l *TradeLedger) accountIndexOf(key solana.PublicKey) (int, bool) {
	for i, k := range l.AccountKeys {
		if k.Equals(key) {
			return i, true
		}
	}
	return 0, false
}

// lamportDelta возвращает абсолютную дельту лампортов аккаунта.
func (l *TradeLedger) lamportDelta(index int) uint64 {
	if index >= len(l.PreBalances) || index >= len(l.PostBalances) {
		return 0
	}
	pre, post := l.PreBalances[index], l.PostBalances[index]
	if post >= pre {
		return post - pre
	}
	return pre - post
}

// tokenDelta возвращает дельту токен-баланса аккаунта, знак сохраняется.
// Вторым результатом идут decimals из записи леджера.
func (l *TradeLedger) tokenDelta(index uint16) (int64, uint8, bool) {
	var pre, post uint64
	var decimals uint8
	var found bool

	for _, b := range l.PreTokenBalances {
		if b.AccountIndex == index {
			pre = b.RawAmount
			decimals = b.Decimals
			found = true
			break
		}
	}
	for _, b := range l.PostTokenBalances {
		if b.AccountIndex == index {
			post = b.RawAmount
			decimals = b.Decimals
			found = true
			break
		}
	}
	if !found {
		return 0, 0, false
	}
	return int64(post) - int64(pre), decimals, true
}

// Reconcile вычисляет фактические суммы сделки:
//
//   - дельта лампортов хранилища WSOL пула даёт сумму в SOL;
//   - дельта токен-баланса хранилища токена даёт валовое количество токенов,
//     масштабированное по decimals из леджера;
//   - на покупке при WSOL в base-слоте протокольная комиссия удерживается
//     в единицах токена, поэтому из валового количества вычитается дельта
//     токен-аккаунта бенефициара комиссии.
//
// Суммы SOL округляются до 9 знаков, токена — до 6.
func Reconcile(ledger *TradeLedger, pool *PoolInfo, isBuy bool, feeTokenAccount solana.PublicKey) (*TradeOutcome, error) {
	wsolIdx, ok := ledger.accountIndexOf(pool.WSOLVault())
	if !ok {
		return nil, fmt.Errorf("wsol vault %s not present in transaction accounts", pool.WSOLVault().String())
	}
	solMoved := LamportsToSol(ledger.lamportDelta(wsolIdx))

	tokenIdx, ok := ledger.accountIndexOf(pool.TokenVault())
	if !ok {
		return nil, fmt.Errorf("token vault %s not present in transaction accounts", pool.TokenVault().String())
	}
	grossDelta, decimals, ok := ledger.tokenDelta(uint16(tokenIdx))
	if !ok {
		return nil, fmt.Errorf("no token balance entries for vault %s", pool.TokenVault().String())
	}
	if grossDelta < 0 {
		grossDelta = -grossDelta
	}

	netDelta := grossDelta
	if isBuy && pool.Orientation == WSOLInBase {
		if feeIdx, ok := ledger.accountIndexOf(feeTokenAccount); ok {
			if feeDelta, _, ok := ledger.tokenDelta(uint16(feeIdx)); ok && feeDelta > 0 {
				netDelta -= feeDelta
			}
		}
	}
	if netDelta < 0 {
		netDelta = 0
	}

	outcome := &TradeOutcome{
		SOLAmount:   roundTo(solMoved, WSOLDecimals),
		TokenAmount: roundTo(RawToTokens(uint64(netDelta), decimals), DefaultTokenDecimals),
	}
	if outcome.TokenAmount > 0 {
		outcome.Price = outcome.SOLAmount / outcome.TokenAmount
	}

	return outcome, nil
}
