// internal/dex/pumpswap/calculations_test.go
package pumpswap

import (
	"math"
	"testing"

	solanaGo "github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpotPrice_Orientations(t *testing.T) {
	tokenMint := solanaGo.NewWallet().PublicKey()

	// 10 SOL против 1000 токенов → 0.01 SOL за токен, в обеих ориентациях
	straight := testPoolInfo(tokenMint, 1000_000000, 10*LamportsPerSOL)
	reversed := testPoolInfoReversed(tokenMint, 10*LamportsPerSOL, 1000_000000)

	p1, err := SpotPrice(straight, 6)
	require.NoError(t, err)
	p2, err := SpotPrice(reversed, 6)
	require.NoError(t, err)

	assert.InDelta(t, 0.01, p1, 1e-12)
	assert.Equal(t, p1, p2)
}

func TestSpotPrice_ZeroReserves(t *testing.T) {
	pool := testPoolInfo(solanaGo.NewWallet().PublicKey(), 0, 10*LamportsPerSOL)
	_, err := SpotPrice(pool, 6)
	assert.ErrorIs(t, err, ErrZeroReserves)
}

func TestComputeBuyQuote_SpendBoundMonotonic(t *testing.T) {
	// верхняя граница расхода SOL не убывает с ростом slippage
	pool := testPoolInfo(solanaGo.NewWallet().PublicKey(), 1000_000000, 10*LamportsPerSOL)

	prev := -1.0
	for s := 0.0; s <= 99; s++ {
		quote, err := ComputeBuyQuote(pool, 1.0, s, 6)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, quote.MaxSOLSpend, prev, "slippage=%f", s)
		prev = quote.MaxSOLSpend
	}
}

func TestComputeBuyQuote_ZeroSlippageWSOLInBase(t *testing.T) {
	// при нулевом slippage и WSOL в base-слоте из расчётного количества
	// токенов вычитается ровно одна атомарная единица
	tokenMint := solanaGo.NewWallet().PublicKey()
	pool := testPoolInfoReversed(tokenMint, 10*LamportsPerSOL, 1000_000000)

	quote, err := ComputeBuyQuote(pool, 1.0, 0, 6)
	require.NoError(t, err)

	price, err := SpotPrice(pool, 6)
	require.NoError(t, err)

	expected := 1.0/price - 1.0/math.Pow10(6)
	assert.InDelta(t, expected, quote.TokenOut, 1e-9)
	// вся внесённая сумма фиксируется как есть
	assert.Equal(t, 1.0, quote.MaxSOLSpend)
}

func TestComputeBuyQuote_ZeroSlippageWSOLInQuote(t *testing.T) {
	// при WSOL в quote-слоте количество токенов не дисконтируется,
	// а к границе расхода добавляется фиксированный лампорт-буфер
	pool := testPoolInfo(solanaGo.NewWallet().PublicKey(), 1000_000000, 10*LamportsPerSOL)

	quote, err := ComputeBuyQuote(pool, 1.0, 0, 6)
	require.NoError(t, err)

	price, err := SpotPrice(pool, 6)
	require.NoError(t, err)

	assert.InDelta(t, 1.0/price, quote.TokenOut, 1e-9)
	assert.InDelta(t, 1.0+float64(ZeroSlippageLamportBuffer)/float64(LamportsPerSOL), quote.MaxSOLSpend, 1e-12)
}

func TestComputeSellQuote_ZeroSlippageNoProtection(t *testing.T) {
	pool := testPoolInfo(solanaGo.NewWallet().PublicKey(), 1000_000000, 10*LamportsPerSOL)

	quote, err := ComputeSellQuote(pool, 50, 0, 6)
	require.NoError(t, err)

	assert.Equal(t, 0.0, quote.MinSOLOut)
	assert.InDelta(t, 50*quote.Price, quote.ExpectedSOL, 1e-9)
}

func TestComputeSellQuote_SlippageDiscountsOutput(t *testing.T) {
	pool := testPoolInfo(solanaGo.NewWallet().PublicKey(), 1000_000000, 10*LamportsPerSOL)

	quote, err := ComputeSellQuote(pool, 50, 5, 6)
	require.NoError(t, err)

	assert.InDelta(t, quote.ExpectedSOL*0.95, quote.MinSOLOut, 1e-9)
}

func TestBuySellRoundTrip(t *testing.T) {
	// покупка на X SOL и немедленная продажа полученных токенов
	// возвращает не больше X
	pool := testPoolInfo(solanaGo.NewWallet().PublicKey(), 1000_000000, 10*LamportsPerSOL)
	const slippage = 1.0

	buy, err := ComputeBuyQuote(pool, 2.0, slippage, 6)
	require.NoError(t, err)

	sell, err := ComputeSellQuote(pool, buy.TokenOut, slippage, 6)
	require.NoError(t, err)

	assert.LessOrEqual(t, sell.ExpectedSOL, 2.0)
	assert.LessOrEqual(t, sell.MinSOLOut, sell.ExpectedSOL)
}

func TestComputeQuote_RejectsInvalidInput(t *testing.T) {
	pool := testPoolInfo(solanaGo.NewWallet().PublicKey(), 1000_000000, 10*LamportsPerSOL)

	_, err := ComputeBuyQuote(pool, 0, 1, 6)
	assert.Error(t, err)

	_, err = ComputeBuyQuote(pool, 1, 100, 6)
	assert.Error(t, err)

	_, err = ComputeSellQuote(pool, -5, 1, 6)
	assert.Error(t, err)
}

func TestTruncationHelpers(t *testing.T) {
	// усечение, не округление
	assert.Equal(t, uint64(1_999_999), TokensToRaw(1.9999999, 6))
	assert.Equal(t, uint64(1_500_000_000), SolToLamports(1.5))
	assert.Equal(t, uint64(0), SolToLamports(-1))

	assert.InDelta(t, 1.5, LamportsToSol(1_500_000_000), 1e-12)
	assert.InDelta(t, 2.5, RawToTokens(2_500_000, 6), 1e-12)
}
