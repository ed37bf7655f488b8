// =============================
// File: internal/dex/pumpswap/calculations.go
// =============================
package pumpswap

import (
	"fmt"
	"math"
)

// Ценообразование работает в пользовательских единицах (SOL и целые токены)
// и держит все промежуточные значения в float64. Усечение до атомарных
// единиц происходит один раз, на границе сборки инструкций, чтобы ошибка
// округления не накапливалась.

// BuyQuote описывает рассчитанные параметры покупки токена за SOL.
type BuyQuote struct {
	Price       float64 // SOL за один токен
	SOLIn       float64 // вносимая сумма SOL
	TokenOut    float64 // ожидаемое количество токенов
	MaxSOLSpend float64 // верхняя граница расхода SOL (ориентация WSOLInQuote)
}

// SellQuote описывает рассчитанные параметры продажи токена за SOL.
type SellQuote struct {
	Price       float64 // SOL за один токен
	TokenIn     float64 // продаваемое количество токенов
	ExpectedSOL float64 // ожидаемая выручка в SOL
	MinSOLOut   float64 // нижняя граница выручки
}

// SpotPrice возвращает текущую цену токена в SOL по живым резервам пула.
// Цена всегда выражается как «SOL за единицу токена» независимо от того,
// какой слот пула занимает WSOL.
func SpotPrice(pool *PoolInfo, tokenDecimals uint8) (float64, error) {
	wsolRes := pool.WSOLReserves()
	tokenRes := pool.TokenReserves()
	if wsolRes == 0 || tokenRes == 0 {
		return 0, ErrZeroReserves
	}

	wsolUI := float64(wsolRes) / float64(LamportsPerSOL)
	tokenUI := float64(tokenRes) / math.Pow10(int(tokenDecimals))
	return wsolUI / tokenUI, nil
}

// ComputeBuyQuote рассчитывает количество токенов и границу расхода SOL
// для покупки. Логика зависит от ориентации пула:
//
//   - WSOL в base-слоте: количество токенов дисконтируется на slippage,
//     а вся внесённая сумма SOL фиксируется как есть. При нулевом slippage
//     множитель (1-0) ничего не защищает, поэтому вместо него вычитается
//     одна атомарная единица токена: иначе усечение может дать сумму,
//     которую программа отклонит.
//   - WSOL в quote-слоте: количество токенов считается без дисконта,
//     а граница ставится на стороне расхода SOL. При нулевом slippage
//     добавляется фиксированный запас в лампортах.
func ComputeBuyQuote(pool *PoolInfo, solIn, slippagePercent float64, tokenDecimals uint8) (*BuyQuote, error) {
	if solIn <= 0 {
		return nil, fmt.Errorf("buy amount must be positive, got %f", solIn)
	}
	if slippagePercent < 0 || slippagePercent > 99 {
		return nil, fmt.Errorf("slippage percent out of range [0,99]: %f", slippagePercent)
	}

	price, err := SpotPrice(pool, tokenDecimals)
	if err != nil {
		return nil, err
	}

	quote := &BuyQuote{
		Price: price,
		SOLIn: solIn,
	}

	rawTokenOut := solIn / price

	switch pool.Orientation {
	case WSOLInBase:
		if slippagePercent == 0 {
			oneUnit := float64(ZeroSlippageTokenUnitBuffer) / math.Pow10(int(tokenDecimals))
			quote.TokenOut = rawTokenOut - oneUnit
		} else {
			quote.TokenOut = rawTokenOut * (1 - slippagePercent/100)
		}
		quote.MaxSOLSpend = solIn

	case WSOLInQuote:
		quote.TokenOut = rawTokenOut
		if slippagePercent == 0 {
			quote.MaxSOLSpend = solIn + float64(ZeroSlippageLamportBuffer)/float64(LamportsPerSOL)
		} else {
			quote.MaxSOLSpend = solIn * (1 + slippagePercent/100)
		}
	}

	if quote.TokenOut <= 0 {
		return nil, fmt.Errorf("computed token amount is not positive: %f", quote.TokenOut)
	}

	return quote, nil
}

// ComputeSellQuote рассчитывает ожидаемую выручку и минимально допустимый
// выход SOL для продажи. Slippage дисконтирует сторону выручки; нулевой
// slippage означает отсутствие защиты (минимум равен нулю), буферов здесь
// не применяется.
func ComputeSellQuote(pool *PoolInfo, tokenIn, slippagePercent float64, tokenDecimals uint8) (*SellQuote, error) {
	if tokenIn <= 0 {
		return nil, fmt.Errorf("sell amount must be positive, got %f", tokenIn)
	}
	if slippagePercent < 0 || slippagePercent > 99 {
		return nil, fmt.Errorf("slippage percent out of range [0,99]: %f", slippagePercent)
	}

	price, err := SpotPrice(pool, tokenDecimals)
	if err != nil {
		return nil, err
	}

	expected := tokenIn * price
	minOut := 0.0
	if slippagePercent > 0 {
		minOut = expected * (1 - slippagePercent/100)
	}

	return &SellQuote{
		Price:       price,
		TokenIn:     tokenIn,
		ExpectedSOL: expected,
		MinSOLOut:   minOut,
	}, nil
}

// TokensToRaw усекает количество токенов до атомарных единиц.
func TokensToRaw(amount float64, decimals uint8) uint64 {
	if amount <= 0 {
		return 0
	}
	return uint64(amount * math.Pow10(int(decimals)))
}

// SolToLamports усекает сумму SOL до лампортов.
func SolToLamports(amount float64) uint64 {
	if amount <= 0 {
		return 0
	}
	return uint64(amount * float64(LamportsPerSOL))
}

// RawToTokens переводит атомарные единицы токена в пользовательские.
func RawToTokens(raw uint64, decimals uint8) float64 {
	return float64(raw) / math.Pow10(int(decimals))
}

// LamportsToSol переводит лампорты в SOL.
func LamportsToSol(lamports uint64) float64 {
	return float64(lamports) / float64(LamportsPerSOL)
}

// roundTo округляет значение до заданного числа знаков после запятой.
func roundTo(v float64, places int) float64 {
	factor := math.Pow10(places)
	return math.Round(v*factor) / factor
}
