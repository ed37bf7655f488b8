// =============================
// File: internal/dex/pumpswap/constants.go
// =============================
package pumpswap

import "github.com/gagliardetto/solana-go"

// Основные адреса программ и токенов, используемые движком.
var (
	PumpSwapProgramID        = solana.MPK("pAMMBay6oceH9fJKBRHGP5D4bD4sWpmSwMn52FMfXEA")
	TokenProgramID           = solana.MPK("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	AssociatedTokenProgramID = solana.MPK("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
	SystemProgramID          = solana.MPK("11111111111111111111111111111111")
	SysVarRentID             = solana.MPK("SysvarRent111111111111111111111111111111111")

	// WSOLMint — канонический wrapped SOL, вторая сторона каждого пула.
	WSOLMint = solana.MPK("So11111111111111111111111111111111111111112")
)

const (
	// WSOLDecimals — количество знаков после запятой у SOL/WSOL.
	WSOLDecimals = 9
	// DefaultTokenDecimals — значение по умолчанию для SPL-токенов PumpSwap.
	DefaultTokenDecimals = 6

	// LamportsPerSOL — лампортов в одном SOL.
	LamportsPerSOL = 1_000_000_000

	// TokenAccountSize — размер SPL token account в байтах.
	TokenAccountSize = 165

	// Смещение и размер поля amount внутри данных токен-аккаунта.
	TokenAccountAmountOffset uint64 = 64
	TokenAccountAmountSize   uint64 = 8
)

// Смещения mint-полей в аккаунте пула: 8 (discriminator) + 1 (bump) + 2 (index) + 32 (creator).
const (
	PoolBaseMintOffset  uint64 = 43
	PoolQuoteMintOffset uint64 = PoolBaseMintOffset + 32
)

// Буферы для нулевого проскальзывания. Константы асимметричны:
// на стороне токена вычитается одна атомарная единица, на стороне SOL
// добавляется фиксированный запас в лампортах. Значения взяты из
// наблюдаемого поведения протокола; подлежат подтверждению у владельцев
// протокола, поэтому вынесены в настраиваемые константы.
const (
	ZeroSlippageTokenUnitBuffer uint64 = 1
	ZeroSlippageLamportBuffer   uint64 = 1000
)

// EscrowLamportBuffer — фиксированный запас при создании escrow-аккаунта,
// поглощающий ошибки округления при расчёте суммы в лампортах.
const EscrowLamportBuffer uint64 = 1000
