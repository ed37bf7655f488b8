// =============================
// File: internal/dex/pumpswap/types.go
// =============================
package pumpswap

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
)

// Account discriminators extracted from the IDL
var (
	// GlobalConfigDiscriminator is the discriminator for GlobalConfig accounts
	GlobalConfigDiscriminator = []byte{149, 8, 156, 202, 160, 252, 176, 217}

	// PoolDiscriminator is the discriminator for Pool accounts
	PoolDiscriminator = []byte{241, 154, 109, 4, 17, 177, 109, 188}
)

// poolAccountSize — размер полезной нагрузки пула после discriminator:
// 1 + 2 + 32*6 + 8 + 32 = 235 байт.
const poolAccountSize = 1 + 2 + 32*6 + 8 + 32

// GlobalConfig represents the global configuration for PumpSwap
type GlobalConfig struct {
	Admin                  solana.PublicKey    // The admin public key
	LPFeeBasisPoints       uint64              // LP fee in basis points (0.01%)
	ProtocolFeeBasisPoints uint64              // Protocol fee in basis points (0.01%)
	DisableFlags           uint8               // Flags to disable certain functionality
	ProtocolFeeRecipients  [8]solana.PublicKey // Addresses of protocol fee recipients
}

// DisableFlags bits in GlobalConfig
const (
	DisableCreatePool = 1 << iota
	DisableDeposit
	DisableWithdraw
	DisableBuy
	DisableSell
)

// Pool represents a liquidity pool account in PumpSwap
type Pool struct {
	PoolBump              uint8            // PDA bump
	Index                 uint16           // Pool index
	Creator               solana.PublicKey // Creator of the pool
	BaseMint              solana.PublicKey // Base token mint
	QuoteMint             solana.PublicKey // Quote token mint
	LPMint                solana.PublicKey // LP token mint
	PoolBaseTokenAccount  solana.PublicKey // Pool's base token account
	PoolQuoteTokenAccount solana.PublicKey // Pool's quote token account
	LPSupply              uint64           // True circulating supply of LP tokens
	CoinCreator           solana.PublicKey // Fee beneficiary of the pool
}

// PoolOrientation описывает, какой слот пула (base или quote) занимает WSOL.
// Вычисляется один раз после декодирования и передаётся дальше явно,
// чтобы проверки ориентации не повторялись в каждом месте использования.
type PoolOrientation int

const (
	// WSOLInBase — WSOL занимает base-слот, торгуемый токен — quote.
	WSOLInBase PoolOrientation = iota
	// WSOLInQuote — WSOL занимает quote-слот, торгуемый токен — base.
	WSOLInQuote
)

func (o PoolOrientation) String() string {
	if o == WSOLInBase {
		return "wsol_in_base"
	}
	return "wsol_in_quote"
}

// MintOrdering — порядок операндов при фильтрованном поиске пула.
type MintOrdering int

const (
	// OrderingBaseFirst — целевой токен в base-слоте, WSOL в quote-слоте.
	OrderingBaseFirst MintOrdering = iota
	// OrderingQuoteFirst — WSOL в base-слоте, целевой токен в quote-слоте.
	OrderingQuoteFirst
)

// PoolInfo содержит состояние пула ликвидности вместе с живыми резервами.
type PoolInfo struct {
	Address               solana.PublicKey // Pool address
	BaseMint              solana.PublicKey // Base token mint
	QuoteMint             solana.PublicKey // Quote token mint
	BaseReserves          uint64           // Amount of base tokens in the pool
	QuoteReserves         uint64           // Amount of quote tokens in the pool
	LPSupply              uint64           // LP token supply
	FeesBasisPoints       uint64           // LP fee in basis points
	ProtocolFeeBPS        uint64           // Protocol fee in basis points
	LPMint                solana.PublicKey // LP token mint
	PoolBaseTokenAccount  solana.PublicKey // Pool's base token account
	PoolQuoteTokenAccount solana.PublicKey // Pool's quote token account
	CoinCreator           solana.PublicKey // Fee beneficiary
	Orientation           PoolOrientation  // Which slot holds WSOL
}

// Orientation определяет ориентацию пула относительно WSOL.
func (p *Pool) Orientation() PoolOrientation {
	if p.BaseMint.Equals(WSOLMint) {
		return WSOLInBase
	}
	return WSOLInQuote
}

// TokenMint возвращает mint торгуемого токена (не-WSOL сторона пула).
func (p *PoolInfo) TokenMint() solana.PublicKey {
	if p.Orientation == WSOLInBase {
		return p.QuoteMint
	}
	return p.BaseMint
}

// WSOLVault возвращает токен-аккаунт пула, хранящий WSOL.
func (p *PoolInfo) WSOLVault() solana.PublicKey {
	if p.Orientation == WSOLInBase {
		return p.PoolBaseTokenAccount
	}
	return p.PoolQuoteTokenAccount
}

// TokenVault возвращает токен-аккаунт пула, хранящий торгуемый токен.
func (p *PoolInfo) TokenVault() solana.PublicKey {
	if p.Orientation == WSOLInBase {
		return p.PoolQuoteTokenAccount
	}
	return p.PoolBaseTokenAccount
}

// WSOLReserves возвращает резерв WSOL пула в лампортах.
func (p *PoolInfo) WSOLReserves() uint64 {
	if p.Orientation == WSOLInBase {
		return p.BaseReserves
	}
	return p.QuoteReserves
}

// TokenReserves возвращает резерв торгуемого токена в атомарных единицах.
func (p *PoolInfo) TokenReserves() uint64 {
	if p.Orientation == WSOLInBase {
		return p.QuoteReserves
	}
	return p.BaseReserves
}

// ParsePool парсит бинарные данные аккаунта пула. Декодирование —
// всё-или-ничего: при недостаточной длине возвращается ErrMalformedPoolAccount.
func ParsePool(data []byte) (*Pool, error) {
	if len(data) < 8 {
		return nil, ErrMalformedPoolAccount
	}

	// Проверяем discriminator
	for i := 0; i < 8; i++ {
		if data[i] != PoolDiscriminator[i] {
			return nil, ErrMalformedPoolAccount
		}
	}

	pos := 8
	if len(data) < pos+poolAccountSize {
		return nil, ErrMalformedPoolAccount
	}

	pool := &Pool{}
	pool.PoolBump = data[pos]
	pos++
	pool.Index = binary.LittleEndian.Uint16(data[pos : pos+2])
	pos += 2

	pool.Creator = solana.PublicKeyFromBytes(data[pos : pos+32])
	pos += 32
	pool.BaseMint = solana.PublicKeyFromBytes(data[pos : pos+32])
	pos += 32
	pool.QuoteMint = solana.PublicKeyFromBytes(data[pos : pos+32])
	pos += 32
	pool.LPMint = solana.PublicKeyFromBytes(data[pos : pos+32])
	pos += 32
	pool.PoolBaseTokenAccount = solana.PublicKeyFromBytes(data[pos : pos+32])
	pos += 32
	pool.PoolQuoteTokenAccount = solana.PublicKeyFromBytes(data[pos : pos+32])
	pos += 32

	pool.LPSupply = binary.LittleEndian.Uint64(data[pos : pos+8])
	pos += 8

	pool.CoinCreator = solana.PublicKeyFromBytes(data[pos : pos+32])

	return pool, nil
}

// ParseGlobalConfig парсит данные аккаунта GlobalConfig.
func ParseGlobalConfig(data []byte) (*GlobalConfig, error) {
	if len(data) < 8 {
		return nil, ErrMalformedGlobalConfig
	}

	for i := 0; i < 8; i++ {
		if data[i] != GlobalConfigDiscriminator[i] {
			return nil, ErrMalformedGlobalConfig
		}
	}

	pos := 8
	if len(data) < pos+32+8+8+1+(32*8) {
		return nil, ErrMalformedGlobalConfig
	}

	config := &GlobalConfig{}

	config.Admin = solana.PublicKeyFromBytes(data[pos : pos+32])
	pos += 32

	config.LPFeeBasisPoints = binary.LittleEndian.Uint64(data[pos : pos+8])
	pos += 8

	config.ProtocolFeeBasisPoints = binary.LittleEndian.Uint64(data[pos : pos+8])
	pos += 8

	config.DisableFlags = data[pos]
	pos++

	for i := 0; i < 8; i++ {
		config.ProtocolFeeRecipients[i] = solana.PublicKeyFromBytes(data[pos : pos+32])
		pos += 32
	}

	return config, nil
}
