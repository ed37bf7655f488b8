// =============================
// File: internal/dex/pumpswap/instructions.go
// =============================
package pumpswap

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
)

// Instruction discriminators extracted from the IDL
var (
	buyDiscriminator  = []byte{102, 6, 61, 18, 1, 218, 235, 234}
	sellDiscriminator = []byte{51, 230, 133, 164, 1, 127, 131, 173}
)

// SwapInstructionParams contains all parameters needed to create a swap instruction
type SwapInstructionParams struct {
	// UseBuyDiscriminator выбирает buy- или sell-вариант инструкции.
	// Buy покупает base-актив за quote, sell продаёт base за quote;
	// какой из них соответствует пользовательской покупке токена,
	// зависит от ориентации пула.
	UseBuyDiscriminator bool

	// Account parameters
	PoolAddress                      solana.PublicKey
	User                             solana.PublicKey
	GlobalConfig                     solana.PublicKey
	BaseMint                         solana.PublicKey
	QuoteMint                        solana.PublicKey
	UserBaseTokenAccount             solana.PublicKey
	UserQuoteTokenAccount            solana.PublicKey
	PoolBaseTokenAccount             solana.PublicKey
	PoolQuoteTokenAccount            solana.PublicKey
	ProtocolFeeRecipient             solana.PublicKey
	ProtocolFeeRecipientTokenAccount solana.PublicKey
	BaseTokenProgram                 solana.PublicKey
	QuoteTokenProgram                solana.PublicKey
	EventAuthority                   solana.PublicKey
	ProgramID                        solana.PublicKey
	CoinCreatorVaultATA              solana.PublicKey
	CoinCreatorVaultAuthority        solana.PublicKey

	// For buy: Amount1 = baseAmountOut, Amount2 = maxQuoteAmountIn
	// For sell: Amount1 = baseAmountIn, Amount2 = minQuoteAmountOut
	Amount1 uint64
	Amount2 uint64
}

// createSwapInstruction creates an instruction to buy or sell tokens in PumpSwap
func createSwapInstruction(params *SwapInstructionParams) solana.Instruction {
	data := make([]byte, 8+8+8) // 8 bytes discriminator + 8 bytes amount1 + 8 bytes amount2

	if params.UseBuyDiscriminator {
		copy(data[0:8], buyDiscriminator)
	} else {
		copy(data[0:8], sellDiscriminator)
	}

	binary.LittleEndian.PutUint64(data[8:16], params.Amount1)
	binary.LittleEndian.PutUint64(data[16:24], params.Amount2)

	// Create accounts list in the required order
	accountMetas := []*solana.AccountMeta{
		solana.NewAccountMeta(params.PoolAddress, false, false),
		solana.NewAccountMeta(params.User, true, true),
		solana.NewAccountMeta(params.GlobalConfig, false, false),
		solana.NewAccountMeta(params.BaseMint, false, false),
		solana.NewAccountMeta(params.QuoteMint, false, false),
		solana.NewAccountMeta(params.UserBaseTokenAccount, true, false),
		solana.NewAccountMeta(params.UserQuoteTokenAccount, true, false),
		solana.NewAccountMeta(params.PoolBaseTokenAccount, true, false),
		solana.NewAccountMeta(params.PoolQuoteTokenAccount, true, false),
		solana.NewAccountMeta(params.ProtocolFeeRecipient, false, false),
		solana.NewAccountMeta(params.ProtocolFeeRecipientTokenAccount, true, false),
		solana.NewAccountMeta(params.BaseTokenProgram, false, false),
		solana.NewAccountMeta(params.QuoteTokenProgram, false, false),
		solana.NewAccountMeta(SystemProgramID, false, false),
		solana.NewAccountMeta(AssociatedTokenProgramID, false, false),
		solana.NewAccountMeta(params.EventAuthority, false, false),
		solana.NewAccountMeta(params.ProgramID, false, false),
		solana.NewAccountMeta(params.CoinCreatorVaultATA, true, false),
		solana.NewAccountMeta(params.CoinCreatorVaultAuthority, false, false),
	}

	return solana.NewInstruction(params.ProgramID, accountMetas, data)
}

// preparePriorityInstructions подготавливает инструкции лимита и цены
// вычислительных единиц. Ценовая инструкция добавляется только при
// положительной комиссии.
func preparePriorityInstructions(computeUnits uint32, priorityFeeMicroLamports uint64) []solana.Instruction {
	var instructions []solana.Instruction
	if computeUnits > 0 {
		instructions = append(instructions,
			computebudget.NewSetComputeUnitLimitInstruction(computeUnits).Build())
	}
	if priorityFeeMicroLamports > 0 {
		instructions = append(instructions,
			computebudget.NewSetComputeUnitPriceInstruction(priorityFeeMicroLamports).Build())
	}
	return instructions
}

// swapAccounts описывает разрешённые аккаунты, общие для buy и sell.
type swapAccounts struct {
	UserTokenATA              solana.PublicKey
	ProtocolFeeRecipient      solana.PublicKey
	ProtocolFeeRecipientATA   solana.PublicKey
	CoinCreatorVaultATA       solana.PublicKey
	CoinCreatorVaultAuthority solana.PublicKey
}

// resolveSwapAccounts разрешает все производные аккаунты инструкции свапа.
func resolveSwapAccounts(cfg *Config, global *GlobalConfig, pool *PoolInfo, user solana.PublicKey) (*swapAccounts, error) {
	userTokenATA, _, err := solana.FindAssociatedTokenAddress(user, pool.TokenMint())
	if err != nil {
		return nil, &TransactionBuildError{Stage: "derive user token ATA", Err: err}
	}

	feeRecipient := solana.PublicKeyFromBytes(make([]byte, 32))
	if !global.ProtocolFeeRecipients[0].IsZero() {
		feeRecipient = global.ProtocolFeeRecipients[0]
	}
	feeRecipientATA, _, err := solana.FindAssociatedTokenAddress(feeRecipient, pool.QuoteMint)
	if err != nil {
		return nil, &TransactionBuildError{Stage: "derive fee recipient ATA", Err: err}
	}

	vaultAuthority, _, err := cfg.DeriveCoinCreatorVaultAuthority(pool.CoinCreator)
	if err != nil {
		return nil, &TransactionBuildError{Stage: "derive coin creator vault authority", Err: err}
	}
	vaultATA, _, err := solana.FindAssociatedTokenAddress(vaultAuthority, pool.QuoteMint)
	if err != nil {
		return nil, &TransactionBuildError{Stage: "derive coin creator vault ATA", Err: err}
	}

	return &swapAccounts{
		UserTokenATA:              userTokenATA,
		ProtocolFeeRecipient:      feeRecipient,
		ProtocolFeeRecipientATA:   feeRecipientATA,
		CoinCreatorVaultATA:       vaultATA,
		CoinCreatorVaultAuthority: vaultAuthority,
	}, nil
}

// fillSwapParams заполняет параметры инструкции свапа с учётом ориентации:
// escrow подставляется в слот WSOL, пользовательский ATA — в слот токена.
func fillSwapParams(cfg *Config, pool *PoolInfo, accounts *swapAccounts, user, escrowAddress solana.PublicKey) *SwapInstructionParams {
	params := &SwapInstructionParams{
		PoolAddress:                      pool.Address,
		User:                             user,
		GlobalConfig:                     cfg.GlobalConfig,
		BaseMint:                         pool.BaseMint,
		QuoteMint:                        pool.QuoteMint,
		PoolBaseTokenAccount:             pool.PoolBaseTokenAccount,
		PoolQuoteTokenAccount:            pool.PoolQuoteTokenAccount,
		ProtocolFeeRecipient:             accounts.ProtocolFeeRecipient,
		ProtocolFeeRecipientTokenAccount: accounts.ProtocolFeeRecipientATA,
		BaseTokenProgram:                 TokenProgramID,
		QuoteTokenProgram:                TokenProgramID,
		EventAuthority:                   cfg.EventAuthority,
		ProgramID:                        cfg.ProgramID,
		CoinCreatorVaultATA:              accounts.CoinCreatorVaultATA,
		CoinCreatorVaultAuthority:        accounts.CoinCreatorVaultAuthority,
	}

	if pool.Orientation == WSOLInBase {
		params.UserBaseTokenAccount = escrowAddress
		params.UserQuoteTokenAccount = accounts.UserTokenATA
	} else {
		params.UserBaseTokenAccount = accounts.UserTokenATA
		params.UserQuoteTokenAccount = escrowAddress
	}

	return params
}

// BuyBuildInput собирает всё, что нужно для сборки инструкций покупки.
type BuyBuildInput struct {
	Config        *Config
	Global        *GlobalConfig
	Pool          *PoolInfo
	Quote         *BuyQuote
	Escrow        *WSOLEscrow
	User          solana.PublicKey
	CreateATAIx   solana.Instruction
	TokenDecimals uint8
	PriorityFee   uint64 // микролампорты за вычислительную единицу
}

// BuildBuyInstructions собирает упорядоченный список инструкций покупки:
// [priority fee?] → escrow create → escrow init → ATA create → swap →
// escrow close. Порядок значим: закрытие escrow должно быть последним,
// чтобы неизрасходованный WSOL атомарно вернулся плательщику.
func BuildBuyInstructions(in BuyBuildInput) ([]solana.Instruction, error) {
	accounts, err := resolveSwapAccounts(in.Config, in.Global, in.Pool, in.User)
	if err != nil {
		return nil, err
	}

	params := fillSwapParams(in.Config, in.Pool, accounts, in.User, in.Escrow.Address)

	// Усечение до атомарных единиц происходит только здесь.
	switch in.Pool.Orientation {
	case WSOLInBase:
		// Продаём base (WSOL) за quote (токен): вся внесённая сумма
		// фиксируется, дисконтированный выход токена служит нижней границей.
		params.UseBuyDiscriminator = false
		params.Amount1 = SolToLamports(in.Quote.SOLIn)
		params.Amount2 = TokensToRaw(in.Quote.TokenOut, in.TokenDecimals)
	case WSOLInQuote:
		// Покупаем base (токен) за quote (WSOL) с верхней границей расхода.
		params.UseBuyDiscriminator = true
		params.Amount1 = TokensToRaw(in.Quote.TokenOut, in.TokenDecimals)
		params.Amount2 = SolToLamports(in.Quote.MaxSOLSpend)
	}

	if params.Amount1 == 0 {
		return nil, &TransactionBuildError{Stage: "amount truncation", Err: fmt.Errorf("trade amount truncated to zero")}
	}

	var instructions []solana.Instruction
	instructions = append(instructions, preparePriorityInstructions(in.Config.ComputeUnits, in.PriorityFee)...)
	instructions = append(instructions, in.Escrow.CreateIx, in.Escrow.InitIx)
	if in.CreateATAIx != nil {
		instructions = append(instructions, in.CreateATAIx)
	}
	instructions = append(instructions, createSwapInstruction(params))
	instructions = append(instructions, in.Escrow.CloseIx)

	return instructions, nil
}

// SellBuildInput собирает всё, что нужно для сборки инструкций продажи.
type SellBuildInput struct {
	Config        *Config
	Global        *GlobalConfig
	Pool          *PoolInfo
	Quote         *SellQuote
	Escrow        *WSOLEscrow
	User          solana.PublicKey
	TokenDecimals uint8
	PriorityFee   uint64

	// FullExit — сделка исчерпывает весь остаток токена; в этом случае
	// опустевший ATA закрывается для возврата ренты. Оптимизация
	// действует только когда WSOL не в base-слоте.
	FullExit bool
}

// BuildSellInstructions собирает упорядоченный список инструкций продажи.
// Выручка в WSOL приходит на escrow, закрытие которого последней
// инструкцией разворачивает её в SOL.
func BuildSellInstructions(in SellBuildInput) ([]solana.Instruction, error) {
	accounts, err := resolveSwapAccounts(in.Config, in.Global, in.Pool, in.User)
	if err != nil {
		return nil, err
	}

	params := fillSwapParams(in.Config, in.Pool, accounts, in.User, in.Escrow.Address)

	switch in.Pool.Orientation {
	case WSOLInQuote:
		// Продаём base (токен) за quote (WSOL).
		params.UseBuyDiscriminator = false
		params.Amount1 = TokensToRaw(in.Quote.TokenIn, in.TokenDecimals)
		params.Amount2 = SolToLamports(in.Quote.MinSOLOut)
	case WSOLInBase:
		// Выкупаем base (WSOL) за quote (токен): ожидаемая выручка задаёт
		// точное количество base, весь объём токена — потолок расхода quote.
		// MinSOLOut здесь не участвует: в buy-форме Amount1 исполняется
		// точно, а не как нижняя граница.
		params.UseBuyDiscriminator = true
		params.Amount1 = SolToLamports(in.Quote.ExpectedSOL)
		params.Amount2 = TokensToRaw(in.Quote.TokenIn, in.TokenDecimals)
	}

	if params.Amount1 == 0 || TokensToRaw(in.Quote.TokenIn, in.TokenDecimals) == 0 {
		return nil, &TransactionBuildError{Stage: "amount truncation", Err: fmt.Errorf("sell amount truncated to zero")}
	}

	var instructions []solana.Instruction
	instructions = append(instructions, preparePriorityInstructions(in.Config.ComputeUnits, in.PriorityFee)...)
	instructions = append(instructions, in.Escrow.CreateIx, in.Escrow.InitIx)
	instructions = append(instructions, createSwapInstruction(params))

	if in.FullExit && in.Pool.Orientation != WSOLInBase {
		instructions = append(instructions,
			buildCloseTokenAccountInstruction(accounts.UserTokenATA, in.User, in.User))
	}

	instructions = append(instructions, in.Escrow.CloseIx)

	return instructions, nil
}
