// =============================
// File: internal/dex/pumpswap/escrow.go
// =============================
package pumpswap

import (
	"context"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"

	"github.com/rovshanmuradov/pumpswap-engine/internal/blockchain"
)

// WSOLEscrow — одноразовый токен-аккаунт, в котором wrapped SOL живёт
// ровно одну транзакцию. Адрес выводится из ключа плательщика и свежего
// случайного seed; вероятность коллизии пренебрежимо мала, повторных
// попыток деривации не требуется.
type WSOLEscrow struct {
	Address  solana.PublicKey
	Seed     string
	Lamports uint64 // rent-exempt минимум + сумма сделки + запас

	CreateIx solana.Instruction
	InitIx   solana.Instruction
	CloseIx  solana.Instruction
}

// индекс инструкции CreateAccountWithSeed в системной программе
const systemCreateAccountWithSeedIndex uint32 = 3

// индексы инструкций токен-программы
const (
	tokenInitializeAccountIndex byte = 1
	tokenCloseAccountIndex      byte = 9
)

// NewWSOLEscrow создаёт escrow-аккаунт для wrapped SOL: деривирует адрес,
// рассчитывает требуемые лампорты и готовит три инструкции — создание,
// инициализацию как токен-аккаунта и закрытие с возвратом остатка.
// Инструкция закрытия всегда ставится последней в итоговой транзакции.
func NewWSOLEscrow(ctx context.Context, client blockchain.Client, payer solana.PublicKey, tradeLamports uint64) (*WSOLEscrow, error) {
	rentExempt, err := client.GetMinimumBalanceForRentExemption(ctx, TokenAccountSize)
	if err != nil {
		return nil, fmt.Errorf("failed to get rent-exempt minimum: %w", err)
	}

	// uuid без дефисов — ровно 32 символа, максимум для seed
	seed := strings.ReplaceAll(uuid.NewString(), "-", "")

	address, err := solana.CreateWithSeed(payer, seed, TokenProgramID)
	if err != nil {
		return nil, fmt.Errorf("failed to derive escrow address: %w", err)
	}

	lamports := rentExempt + tradeLamports + EscrowLamportBuffer

	escrow := &WSOLEscrow{
		Address:  address,
		Seed:     seed,
		Lamports: lamports,
	}

	escrow.CreateIx = buildCreateAccountWithSeedInstruction(payer, address, payer, seed, lamports, TokenAccountSize, TokenProgramID)
	escrow.InitIx = buildInitializeTokenAccountInstruction(address, WSOLMint, payer)
	escrow.CloseIx = buildCloseTokenAccountInstruction(address, payer, payer)

	return escrow, nil
}

// buildCreateAccountWithSeedInstruction кодирует системную инструкцию
// CreateAccountWithSeed: u32 индекс + base + seed (u64-длина + байты) +
// lamports + space + owner, всё little-endian.
func buildCreateAccountWithSeedInstruction(
	funding, newAccount, base solana.PublicKey,
	seed string,
	lamports, space uint64,
	owner solana.PublicKey,
) solana.Instruction {
	data := make([]byte, 0, 4+32+8+len(seed)+8+8+32)

	var u32buf [4]byte
	binary.LittleEndian.PutUint32(u32buf[:], systemCreateAccountWithSeedIndex)
	data = append(data, u32buf[:]...)

	data = append(data, base.Bytes()...)

	var u64buf [8]byte
	binary.LittleEndian.PutUint64(u64buf[:], uint64(len(seed)))
	data = append(data, u64buf[:]...)
	data = append(data, []byte(seed)...)

	binary.LittleEndian.PutUint64(u64buf[:], lamports)
	data = append(data, u64buf[:]...)

	binary.LittleEndian.PutUint64(u64buf[:], space)
	data = append(data, u64buf[:]...)

	data = append(data, owner.Bytes()...)

	accountMetas := []*solana.AccountMeta{
		solana.NewAccountMeta(funding, true, true),
		solana.NewAccountMeta(newAccount, true, false),
	}
	if !base.Equals(funding) {
		accountMetas = append(accountMetas, solana.NewAccountMeta(base, false, true))
	}

	return solana.NewInstruction(SystemProgramID, accountMetas, data)
}

// buildInitializeTokenAccountInstruction кодирует InitializeAccount
// токен-программы.
func buildInitializeTokenAccountInstruction(account, mint, owner solana.PublicKey) solana.Instruction {
	accountMetas := []*solana.AccountMeta{
		solana.NewAccountMeta(account, true, false),
		solana.NewAccountMeta(mint, false, false),
		solana.NewAccountMeta(owner, false, false),
		solana.NewAccountMeta(SysVarRentID, false, false),
	}
	return solana.NewInstruction(TokenProgramID, accountMetas, []byte{tokenInitializeAccountIndex})
}

// buildCloseTokenAccountInstruction кодирует CloseAccount токен-программы:
// остаток лампортов уходит на destination.
func buildCloseTokenAccountInstruction(account, destination, owner solana.PublicKey) solana.Instruction {
	accountMetas := []*solana.AccountMeta{
		solana.NewAccountMeta(account, true, false),
		solana.NewAccountMeta(destination, true, false),
		solana.NewAccountMeta(owner, false, true),
	}
	return solana.NewInstruction(TokenProgramID, accountMetas, []byte{tokenCloseAccountIndex})
}
