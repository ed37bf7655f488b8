// internal/dex/pumpswap/mocks_test.go
package pumpswap

import (
	"context"
	"encoding/binary"
	"time"

	solanaGo "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/mock"

	"github.com/rovshanmuradov/pumpswap-engine/internal/blockchain"
	"github.com/rovshanmuradov/pumpswap-engine/internal/wallet"
)

const defaultTestTimeout = 10 * time.Second

// MockChainClient реализует интерфейс blockchain.Client
type MockChainClient struct {
	mock.Mock
}

func (m *MockChainClient) GetRecentBlockhash(ctx context.Context) (solanaGo.Hash, error) {
	args := m.Called(ctx)
	return args.Get(0).(solanaGo.Hash), args.Error(1)
}

func (m *MockChainClient) SendTransaction(ctx context.Context, tx *solanaGo.Transaction) (solanaGo.Signature, error) {
	args := m.Called(ctx, tx)
	return args.Get(0).(solanaGo.Signature), args.Error(1)
}

func (m *MockChainClient) SendTransactionWithOpts(ctx context.Context, tx *solanaGo.Transaction, opts blockchain.TransactionOptions) (solanaGo.Signature, error) {
	args := m.Called(ctx, tx, opts)
	return args.Get(0).(solanaGo.Signature), args.Error(1)
}

func (m *MockChainClient) GetAccountInfo(ctx context.Context, pubkey solanaGo.PublicKey) (*rpc.GetAccountInfoResult, error) {
	args := m.Called(ctx, pubkey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rpc.GetAccountInfoResult), args.Error(1)
}

func (m *MockChainClient) GetAccountDataInto(ctx context.Context, pubkey solanaGo.PublicKey, dst interface{}) error {
	args := m.Called(ctx, pubkey, dst)
	return args.Error(0)
}

func (m *MockChainClient) GetMultipleAccounts(ctx context.Context, pubkeys []solanaGo.PublicKey) (*rpc.GetMultipleAccountsResult, error) {
	args := m.Called(ctx, pubkeys)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rpc.GetMultipleAccountsResult), args.Error(1)
}

func (m *MockChainClient) GetProgramAccountsWithOpts(ctx context.Context, programID solanaGo.PublicKey, opts *rpc.GetProgramAccountsOpts) (rpc.GetProgramAccountsResult, error) {
	args := m.Called(ctx, programID, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(rpc.GetProgramAccountsResult), args.Error(1)
}

func (m *MockChainClient) GetSignatureStatuses(ctx context.Context, signatures ...solanaGo.Signature) (*rpc.GetSignatureStatusesResult, error) {
	args := m.Called(ctx, signatures)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rpc.GetSignatureStatusesResult), args.Error(1)
}

func (m *MockChainClient) GetTransaction(ctx context.Context, signature solanaGo.Signature) (*rpc.GetTransactionResult, error) {
	args := m.Called(ctx, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rpc.GetTransactionResult), args.Error(1)
}

func (m *MockChainClient) GetTokenAccountBalance(ctx context.Context, account solanaGo.PublicKey, commitment rpc.CommitmentType) (*rpc.GetTokenAccountBalanceResult, error) {
	args := m.Called(ctx, account, commitment)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*rpc.GetTokenAccountBalanceResult), args.Error(1)
}

func (m *MockChainClient) GetBalance(ctx context.Context, pubkey solanaGo.PublicKey, commitment rpc.CommitmentType) (uint64, error) {
	args := m.Called(ctx, pubkey, commitment)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockChainClient) GetMinimumBalanceForRentExemption(ctx context.Context, dataSize uint64) (uint64, error) {
	args := m.Called(ctx, dataSize)
	return args.Get(0).(uint64), args.Error(1)
}

var _ blockchain.Client = (*MockChainClient)(nil)

// MockedContext создает контекст с таймаутом для тестов
func MockedContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), defaultTestTimeout)
}

// MockedWallet создает тестовый кошелек
func MockedWallet() *wallet.Wallet {
	w := solanaGo.NewWallet()
	return &wallet.Wallet{
		PrivateKey: w.PrivateKey,
		PublicKey:  w.PublicKey(),
	}
}

// encodePoolAccount собирает валидные бинарные данные аккаунта пула.
func encodePoolAccount(p *Pool) []byte {
	data := make([]byte, 0, 8+poolAccountSize)
	data = append(data, PoolDiscriminator...)
	data = append(data, p.PoolBump)

	var u16buf [2]byte
	binary.LittleEndian.PutUint16(u16buf[:], p.Index)
	data = append(data, u16buf[:]...)

	data = append(data, p.Creator.Bytes()...)
	data = append(data, p.BaseMint.Bytes()...)
	data = append(data, p.QuoteMint.Bytes()...)
	data = append(data, p.LPMint.Bytes()...)
	data = append(data, p.PoolBaseTokenAccount.Bytes()...)
	data = append(data, p.PoolQuoteTokenAccount.Bytes()...)

	var u64buf [8]byte
	binary.LittleEndian.PutUint64(u64buf[:], p.LPSupply)
	data = append(data, u64buf[:]...)

	data = append(data, p.CoinCreator.Bytes()...)
	return data
}

// encodeGlobalConfigAccount собирает валидные бинарные данные GlobalConfig.
func encodeGlobalConfigAccount(g *GlobalConfig) []byte {
	data := make([]byte, 0, 8+32+8+8+1+32*8)
	data = append(data, GlobalConfigDiscriminator...)
	data = append(data, g.Admin.Bytes()...)

	var u64buf [8]byte
	binary.LittleEndian.PutUint64(u64buf[:], g.LPFeeBasisPoints)
	data = append(data, u64buf[:]...)
	binary.LittleEndian.PutUint64(u64buf[:], g.ProtocolFeeBasisPoints)
	data = append(data, u64buf[:]...)

	data = append(data, g.DisableFlags)
	for i := 0; i < 8; i++ {
		data = append(data, g.ProtocolFeeRecipients[i].Bytes()...)
	}
	return data
}

// encodeTokenAccountWithAmount собирает данные токен-аккаунта, в которых
// заполнено только поле amount по фиксированному смещению.
func encodeTokenAccountWithAmount(amount uint64) []byte {
	data := make([]byte, TokenAccountSize)
	binary.LittleEndian.PutUint64(data[TokenAccountAmountOffset:TokenAccountAmountOffset+TokenAccountAmountSize], amount)
	return data
}

// testPoolInfo строит PoolInfo с токеном в base-слоте и WSOL в quote-слоте.
func testPoolInfo(tokenMint solanaGo.PublicKey, tokenReserves, wsolReserves uint64) *PoolInfo {
	return &PoolInfo{
		Address:               solanaGo.NewWallet().PublicKey(),
		BaseMint:              tokenMint,
		QuoteMint:             WSOLMint,
		BaseReserves:          tokenReserves,
		QuoteReserves:         wsolReserves,
		LPSupply:              1_000_000,
		PoolBaseTokenAccount:  solanaGo.NewWallet().PublicKey(),
		PoolQuoteTokenAccount: solanaGo.NewWallet().PublicKey(),
		CoinCreator:           solanaGo.NewWallet().PublicKey(),
		Orientation:           WSOLInQuote,
	}
}

// testPoolInfoReversed строит PoolInfo с WSOL в base-слоте.
func testPoolInfoReversed(tokenMint solanaGo.PublicKey, wsolReserves, tokenReserves uint64) *PoolInfo {
	return &PoolInfo{
		Address:               solanaGo.NewWallet().PublicKey(),
		BaseMint:              WSOLMint,
		QuoteMint:             tokenMint,
		BaseReserves:          wsolReserves,
		QuoteReserves:         tokenReserves,
		LPSupply:              1_000_000,
		PoolBaseTokenAccount:  solanaGo.NewWallet().PublicKey(),
		PoolQuoteTokenAccount: solanaGo.NewWallet().PublicKey(),
		CoinCreator:           solanaGo.NewWallet().PublicKey(),
		Orientation:           WSOLInBase,
	}
}
