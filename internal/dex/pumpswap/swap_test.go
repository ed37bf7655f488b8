// =============================
// File: internal/dex/pumpswap/swap_test.go
// =============================
package pumpswap

import (
	"errors"
	"testing"

	solanaGo "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestDEX(t *testing.T, mockClient *MockChainClient, tokenMint solanaGo.PublicKey) *DEX {
	t.Helper()
	cfg := testConfigFor(t, tokenMint)
	d, err := NewDEX(mockClient, MockedWallet(), zap.NewNop(), cfg,
		NewPoolManager(mockClient, zap.NewNop()), DEXOptions{
			BuySlippage:  1.0,
			SellSlippage: 1.0,
		})
	require.NoError(t, err)
	return d
}

func balanceResult(amount string) *rpc.GetTokenAccountBalanceResult {
	return &rpc.GetTokenAccountBalanceResult{
		Value: &rpc.UiTokenAmount{Amount: amount},
	}
}

func TestNewDEX_Validation(t *testing.T) {
	mockClient := new(MockChainClient)
	tokenMint := solanaGo.NewWallet().PublicKey()
	cfg := testConfigFor(t, tokenMint)
	pm := NewPoolManager(mockClient, zap.NewNop())

	_, err := NewDEX(nil, MockedWallet(), zap.NewNop(), cfg, pm, DEXOptions{})
	assert.Error(t, err)

	_, err = NewDEX(mockClient, nil, zap.NewNop(), cfg, pm, DEXOptions{})
	assert.Error(t, err)

	_, err = NewDEX(mockClient, MockedWallet(), zap.NewNop(), cfg, pm, DEXOptions{BuySlippage: 150})
	assert.Error(t, err)

	_, err = NewDEX(mockClient, MockedWallet(), zap.NewNop(), cfg, pm, DEXOptions{SellSlippage: -1})
	assert.Error(t, err)
}

func TestGetTokenBalance_ProcessedThenConfirmed(t *testing.T) {
	mockClient := new(MockChainClient)
	tokenMint := solanaGo.NewWallet().PublicKey()
	d := newTestDEX(t, mockClient, tokenMint)

	ctx, cancel := MockedContext()
	defer cancel()

	mockClient.On("GetTokenAccountBalance", mock.Anything, mock.Anything, rpc.CommitmentProcessed).
		Return((*rpc.GetTokenAccountBalanceResult)(nil), errors.New("node behind")).Once()
	mockClient.On("GetTokenAccountBalance", mock.Anything, mock.Anything, rpc.CommitmentConfirmed).
		Return(balanceResult("123456"), nil).Once()

	balance, err := d.GetTokenBalance(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(123456), balance)
	mockClient.AssertExpectations(t)
}

func TestGetTokenBalance_BothCommitmentsFail(t *testing.T) {
	mockClient := new(MockChainClient)
	tokenMint := solanaGo.NewWallet().PublicKey()
	d := newTestDEX(t, mockClient, tokenMint)

	ctx, cancel := MockedContext()
	defer cancel()

	mockClient.On("GetTokenAccountBalance", mock.Anything, mock.Anything, mock.Anything).
		Return((*rpc.GetTokenAccountBalanceResult)(nil), errors.New("rpc down"))

	_, err := d.GetTokenBalance(ctx)
	require.Error(t, err)

	var balanceErr *BalanceFetchError
	assert.ErrorAs(t, err, &balanceErr)
}

func TestSellPercent_RejectsInvalidPercent(t *testing.T) {
	mockClient := new(MockChainClient)
	tokenMint := solanaGo.NewWallet().PublicKey()
	d := newTestDEX(t, mockClient, tokenMint)

	ctx, cancel := MockedContext()
	defer cancel()

	for _, percent := range []float64{0, -5, 101} {
		result := d.SellPercent(ctx, percent)
		assert.False(t, result.Success)
		assert.Nil(t, result.Payload)
	}
}

func TestTokenDecimals_FetchAndCache(t *testing.T) {
	mockClient := new(MockChainClient)
	tokenMint := solanaGo.NewWallet().PublicKey()
	d := newTestDEX(t, mockClient, tokenMint)

	ctx, cancel := MockedContext()
	defer cancel()

	mintData := make([]byte, 82)
	mintData[44] = 9
	mockClient.On("GetAccountInfo", mock.Anything, tokenMint).
		Return(&rpc.GetAccountInfoResult{
			Value: &rpc.Account{Data: rpc.DataBytesOrJSONFromBytes(mintData)},
		}, nil).Once()

	assert.Equal(t, uint8(9), d.tokenDecimals(ctx, tokenMint))
	// второй вызов обслуживается из кеша
	assert.Equal(t, uint8(9), d.tokenDecimals(ctx, tokenMint))
	mockClient.AssertNumberOfCalls(t, "GetAccountInfo", 1)
}

func TestTokenDecimals_FallbackOnError(t *testing.T) {
	mockClient := new(MockChainClient)
	tokenMint := solanaGo.NewWallet().PublicKey()
	d := newTestDEX(t, mockClient, tokenMint)

	ctx, cancel := MockedContext()
	defer cancel()

	mockClient.On("GetAccountInfo", mock.Anything, tokenMint).
		Return((*rpc.GetAccountInfoResult)(nil), errors.New("rpc down"))

	assert.Equal(t, uint8(DefaultTokenDecimals), d.tokenDecimals(ctx, tokenMint))
}

func TestReconcileResult_EstimatesWhenLedgerUnavailable(t *testing.T) {
	mockClient := new(MockChainClient)
	tokenMint := solanaGo.NewWallet().PublicKey()
	d := newTestDEX(t, mockClient, tokenMint)

	pool := testPoolInfo(tokenMint, 1_000_000_000_000, 100_000_000_000)
	sig := solanaGo.Signature{1, 2, 3}

	result := d.reconcileResult(sig, nil, pool, &GlobalConfig{}, true, 0.5, 123.456789, 0.00405)

	// подтверждённая сделка без записи леджера остаётся успешной
	require.True(t, result.Success)
	assert.Contains(t, result.Message, "estimates")
	require.NotNil(t, result.Payload)
	assert.Equal(t, sig, result.Payload.Signature)
	assert.Equal(t, 0.5, result.Payload.SOLAmount)
	assert.Equal(t, 123.456789, result.Payload.TokenAmount)
	assert.Equal(t, 0.00405, result.Payload.Price)
}
