// internal/dex/pumpswap/transaction_test.go
package pumpswap

import (
	"context"
	"errors"
	"testing"
	"time"

	solanaGo "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestLifecycle(client *MockChainClient) *TxLifecycle {
	return NewTxLifecycle(client, MockedWallet(), zap.NewNop(), 5, time.Millisecond)
}

func statusResult(status *rpc.SignatureStatusesResult) *rpc.GetSignatureStatusesResult {
	return &rpc.GetSignatureStatusesResult{Value: []*rpc.SignatureStatusesResult{status}}
}

func TestConfirm_SucceedsOnFifthAttempt(t *testing.T) {
	ctx, cancel := MockedContext()
	defer cancel()

	client := new(MockChainClient)

	inconclusive := statusResult(&rpc.SignatureStatusesResult{
		ConfirmationStatus: rpc.ConfirmationStatusProcessed,
	})
	confirmed := statusResult(&rpc.SignatureStatusesResult{
		ConfirmationStatus: rpc.ConfirmationStatusConfirmed,
	})

	client.On("GetSignatureStatuses", mock.Anything, mock.Anything).Return(inconclusive, nil).Times(4)
	client.On("GetSignatureStatuses", mock.Anything, mock.Anything).Return(confirmed, nil).Once()

	lc := newTestLifecycle(client)
	err := lc.Confirm(ctx, solanaGo.Signature{})
	require.NoError(t, err)

	// ровно пять попыток: четыре неопределённых и одна успешная
	client.AssertNumberOfCalls(t, "GetSignatureStatuses", 5)
}

func TestConfirm_TimeoutAfterConfiguredRetries(t *testing.T) {
	ctx, cancel := MockedContext()
	defer cancel()

	client := new(MockChainClient)
	inconclusive := statusResult(&rpc.SignatureStatusesResult{
		ConfirmationStatus: rpc.ConfirmationStatusProcessed,
	})
	client.On("GetSignatureStatuses", mock.Anything, mock.Anything).Return(inconclusive, nil)

	lc := newTestLifecycle(client)
	err := lc.Confirm(ctx, solanaGo.Signature{})

	assert.ErrorIs(t, err, ErrConfirmationTimeout)
	client.AssertNumberOfCalls(t, "GetSignatureStatuses", 5)
}

func TestConfirm_OnChainErrorAbortsImmediately(t *testing.T) {
	ctx, cancel := MockedContext()
	defer cancel()

	client := new(MockChainClient)
	failed := statusResult(&rpc.SignatureStatusesResult{
		ConfirmationStatus: rpc.ConfirmationStatusConfirmed,
		Err:                map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}},
	})
	client.On("GetSignatureStatuses", mock.Anything, mock.Anything).Return(failed, nil)

	lc := newTestLifecycle(client)
	err := lc.Confirm(ctx, solanaGo.Signature{})

	var onChainErr *OnChainExecutionError
	require.ErrorAs(t, err, &onChainErr)
	// определённый вердикт цепочки — без дальнейших попыток
	client.AssertNumberOfCalls(t, "GetSignatureStatuses", 1)
}

func TestConfirm_TransportErrorsAreInconclusive(t *testing.T) {
	ctx, cancel := MockedContext()
	defer cancel()

	client := new(MockChainClient)
	client.On("GetSignatureStatuses", mock.Anything, mock.Anything).Return(nil, errors.New("rpc down")).Times(2)
	client.On("GetSignatureStatuses", mock.Anything, mock.Anything).Return(statusResult(&rpc.SignatureStatusesResult{
		ConfirmationStatus: rpc.ConfirmationStatusFinalized,
	}), nil).Once()

	lc := newTestLifecycle(client)
	err := lc.Confirm(ctx, solanaGo.Signature{})

	require.NoError(t, err)
	client.AssertNumberOfCalls(t, "GetSignatureStatuses", 3)
}

func TestConfirm_RespectsContextDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	client := new(MockChainClient)
	inconclusive := statusResult(&rpc.SignatureStatusesResult{
		ConfirmationStatus: rpc.ConfirmationStatusProcessed,
	})
	client.On("GetSignatureStatuses", mock.Anything, mock.Anything).Return(inconclusive, nil)

	lc := NewTxLifecycle(client, MockedWallet(), zap.NewNop(), 100, 50*time.Millisecond)
	err := lc.Confirm(ctx, solanaGo.Signature{})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSubmit_NoRetryOnTransportFailure(t *testing.T) {
	ctx, cancel := MockedContext()
	defer cancel()

	client := new(MockChainClient)
	client.On("SendTransaction", mock.Anything, mock.Anything).Return(
		solanaGo.Signature{}, errors.New("connection refused"))

	lc := newTestLifecycle(client)
	_, err := lc.Submit(ctx, &solanaGo.Transaction{})

	var subErr *SubmissionError
	require.ErrorAs(t, err, &subErr)
	// отправка не повторяется
	client.AssertNumberOfCalls(t, "SendTransaction", 1)
}

func TestSubmit_DetectsSlippageExceeded(t *testing.T) {
	ctx, cancel := MockedContext()
	defer cancel()

	client := new(MockChainClient)
	client.On("SendTransaction", mock.Anything, mock.Anything).Return(
		solanaGo.Signature{}, errors.New("custom program error: 0x1774"))

	lc := newTestLifecycle(client)
	_, err := lc.Submit(ctx, &solanaGo.Transaction{})

	var slipErr *SlippageExceededError
	assert.ErrorAs(t, err, &slipErr)
}

func TestBuildAndSign_BlockhashFailure(t *testing.T) {
	ctx, cancel := MockedContext()
	defer cancel()

	client := new(MockChainClient)
	client.On("GetRecentBlockhash", mock.Anything).Return(solanaGo.Hash{}, errors.New("rpc down"))

	lc := newTestLifecycle(client)
	_, err := lc.BuildAndSign(ctx, nil)

	var buildErr *TransactionBuildError
	assert.ErrorAs(t, err, &buildErr)
}
