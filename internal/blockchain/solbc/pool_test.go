// internal/blockchain/solbc/pool_test.go
package solbc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testPool(t *testing.T, urls ...string) *Pool {
	t.Helper()
	if len(urls) == 0 {
		urls = []string{"https://rpc1.example.com", "https://rpc2.example.com"}
	}
	return NewPool(urls, zap.NewNop())
}

func TestExecute_RotatesAndDeactivatesFailingNodes(t *testing.T) {
	p := testPool(t)

	calls := 0
	opErr := errors.New("node unavailable")
	err := p.execute(context.Background(), func(c *Client) error {
		calls++
		return opErr
	})

	require.ErrorIs(t, err, opErr)
	assert.Equal(t, maxPoolRetries, calls)
	for _, node := range p.clients {
		_, errCount, _ := node.GetMetrics()
		assert.NotZero(t, errCount)
	}
}

func TestExecute_SucceedsAfterFailover(t *testing.T) {
	p := testPool(t)

	calls := 0
	err := p.execute(context.Background(), func(c *Client) error {
		calls++
		if calls == 1 {
			return errors.New("node unavailable")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.True(t, p.HasActiveClients())
}

func TestExecute_CancellationDoesNotDeactivateNode(t *testing.T) {
	p := testPool(t, "https://rpc1.example.com")

	ctx, cancel := context.WithCancel(context.Background())
	err := p.execute(ctx, func(c *Client) error {
		// отмена приходит во время выполнения операции
		cancel()
		return ctx.Err()
	})

	require.ErrorIs(t, err, context.Canceled)
	// сбой по вине вызывающего не выводит узел из пула
	assert.True(t, p.clients[0].isActive())
}

func TestExecute_WaitBetweenAttemptsRespectsContext(t *testing.T) {
	p := testPool(t)

	ctx, cancel := context.WithTimeout(context.Background(), retryDelay/2)
	defer cancel()

	start := time.Now()
	err := p.execute(ctx, func(c *Client) error {
		return errors.New("node unavailable")
	})

	require.ErrorIs(t, err, context.DeadlineExceeded)
	// дедлайн истекает в паузе между попытками, а не после всех ретраев
	assert.Less(t, time.Since(start), maxPoolRetries*retryDelay)
}

func TestExecute_RevivesExhaustedPool(t *testing.T) {
	p := testPool(t, "https://rpc1.example.com")
	p.clients[0].setActive(false)

	err := p.execute(context.Background(), func(c *Client) error {
		return nil
	})

	require.NoError(t, err)
	assert.True(t, p.clients[0].isActive())
}
