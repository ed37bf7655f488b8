// internal/blockchain/solbc/pool.go
package solbc

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/pumpswap-engine/internal/blockchain"
)

const (
	maxPoolRetries = 3
	retryDelay     = 100 * time.Millisecond
)

var ErrNoActiveClients = errors.New("no active RPC clients in pool")

// nodeMetrics хранит метрики отдельного RPC-узла.
type nodeMetrics struct {
	mutex        sync.RWMutex
	successCount uint64
	errorCount   uint64
	latency      time.Duration
}

// NodeClient – один RPC-узел пула с флагом активности и метриками.
type NodeClient struct {
	client  *Client
	url     string
	mutex   sync.RWMutex
	active  bool
	metrics nodeMetrics
}

func (n *NodeClient) setActive(state bool) {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	n.active = state
}

func (n *NodeClient) isActive() bool {
	n.mutex.RLock()
	defer n.mutex.RUnlock()
	return n.active
}

func (n *NodeClient) updateMetrics(success bool, latency time.Duration) {
	n.metrics.mutex.Lock()
	defer n.metrics.mutex.Unlock()

	if success {
		atomic.AddUint64(&n.metrics.successCount, 1)
	} else {
		atomic.AddUint64(&n.metrics.errorCount, 1)
	}

	n.metrics.latency = (n.metrics.latency + latency) / 2 // Скользящее среднее
}

// GetMetrics возвращает накопленные метрики узла.
func (n *NodeClient) GetMetrics() (successCount uint64, errorCount uint64, avgLatency time.Duration) {
	n.metrics.mutex.RLock()
	defer n.metrics.mutex.RUnlock()
	return atomic.LoadUint64(&n.metrics.successCount),
		atomic.LoadUint64(&n.metrics.errorCount),
		n.metrics.latency
}

// Pool – пул RPC-узлов с round-robin балансировкой и failover.
// Реализует blockchain.Client и безопасен для конкурентного использования:
// один экземпляр разделяется между всеми параллельными трейдами.
type Pool struct {
	clients   []*NodeClient
	logger    *zap.Logger
	mutex     sync.Mutex
	currIndex int
}

// NewPool создает новый пул клиентов по списку RPC URL.
func NewPool(rpcURLs []string, logger *zap.Logger) *Pool {
	clients := make([]*NodeClient, 0, len(rpcURLs))
	for _, url := range rpcURLs {
		clients = append(clients, &NodeClient{
			client: NewClient(url, logger),
			url:    url,
			active: true,
		})
	}
	return &Pool{
		clients: clients,
		logger:  logger.Named("rpc_pool"),
	}
}

// getNextClient возвращает следующий активный клиент из пула
func (p *Pool) getNextClient() *NodeClient {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	initialIndex := p.currIndex
	for {
		p.currIndex = (p.currIndex + 1) % len(p.clients)
		if p.clients[p.currIndex].isActive() {
			return p.clients[p.currIndex]
		}
		if p.currIndex == initialIndex {
			return nil
		}
	}
}

// HasActiveClients проверяет наличие активных клиентов в пуле
func (p *Pool) HasActiveClients() bool {
	for _, client := range p.clients {
		if client.isActive() {
			return true
		}
	}
	return false
}

// ReviveAll возвращает все узлы в активное состояние.
func (p *Pool) ReviveAll() {
	for _, client := range p.clients {
		client.setActive(true)
	}
}

// execute выполняет операцию с переключением на следующий узел при ошибке.
func (p *Pool) execute(ctx context.Context, operation func(*Client) error) error {
	var lastErr error
	for attempt := 0; attempt < maxPoolRetries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			node := p.getNextClient()
			if node == nil {
				// Все узлы помечены неактивными – даем им второй шанс,
				// иначе пул навсегда останется пустым.
				p.ReviveAll()
				node = p.getNextClient()
				if node == nil {
					return ErrNoActiveClients
				}
			}

			start := time.Now()
			err := operation(node.client)
			node.updateMetrics(err == nil, time.Since(start))

			if err == nil {
				return nil
			}

			lastErr = err
			if ctx.Err() != nil {
				// Отмена контекста вызывающего – не вина узла,
				// деактивировать его нельзя.
				return ctx.Err()
			}

			p.logger.Debug("RPC node failed, rotating",
				zap.String("url", node.url),
				zap.Error(err))
			node.setActive(false)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryDelay):
			}
		}
	}

	return lastErr
}

func (p *Pool) GetRecentBlockhash(ctx context.Context) (solana.Hash, error) {
	var out solana.Hash
	err := p.execute(ctx, func(c *Client) error {
		var opErr error
		out, opErr = c.GetRecentBlockhash(ctx)
		return opErr
	})
	return out, err
}

func (p *Pool) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	var out solana.Signature
	err := p.execute(ctx, func(c *Client) error {
		var opErr error
		out, opErr = c.SendTransaction(ctx, tx)
		return opErr
	})
	return out, err
}

func (p *Pool) SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts blockchain.TransactionOptions) (solana.Signature, error) {
	var out solana.Signature
	err := p.execute(ctx, func(c *Client) error {
		var opErr error
		out, opErr = c.SendTransactionWithOpts(ctx, tx, opts)
		return opErr
	})
	return out, err
}

func (p *Pool) GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	var out *rpc.GetAccountInfoResult
	err := p.execute(ctx, func(c *Client) error {
		var opErr error
		out, opErr = c.GetAccountInfo(ctx, pubkey)
		return opErr
	})
	return out, err
}

func (p *Pool) GetAccountDataInto(ctx context.Context, pubkey solana.PublicKey, dst interface{}) error {
	return p.execute(ctx, func(c *Client) error {
		return c.GetAccountDataInto(ctx, pubkey, dst)
	})
}

func (p *Pool) GetMultipleAccounts(ctx context.Context, pubkeys []solana.PublicKey) (*rpc.GetMultipleAccountsResult, error) {
	var out *rpc.GetMultipleAccountsResult
	err := p.execute(ctx, func(c *Client) error {
		var opErr error
		out, opErr = c.GetMultipleAccounts(ctx, pubkeys)
		return opErr
	})
	return out, err
}

func (p *Pool) GetProgramAccountsWithOpts(ctx context.Context, programID solana.PublicKey, opts *rpc.GetProgramAccountsOpts) (rpc.GetProgramAccountsResult, error) {
	var out rpc.GetProgramAccountsResult
	err := p.execute(ctx, func(c *Client) error {
		var opErr error
		out, opErr = c.GetProgramAccountsWithOpts(ctx, programID, opts)
		return opErr
	})
	return out, err
}

func (p *Pool) GetSignatureStatuses(ctx context.Context, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	var out *rpc.GetSignatureStatusesResult
	err := p.execute(ctx, func(c *Client) error {
		var opErr error
		out, opErr = c.GetSignatureStatuses(ctx, signatures...)
		return opErr
	})
	return out, err
}

func (p *Pool) GetTransaction(ctx context.Context, signature solana.Signature) (*rpc.GetTransactionResult, error) {
	var out *rpc.GetTransactionResult
	err := p.execute(ctx, func(c *Client) error {
		var opErr error
		out, opErr = c.GetTransaction(ctx, signature)
		return opErr
	})
	return out, err
}

func (p *Pool) GetTokenAccountBalance(ctx context.Context, account solana.PublicKey, commitment rpc.CommitmentType) (*rpc.GetTokenAccountBalanceResult, error) {
	var out *rpc.GetTokenAccountBalanceResult
	err := p.execute(ctx, func(c *Client) error {
		var opErr error
		out, opErr = c.GetTokenAccountBalance(ctx, account, commitment)
		return opErr
	})
	return out, err
}

func (p *Pool) GetBalance(ctx context.Context, pubkey solana.PublicKey, commitment rpc.CommitmentType) (uint64, error) {
	var out uint64
	err := p.execute(ctx, func(c *Client) error {
		var opErr error
		out, opErr = c.GetBalance(ctx, pubkey, commitment)
		return opErr
	})
	return out, err
}

func (p *Pool) GetMinimumBalanceForRentExemption(ctx context.Context, dataSize uint64) (uint64, error) {
	var out uint64
	err := p.execute(ctx, func(c *Client) error {
		var opErr error
		out, opErr = c.GetMinimumBalanceForRentExemption(ctx, dataSize)
		return opErr
	})
	return out, err
}

var _ blockchain.Client = (*Pool)(nil)
