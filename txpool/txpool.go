package txpool

import (
	"fmt"
	"sort"
	"sync"

	"github.com/forgeth/forgeth/core/types"
)

// TxPool is an in-memory transaction pool. It tracks admission order for
// the priority tiebreak and stores blob sidecars keyed by transaction hash.
type TxPool struct {
	mu       sync.RWMutex
	all      []*poolTx
	sidecars map[types.Hash]*types.BlobTxSidecar
	arrival  uint64
}

type poolTx struct {
	tx      *types.Transaction
	sender  types.Address
	arrival uint64
}

// New creates an empty pool.
func New() *TxPool {
	return &TxPool{
		sidecars: make(map[types.Hash]*types.BlobTxSidecar),
	}
}

// Add admits a transaction. The sender must already be recovered and cached
// on the transaction.
func (p *TxPool) Add(tx *types.Transaction) error {
	sender := tx.Sender()
	if sender.IsZero() {
		return ErrNoSender
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.all = append(p.all, &poolTx{tx: tx, sender: sender, arrival: p.arrival})
	p.arrival++
	return nil
}

// AddBlob admits a blob transaction together with its sidecar.
func (p *TxPool) AddBlob(tx *types.Transaction, sidecar *types.BlobTxSidecar) error {
	if !tx.IsBlob() {
		return fmt.Errorf("txpool: transaction %s is not a blob transaction", tx.Hash())
	}
	if err := p.Add(tx); err != nil {
		return err
	}
	p.mu.Lock()
	p.sidecars[tx.Hash()] = sidecar
	p.mu.Unlock()
	return nil
}

// Len returns the number of pooled transactions.
func (p *TxPool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.all)
}

// BestTransactions implements Pool. The pass operates on a snapshot:
// transactions added after the call do not appear. Transactions that cannot
// pay the pass's base fee (or blob fee) are excluded together with their
// descendants.
func (p *TxPool) BestTransactions(attrs BestAttributes) *BestTransactions {
	p.mu.RLock()
	defer p.mu.RUnlock()

	bySender := make(map[types.Address][]*LazyTransaction)
	for _, pt := range p.all {
		lt := &LazyTransaction{
			Tx:      pt.tx,
			Sender:  pt.sender,
			arrival: pt.arrival,
		}
		bySender[pt.sender] = append(bySender[pt.sender], lt)
	}

	var queues []*senderQueue
	for sender, txs := range bySender {
		sort.Slice(txs, func(i, j int) bool {
			return txs[i].Tx.Nonce() < txs[j].Tx.Nonce()
		})
		// Cut the queue at the first unpayable transaction: later nonces
		// depend on it.
		kept := txs[:0]
		for _, lt := range txs {
			tip, err := lt.Tx.EffectiveGasTip(attrs.BaseFee)
			if err != nil {
				break
			}
			if lt.Tx.IsBlob() && attrs.BlobFee != nil {
				if feeCap := lt.Tx.BlobGasFeeCap(); feeCap == nil || feeCap.Cmp(attrs.BlobFee) < 0 {
					break
				}
			}
			lt.tip = tip
			kept = append(kept, lt)
		}
		if len(kept) > 0 {
			queues = append(queues, &senderQueue{sender: sender, txs: kept})
		}
	}
	return newBestTransactions(queues)
}

// BlobSidecars implements Pool.
func (p *TxPool) BlobSidecars(hashes []types.Hash) ([]*types.BlobTxSidecar, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*types.BlobTxSidecar, len(hashes))
	for i, h := range hashes {
		sc, ok := p.sidecars[h]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNoSidecar, h)
		}
		out[i] = sc
	}
	return out, nil
}
