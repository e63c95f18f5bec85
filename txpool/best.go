package txpool

import (
	"container/heap"

	"github.com/forgeth/forgeth/core/types"
)

// BestTransactions iterates a snapshot of the pool in priority order:
// across senders, highest effective tip first with pool arrival order as
// tiebreak; within a sender, strictly ascending nonce. Each transaction is
// yielded at most once.
//
// The builder feeds decisions back through MarkInvalid and SkipBlobs;
// MarkInvalid drops the sender's not-yet-yielded descendants, SkipBlobs
// suppresses all further blob transactions.
type BestTransactions struct {
	byPrice   priceHeap
	skipBlobs bool
}

// senderQueue is one sender's executable transactions in nonce order. The
// head transaction carries the queue's priority.
type senderQueue struct {
	sender types.Address
	txs    []*LazyTransaction // nonce ascending; txs[0] is the head
}

func (q *senderQueue) head() *LazyTransaction { return q.txs[0] }

type priceHeap []*senderQueue

func (h priceHeap) Len() int { return len(h) }

func (h priceHeap) Less(i, j int) bool {
	a, b := h[i].head(), h[j].head()
	if c := a.tip.Cmp(b.tip); c != 0 {
		return c > 0
	}
	return a.arrival < b.arrival
}

func (h priceHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *priceHeap) Push(x any) { *h = append(*h, x.(*senderQueue)) }

func (h *priceHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// newBestTransactions builds the iterator from per-sender nonce-ordered
// queues.
func newBestTransactions(queues []*senderQueue) *BestTransactions {
	best := &BestTransactions{}
	for _, q := range queues {
		if len(q.txs) > 0 {
			best.byPrice = append(best.byPrice, q)
		}
	}
	heap.Init(&best.byPrice)
	return best
}

// Next returns the highest-priority remaining transaction, or nil when the
// pass is exhausted. Yielding a transaction promotes the sender's next
// nonce into contention.
func (bt *BestTransactions) Next() *LazyTransaction {
	for bt.byPrice.Len() > 0 {
		q := bt.byPrice[0]
		lt := q.head()

		if bt.skipBlobs && lt.Tx.IsBlob() {
			// Dropping a blob transaction also strands the sender's
			// later nonces.
			heap.Pop(&bt.byPrice)
			continue
		}

		if len(q.txs) > 1 {
			q.txs = q.txs[1:]
			heap.Fix(&bt.byPrice, 0)
		} else {
			heap.Pop(&bt.byPrice)
		}
		return lt
	}
	return nil
}

// MarkInvalid removes the sender's remaining transactions from the pass:
// they depend on the invalid transaction's nonce and cannot execute.
func (bt *BestTransactions) MarkInvalid(lt *LazyTransaction) {
	for i, q := range bt.byPrice {
		if q.sender == lt.Sender {
			heap.Remove(&bt.byPrice, i)
			return
		}
	}
}

// SkipBlobs excludes all further blob transactions from the pass. Used once
// the block's blob gas budget is exactly full.
func (bt *BestTransactions) SkipBlobs() {
	bt.skipBlobs = true
}
