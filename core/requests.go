package core

import (
	"encoding/binary"

	"github.com/forgeth/forgeth/core/types"
	"github.com/forgeth/forgeth/crypto"
	"github.com/forgeth/forgeth/state"
)

// Execution-layer requests (EIP-7685): deposits parsed from the deposit
// contract's receipts (EIP-6110) and withdrawal requests drained from the
// EIP-7002 system contract's storage queue.

// DepositContractAddress is the canonical beacon chain deposit contract.
var DepositContractAddress = types.HexToAddress("0x00000000219ab540356cBB839Cbe05303d7705Fa")

// DepositEventSignature is keccak256("DepositEvent(bytes,bytes,bytes,bytes,bytes)").
var DepositEventSignature = crypto.Keccak256Hash([]byte("DepositEvent(bytes,bytes,bytes,bytes,bytes)"))

// depositRequestSize is pubkey(48) + credentials(32) + amount(8) +
// signature(96) + index(8).
const depositRequestSize = 192

// WithdrawalRequestAddress is the EIP-7002 withdrawal request system
// contract.
var WithdrawalRequestAddress = types.HexToAddress("0x0c15F14308530b7CDB8460094BbB9cC28b9AaAAb")

// EIP-7002 storage layout and limits.
const (
	withdrawalQueueHeadSlot     = 2
	withdrawalQueueTailSlot     = 3
	withdrawalQueueStorageBase  = 4
	withdrawalQueueSlotsPerItem = 3

	// MaxWithdrawalRequestsPerBlock bounds how many queued requests are
	// dequeued into one block.
	MaxWithdrawalRequestsPerBlock = 16
)

// CollectRequests gathers the block's execution-layer requests: deposits
// from the given receipts and withdrawal requests dequeued from state.
// Only called for Prague-active blocks.
func CollectRequests(statedb *state.BuildState, receipts types.Receipts) types.Requests {
	var requests types.Requests
	for _, data := range ParseDepositLogs(receipts) {
		requests = append(requests, &types.Request{Type: types.DepositRequestType, Data: data})
	}
	for _, data := range DequeueWithdrawalRequests(statedb) {
		requests = append(requests, &types.Request{Type: types.WithdrawalRequestType, Data: data})
	}
	return requests
}

// ParseDepositLogs extracts deposit request payloads from the receipts of
// successful transactions that emitted DepositEvent from the deposit
// contract. Each payload is the EIP-6110 flat encoding:
// pubkey || withdrawal_credentials || amount || signature || index.
func ParseDepositLogs(receipts types.Receipts) [][]byte {
	var deposits [][]byte
	for _, receipt := range receipts {
		if receipt.Status != types.ReceiptStatusSuccessful {
			continue
		}
		for _, log := range receipt.Logs {
			if log.Address != DepositContractAddress {
				continue
			}
			if len(log.Topics) < 1 || log.Topics[0] != DepositEventSignature {
				continue
			}
			data, ok := parseDepositEventData(log.Data)
			if !ok {
				continue // malformed logs are skipped, not fatal
			}
			deposits = append(deposits, data)
		}
	}
	return deposits
}

// parseDepositEventData decodes the ABI encoding of
// DepositEvent(bytes pubkey, bytes withdrawal_credentials, bytes amount,
// bytes signature, bytes index): 5 offset words followed by 5
// length-prefixed dynamic byte fields.
func parseDepositEventData(data []byte) ([]byte, bool) {
	if len(data) < 512 {
		return nil, false
	}
	wantLen := [5]int{48, 32, 8, 96, 8}

	out := make([]byte, 0, depositRequestSize)
	for i := 0; i < 5; i++ {
		offset := int(binary.BigEndian.Uint64(data[i*32+24 : (i+1)*32]))
		if offset+32 > len(data) {
			return nil, false
		}
		length := int(binary.BigEndian.Uint64(data[offset+24 : offset+32]))
		if length != wantLen[i] {
			return nil, false
		}
		start := offset + 32
		if start+length > len(data) {
			return nil, false
		}
		out = append(out, data[start:start+length]...)
	}
	return out, true
}

// DequeueWithdrawalRequests drains up to MaxWithdrawalRequestsPerBlock
// entries from the EIP-7002 storage queue and advances the head pointer,
// resetting both pointers when the queue empties. Each payload is
// source_address || validator_pubkey || amount, with the amount in the
// contract's little-endian byte order.
func DequeueWithdrawalRequests(statedb *state.BuildState) [][]byte {
	addr := WithdrawalRequestAddress
	headSlot := uint64ToHash(withdrawalQueueHeadSlot)
	tailSlot := uint64ToHash(withdrawalQueueTailSlot)

	queueHead := hashToUint64(statedb.GetState(addr, headSlot))
	queueTail := hashToUint64(statedb.GetState(addr, tailSlot))
	if queueTail < queueHead {
		return nil
	}

	numDequeued := queueTail - queueHead
	if numDequeued > MaxWithdrawalRequestsPerBlock {
		numDequeued = MaxWithdrawalRequestsPerBlock
	}

	requests := make([][]byte, 0, numDequeued)
	for i := uint64(0); i < numDequeued; i++ {
		base := withdrawalQueueStorageBase + (queueHead+i)*withdrawalQueueSlotsPerItem

		// Slot 0: source address, right-aligned.
		slot0 := statedb.GetState(addr, uint64ToHash(base))
		// Slot 1: pubkey[0:32].
		slot1 := statedb.GetState(addr, uint64ToHash(base+1))
		// Slot 2: pubkey[32:48] || amount (8 bytes, little-endian).
		slot2 := statedb.GetState(addr, uint64ToHash(base+2))

		payload := make([]byte, 0, 20+48+8)
		payload = append(payload, slot0[12:32]...)
		payload = append(payload, slot1[:]...)
		payload = append(payload, slot2[0:16]...)
		payload = append(payload, slot2[16:24]...)
		requests = append(requests, payload)
	}

	newHead := queueHead + numDequeued
	if newHead == queueTail {
		statedb.SetState(addr, headSlot, types.Hash{})
		statedb.SetState(addr, tailSlot, types.Hash{})
	} else {
		statedb.SetState(addr, headSlot, uint64ToHash(newHead))
	}
	return requests
}

// hashToUint64 reads the low 8 bytes of a storage word as a big-endian
// uint64.
func hashToUint64(h types.Hash) uint64 {
	return binary.BigEndian.Uint64(h[24:32])
}
