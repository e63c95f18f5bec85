package types

import "crypto/sha256"

// Request types defined by EIP-7685, identified by a single byte prefix.
const (
	DepositRequestType       byte = 0x00 // EIP-6110 validator deposits
	WithdrawalRequestType    byte = 0x01 // EIP-7002 triggered withdrawals
	ConsolidationRequestType byte = 0x02 // EIP-7251 validator consolidations
)

// Request is a typed execution-layer request: request_type || request_data.
type Request struct {
	Type byte
	Data []byte
}

// Encode serializes the request to its wire format.
func (r *Request) Encode() []byte {
	out := make([]byte, 1+len(r.Data))
	out[0] = r.Type
	copy(out[1:], r.Data)
	return out
}

// Requests is a list of execution-layer requests.
type Requests []*Request

// ComputeRequestsHash computes the EIP-7685 commitment:
// sha256(sha256(type0 || data0...) ++ sha256(type1 || data1...) ++ ...)
// where each inner hash covers the type byte followed by the concatenated
// request data of that type. Types with no requests are skipped.
func ComputeRequestsHash(requests Requests) Hash {
	byType := make(map[byte][][]byte)
	for _, r := range requests {
		byType[r.Type] = append(byType[r.Type], r.Data)
	}

	outer := sha256.New()
	for t := byte(0); t <= ConsolidationRequestType; t++ {
		datas, ok := byType[t]
		if !ok {
			continue
		}
		inner := sha256.New()
		inner.Write([]byte{t})
		for _, d := range datas {
			inner.Write(d)
		}
		outer.Write(inner.Sum(nil))
	}
	return BytesToHash(outer.Sum(nil))
}
