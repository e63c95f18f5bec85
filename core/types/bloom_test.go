package types

import "testing"

func TestBloomAddContains(t *testing.T) {
	var b Bloom
	data := []byte("listing")
	if b.Contains(data) {
		t.Fatal("empty bloom claims membership")
	}
	b.Add(data)
	if !b.Contains(data) {
		t.Fatal("bloom lost its own entry")
	}
	if b.Contains([]byte("something else entirely")) {
		t.Fatal("unrelated entry matched 3 bits of a near-empty bloom")
	}
}

func TestLogsBloom(t *testing.T) {
	addr := HexToAddress("0x00000000219ab540356cBB839Cbe05303d7705Fa")
	topic := HexToHash("0x649bbc62d0e31342afea4e5cd82d4049e7e1ee912fc0889aa790803be39038c5")
	logs := []*Log{{Address: addr, Topics: []Hash{topic}}}

	bloom := LogsBloom(logs)
	if !bloom.Contains(addr.Bytes()) {
		t.Fatal("address missing from bloom")
	}
	if !bloom.Contains(topic.Bytes()) {
		t.Fatal("topic missing from bloom")
	}
}

func TestCreateBloomUnionsReceipts(t *testing.T) {
	addrA := HexToAddress("0xaa")
	addrB := HexToAddress("0xbb")
	ra := &Receipt{Bloom: LogsBloom([]*Log{{Address: addrA}})}
	rb := &Receipt{Bloom: LogsBloom([]*Log{{Address: addrB}})}

	bloom := CreateBloom([]*Receipt{ra, rb})
	if !bloom.Contains(addrA.Bytes()) || !bloom.Contains(addrB.Bytes()) {
		t.Fatal("union bloom dropped an entry")
	}
}
