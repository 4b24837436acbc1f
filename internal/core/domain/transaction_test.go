package domain

import (
	"encoding/json"
	"testing"
)

const sampleTx = `{
	"blockNumber": "78315790",
	"blockHash": "0x7df2",
	"timeStamp": "1771352294",
	"hash": "0x1cdc",
	"from": "0x731d",
	"to": "0xb8d7",
	"functionName": "approve(address spender, uint256 value) returns (bool)",
	"isError": "0"
}`

func TestRawTransaction_Unmarshal(t *testing.T) {
	var tx RawTransaction
	if err := json.Unmarshal([]byte(sampleTx), &tx); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if tx.BlockNumber != 78315790 {
		t.Errorf("expected block 78315790, got %d", tx.BlockNumber)
	}
	if tx.TimeStamp != 1771352294 {
		t.Errorf("expected timestamp 1771352294, got %d", tx.TimeStamp)
	}
	if tx.Hash != "0x1cdc" || tx.IsError != "0" {
		t.Errorf("unexpected hash/isError: %q %q", tx.Hash, tx.IsError)
	}
	if got := tx.Field("from"); got != "0x731d" {
		t.Errorf("expected passthrough from=0x731d, got %q", got)
	}
	if _, ok := tx.Extra["blockNumber"]; ok {
		t.Error("typed fields must not be duplicated in Extra")
	}
}

func TestRawTransaction_RoundTripKeepsPassthrough(t *testing.T) {
	var tx RawTransaction
	if err := json.Unmarshal([]byte(sampleTx), &tx); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	data, err := json.Marshal(tx)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var back map[string]string
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal map: %v", err)
	}
	if back["blockNumber"] != "78315790" || back["blockHash"] != "0x7df2" {
		t.Errorf("round trip lost fields: %v", back)
	}
}

func TestRawTransaction_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing block", `{"timeStamp":"1","hash":"0x1"}`},
		{"bad block", `{"blockNumber":"abc","timeStamp":"1","hash":"0x1"}`},
		{"missing hash", `{"blockNumber":"1","timeStamp":"1"}`},
		{"not an object", `"nope"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tx RawTransaction
			if err := json.Unmarshal([]byte(tt.body), &tx); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestBlockRange(t *testing.T) {
	batch := []RawTransaction{{BlockNumber: 7}, {BlockNumber: 3}, {BlockNumber: 9}, {BlockNumber: 3}}
	lo, hi := BlockRange(batch)
	if lo != 3 || hi != 9 {
		t.Errorf("expected 3..9, got %d..%d", lo, hi)
	}
	if lo, hi := BlockRange(nil); lo != 0 || hi != 0 {
		t.Errorf("expected 0..0 for empty batch, got %d..%d", lo, hi)
	}
}

func TestGlobalCursorState_Ensure(t *testing.T) {
	g := &GlobalCursorState{}
	st := g.Ensure("JOE")
	if st.Initialized || st.MaxIngestedBlock != 0 || st.HistoryStatus != HistoryUnfilled {
		t.Errorf("unexpected defaults: %+v", st)
	}
	st.MaxIngestedBlock = 10
	if again := g.Ensure("JOE"); again.MaxIngestedBlock != 10 {
		t.Error("Ensure must return the existing cursor")
	}

	clone := g.Clone()
	clone.Tokens["JOE"].MaxIngestedBlock = 99
	if g.Tokens["JOE"].MaxIngestedBlock != 10 {
		t.Error("Clone must not share cursors")
	}
}
