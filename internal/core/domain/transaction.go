package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// RawTransaction is one record of the explorer's txlist response. The fields the
// ingestion engine relies on are typed; everything else is carried untouched in Extra.
type RawTransaction struct {
	BlockNumber uint64
	TimeStamp   int64
	Hash        string
	IsError     string

	Extra map[string]json.RawMessage
}

var requiredTxFields = []string{"blockNumber", "timeStamp", "hash", "isError"}

// UnmarshalJSON decodes the decimal-string numeric fields and keeps the rest.
func (t *RawTransaction) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	block, err := numericField(raw, "blockNumber")
	if err != nil {
		return err
	}
	ts, err := numericField(raw, "timeStamp")
	if err != nil {
		return err
	}

	var hash, isError string
	if v, ok := raw["hash"]; ok {
		if err := json.Unmarshal(v, &hash); err != nil {
			return fmt.Errorf("hash: %w", err)
		}
	}
	if hash == "" {
		return fmt.Errorf("transaction without hash")
	}
	if v, ok := raw["isError"]; ok {
		if err := json.Unmarshal(v, &isError); err != nil {
			return fmt.Errorf("isError: %w", err)
		}
	}

	for _, k := range requiredTxFields {
		delete(raw, k)
	}

	*t = RawTransaction{
		BlockNumber: block,
		TimeStamp:   int64(ts),
		Hash:        hash,
		IsError:     isError,
		Extra:       raw,
	}
	return nil
}

// MarshalJSON writes the record back in the explorer's string-encoded shape.
func (t RawTransaction) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(t.Extra)+len(requiredTxFields))
	for k, v := range t.Extra {
		out[k] = v
	}
	out["blockNumber"] = strconv.FormatUint(t.BlockNumber, 10)
	out["timeStamp"] = strconv.FormatInt(t.TimeStamp, 10)
	out["hash"] = t.Hash
	out["isError"] = t.IsError
	return json.Marshal(out)
}

// Field returns a passthrough field as a string, or "" when absent or not a string.
func (t RawTransaction) Field(name string) string {
	v, ok := t.Extra[name]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return ""
	}
	return s
}

// BlockRange returns the lowest and highest block number of a non-empty batch.
func BlockRange(batch []RawTransaction) (minBlock, maxBlock uint64) {
	if len(batch) == 0 {
		return 0, 0
	}
	minBlock, maxBlock = batch[0].BlockNumber, batch[0].BlockNumber
	for _, tx := range batch[1:] {
		if tx.BlockNumber < minBlock {
			minBlock = tx.BlockNumber
		}
		if tx.BlockNumber > maxBlock {
			maxBlock = tx.BlockNumber
		}
	}
	return minBlock, maxBlock
}

func numericField(raw map[string]json.RawMessage, key string) (uint64, error) {
	v, ok := raw[key]
	if !ok {
		return 0, fmt.Errorf("transaction without %s", key)
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		// Some explorers emit bare numbers.
		var n uint64
		if err2 := json.Unmarshal(v, &n); err2 != nil {
			return 0, fmt.Errorf("%s: %w", key, err)
		}
		return n, nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
