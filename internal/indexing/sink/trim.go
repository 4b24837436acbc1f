package sink

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/vietddude/ledgermirror/internal/core/domain"
)

// DroppedColumns are passthrough fields removed before a row is stored.
var DroppedColumns = []string{
	"nonce",
	"transactionIndex",
	"gas",
	"gasPrice",
	"gasUsed",
	"cumulativeGasUsed",
	"txreceipt_status",
	"confirmations",
	"contractAddress",
}

// TrimOptions controls which records Trim discards.
type TrimOptions struct {
	DropApprovals bool
	DropFailed    bool
}

// DefaultTrimOptions drops approvals and failed transactions.
var DefaultTrimOptions = TrimOptions{DropApprovals: true, DropFailed: true}

// Row is a trimmed transaction tagged with its monthly partition.
type Row struct {
	Month string
	Tx    domain.RawTransaction
}

// MarshalJSON writes the transaction fields with the month column added.
func (r Row) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(r.Tx)
	if err != nil {
		return nil, err
	}
	var out map[string]json.RawMessage
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	month, _ := json.Marshal(r.Month)
	out["month"] = month
	return json.Marshal(out)
}

// Trim filters a raw batch and strips noisy columns. The input batch is not modified.
func Trim(batch []domain.RawTransaction, opts TrimOptions) []Row {
	rows := make([]Row, 0, len(batch))
	for _, tx := range batch {
		if opts.DropApprovals && IsApproval(tx.Field("functionName")) {
			continue
		}
		if opts.DropFailed && tx.IsError == "1" {
			continue
		}

		extra := make(map[string]json.RawMessage, len(tx.Extra))
		for k, v := range tx.Extra {
			extra[k] = v
		}
		for _, col := range DroppedColumns {
			delete(extra, col)
		}
		tx.Extra = extra

		rows = append(rows, Row{Month: MonthOf(tx.TimeStamp), Tx: tx})
	}
	return rows
}

// IsApproval reports whether a function signature is an approve call,
// e.g. "approve(address spender, uint256 amount)".
func IsApproval(functionName string) bool {
	name, _, _ := strings.Cut(functionName, "(")
	return strings.ToLower(strings.TrimSpace(name)) == "approve"
}

// MonthOf formats a unix timestamp as a YYYY-MM partition key in UTC.
func MonthOf(ts int64) string {
	return time.Unix(ts, 0).UTC().Format("2006-01")
}

// GroupByMonth splits rows into partitions, preserving order within each.
func GroupByMonth(rows []Row) (months []string, parts map[string][]Row) {
	parts = make(map[string][]Row)
	for _, r := range rows {
		if _, ok := parts[r.Month]; !ok {
			months = append(months, r.Month)
		}
		parts[r.Month] = append(parts[r.Month], r)
	}
	return months, parts
}
