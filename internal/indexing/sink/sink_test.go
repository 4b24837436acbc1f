package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vietddude/ledgermirror/internal/core/domain"
)

func mustTx(t *testing.T, raw string) domain.RawTransaction {
	t.Helper()
	var tx domain.RawTransaction
	if err := json.Unmarshal([]byte(raw), &tx); err != nil {
		t.Fatalf("unmarshal %s: %v", raw, err)
	}
	return tx
}

// Two January records (one approval, one failed) around a kept transfer, and one February record.
func fixtureBatch(t *testing.T) []domain.RawTransaction {
	return []domain.RawTransaction{
		mustTx(t, `{"blockNumber":"10","timeStamp":"1705276800","hash":"0xa","isError":"0","functionName":"transfer(address to, uint256 amount)","gas":"21000","nonce":"4","from":"0x1"}`),
		mustTx(t, `{"blockNumber":"11","timeStamp":"1705276800","hash":"0xb","isError":"0","functionName":" Approve (address spender, uint256 amount)"}`),
		mustTx(t, `{"blockNumber":"12","timeStamp":"1705276800","hash":"0xc","isError":"1","functionName":"transfer(address to, uint256 amount)"}`),
		mustTx(t, `{"blockNumber":"13","timeStamp":"1707523200","hash":"0xd","isError":"0","functionName":""}`),
	}
}

func TestIsApproval(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"approve(address spender, uint256 amount)", true},
		{"APPROVE(address,uint256)", true},
		{"  approve ", true},
		{"approveAndCall(address,uint256,bytes)", false},
		{"transfer(address,uint256)", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := IsApproval(tt.in); got != tt.want {
				t.Errorf("IsApproval(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestTrim(t *testing.T) {
	batch := fixtureBatch(t)
	rows := Trim(batch, DefaultTrimOptions)

	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Tx.Hash != "0xa" || rows[1].Tx.Hash != "0xd" {
		t.Errorf("unexpected survivors: %s, %s", rows[0].Tx.Hash, rows[1].Tx.Hash)
	}
	if rows[0].Month != "2024-01" || rows[1].Month != "2024-02" {
		t.Errorf("unexpected months: %s, %s", rows[0].Month, rows[1].Month)
	}
	if _, ok := rows[0].Tx.Extra["gas"]; ok {
		t.Error("gas column should be dropped")
	}
	if rows[0].Tx.Field("from") != "0x1" {
		t.Error("passthrough column from should be kept")
	}
	// input untouched
	if _, ok := batch[0].Extra["gas"]; !ok {
		t.Error("Trim must not modify the input batch")
	}
}

func TestTrim_OptionsOff(t *testing.T) {
	rows := Trim(fixtureBatch(t), TrimOptions{})
	if len(rows) != 4 {
		t.Errorf("expected all 4 rows kept, got %d", len(rows))
	}
}

func TestRow_MarshalJSON(t *testing.T) {
	rows := Trim(fixtureBatch(t)[:1], DefaultTrimOptions)
	data, err := json.Marshal(rows[0])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got map[string]string
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["month"] != "2024-01" || got["blockNumber"] != "10" || got["hash"] != "0xa" {
		t.Errorf("unexpected row: %v", got)
	}
	if _, ok := got["nonce"]; ok {
		t.Error("nonce should be dropped")
	}
}

func TestFileSink_WritesMonthPartitions(t *testing.T) {
	dir := t.TempDir()
	s := NewFileSink(dir, DefaultTrimOptions, nil)
	s.now = func() time.Time { return time.Unix(1700000000, 0) }

	n, err := s.Write(context.Background(), "JOE", PhaseIncremental, fixtureBatch(t))
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 accepted rows, got %d", n)
	}

	for month, hash := range map[string]string{"2024-01": "0xa", "2024-02": "0xd"} {
		matches, err := filepath.Glob(filepath.Join(dir, "raw_normal_data", "token=JOE", "month="+month, "inc_1700000000_*.jsonl"))
		if err != nil || len(matches) != 1 {
			t.Fatalf("month %s: expected one file, got %v (%v)", month, matches, err)
		}
		lines := readLines(t, matches[0])
		if len(lines) != 1 || !strings.Contains(lines[0], `"hash":"`+hash+`"`) {
			t.Errorf("month %s: unexpected content %v", month, lines)
		}
	}
}

func TestFileSink_EmptyAfterTrim(t *testing.T) {
	dir := t.TempDir()
	s := NewFileSink(dir, DefaultTrimOptions, nil)

	n, err := s.Write(context.Background(), "JOE", PhaseBackfill, fixtureBatch(t)[1:3])
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 accepted rows, got %d", n)
	}
	if _, err := os.Stat(filepath.Join(dir, "raw_normal_data")); !os.IsNotExist(err) {
		t.Error("no files should be written for an empty trimmed batch")
	}
}

func TestDiscard(t *testing.T) {
	n, err := Discard{Trim: DefaultTrimOptions}.Write(context.Background(), "JOE", PhaseInit, fixtureBatch(t))
	if err != nil || n != 2 {
		t.Errorf("expected 2 accepted rows, got %d (%v)", n, err)
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines
}
