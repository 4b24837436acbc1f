package ingest

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/vietddude/ledgermirror/internal/core/domain"
	"github.com/vietddude/ledgermirror/internal/indexing/sink"
	"github.com/vietddude/ledgermirror/internal/infra/explorer"
)

const testAddr = "0x00000000000000000000000000000000000000aa"

var testToken = domain.Token{Symbol: "JOE", Address: testAddr, Decimals: 18}

// fakeExplorer serves a fixed transaction set the way the explorer pages it.
type fakeExplorer struct {
	tip      uint64
	tipErr   error
	pageSize int
	creation map[string]uint64
	txs      map[string][]domain.RawTransaction

	// failOn lets a test fail selected queries.
	failOn func(q explorer.Query) error

	queries       []explorer.Query
	creationCalls int
}

func newFakeExplorer(tip uint64, pageSize int) *fakeExplorer {
	return &fakeExplorer{
		tip:      tip,
		pageSize: pageSize,
		creation: make(map[string]uint64),
		txs:      make(map[string][]domain.RawTransaction),
	}
}

// add appends one transaction per block number given.
func (f *fakeExplorer) add(address string, blocks ...uint64) {
	for _, b := range blocks {
		n := len(f.txs[address])
		f.txs[address] = append(f.txs[address], domain.RawTransaction{
			BlockNumber: b,
			TimeStamp:   1700000000 + int64(b),
			Hash:        fmt.Sprintf("0x%s-%d-%d", address[len(address)-2:], b, n),
			IsError:     "0",
		})
	}
	sort.SliceStable(f.txs[address], func(i, j int) bool {
		return f.txs[address][i].BlockNumber < f.txs[address][j].BlockNumber
	})
}

// addRepeated appends count transactions in the same block.
func (f *fakeExplorer) addRepeated(address string, block uint64, count int) {
	blocks := make([]uint64, count)
	for i := range blocks {
		blocks[i] = block
	}
	f.add(address, blocks...)
}

func (f *fakeExplorer) ChainTip(ctx context.Context) (uint64, error) {
	return f.tip, f.tipErr
}

func (f *fakeExplorer) CreationBlock(ctx context.Context, address string) uint64 {
	f.creationCalls++
	return f.creation[address]
}

func (f *fakeExplorer) Transactions(ctx context.Context, q explorer.Query) ([]domain.RawTransaction, error) {
	f.queries = append(f.queries, q)
	if f.failOn != nil {
		if err := f.failOn(q); err != nil {
			return nil, err
		}
	}

	out := []domain.RawTransaction{}
	for _, tx := range f.txs[q.Address] {
		if tx.BlockNumber >= q.StartBlock && tx.BlockNumber <= q.EndBlock {
			out = append(out, tx)
		}
	}
	if q.Sort == explorer.SortDesc {
		slices.Reverse(out)
	}
	if len(out) > f.pageSize {
		out = out[:f.pageSize]
	}
	return out, nil
}

func (f *fakeExplorer) allHashes(address string) map[string]struct{} {
	set := make(map[string]struct{}, len(f.txs[address]))
	for _, tx := range f.txs[address] {
		set[tx.Hash] = struct{}{}
	}
	return set
}

// recordingSink keeps every hash written, per symbol.
type recordingSink struct {
	hashes map[string]map[string]struct{}
	writes map[sink.Phase]int
	err    error
	reject bool
}

func newRecordingSink() *recordingSink {
	return &recordingSink{
		hashes: make(map[string]map[string]struct{}),
		writes: make(map[sink.Phase]int),
	}
}

func (s *recordingSink) Write(ctx context.Context, symbol string, phase sink.Phase, batch []domain.RawTransaction) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.writes[phase]++
	if s.reject {
		return 0, nil
	}
	if s.hashes[symbol] == nil {
		s.hashes[symbol] = make(map[string]struct{})
	}
	for _, tx := range batch {
		s.hashes[symbol][tx.Hash] = struct{}{}
	}
	return len(batch), nil
}

func (s *recordingSink) Close() error { return nil }

func initializedCursor(maxBlock, minBlock uint64) *domain.EntityCursorState {
	c := domain.NewEntityCursorState()
	c.Initialized = true
	c.MaxIngestedBlock = maxBlock
	c.MinIngestedBlock = minBlock
	return c
}

func blockRange(from, to uint64) []uint64 {
	var out []uint64
	for b := from; b <= to; b++ {
		out = append(out, b)
	}
	return out
}
