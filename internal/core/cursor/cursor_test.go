package cursor

import (
	"errors"
	"testing"

	"github.com/vietddude/ledgermirror/internal/core/domain"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name     string
		from     State
		to       State
		expected bool
	}{
		{"unfilled to filled", domain.HistoryUnfilled, domain.HistoryFilled, true},
		{"filled to unfilled", domain.HistoryFilled, domain.HistoryUnfilled, false},
		{"filled to filled", domain.HistoryFilled, domain.HistoryFilled, false},
		{"unknown to filled", State("bogus"), domain.HistoryFilled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.expected {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.expected)
			}
		})
	}
}

func TestAdvanceHeadIsMonotonic(t *testing.T) {
	c := domain.NewEntityCursorState()
	c.MaxIngestedBlock = 500

	if AdvanceHead(c, 400) {
		t.Error("expected lower head to be ignored")
	}
	if AdvanceHead(c, 500) {
		t.Error("expected equal head to be ignored")
	}
	if !AdvanceHead(c, 700) || c.MaxIngestedBlock != 700 {
		t.Errorf("expected head 700, got %d", c.MaxIngestedBlock)
	}
}

func TestRetreatFloorIsMonotonic(t *testing.T) {
	c := domain.NewEntityCursorState()
	c.MinIngestedBlock = 1000

	if RetreatFloor(c, 1200) {
		t.Error("expected higher floor to be ignored")
	}
	if !RetreatFloor(c, 250) || c.MinIngestedBlock != 250 {
		t.Errorf("expected floor 250, got %d", c.MinIngestedBlock)
	}
}

func TestSetCreationBlockIsImmutable(t *testing.T) {
	c := domain.NewEntityCursorState()
	if SetCreationBlock(c, 0) {
		t.Error("zero must not be recorded")
	}
	if !SetCreationBlock(c, 200) {
		t.Error("expected first creation block to be recorded")
	}
	if SetCreationBlock(c, 150) || c.CreationBlock != 200 {
		t.Errorf("creation block must stay 200, got %d", c.CreationBlock)
	}
}

func TestBootstrap(t *testing.T) {
	c := domain.NewEntityCursorState()
	if err := Bootstrap(c, 100, 900, 50); err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	if c.MinIngestedBlock != 100 || c.MaxIngestedBlock != 900 || c.CreationBlock != 50 {
		t.Errorf("unexpected cursor: %+v", c)
	}
	if c.Initialized {
		t.Error("Bootstrap must not mark initialized")
	}

	MarkInitialized(c)
	if err := Bootstrap(c, 1, 2, 0); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}

	if err := Bootstrap(domain.NewEntityCursorState(), 10, 5, 0); err == nil {
		t.Error("expected error for inverted range")
	}
}

func TestMarkFilled(t *testing.T) {
	c := domain.NewEntityCursorState()
	tr, err := MarkFilled(c, "partial page")
	if err != nil {
		t.Fatalf("MarkFilled failed: %v", err)
	}
	if tr.From != domain.HistoryUnfilled || tr.To != domain.HistoryFilled {
		t.Errorf("unexpected transition %+v", tr)
	}
	if !c.Filled() {
		t.Error("expected filled")
	}

	// Idempotent.
	if _, err := MarkFilled(c, "again"); err != nil {
		t.Errorf("expected no error on repeated fill, got %v", err)
	}
}

func TestFillAtSnapsFloorDownOnly(t *testing.T) {
	c := domain.NewEntityCursorState()
	c.MinIngestedBlock = 300
	if _, err := FillAt(c, 200, "crossed creation block"); err != nil {
		t.Fatal(err)
	}
	if c.MinIngestedBlock != 200 || !c.Filled() {
		t.Errorf("unexpected cursor %+v", c)
	}

	c2 := domain.NewEntityCursorState()
	c2.MinIngestedBlock = 100
	if _, err := FillAt(c2, 200, "snap"); err != nil {
		t.Fatal(err)
	}
	if c2.MinIngestedBlock != 100 {
		t.Errorf("floor must not be raised, got %d", c2.MinIngestedBlock)
	}
}

func TestLag(t *testing.T) {
	c := domain.NewEntityCursorState()
	c.MaxIngestedBlock = 900
	if got := Lag(c, 1000); got != 100 {
		t.Errorf("expected lag 100, got %d", got)
	}
	if got := Lag(c, 800); got != 0 {
		t.Errorf("expected lag 0, got %d", got)
	}
}
