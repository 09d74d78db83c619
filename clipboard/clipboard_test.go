package clipboard

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/richinex/clipagent/model"
	"github.com/richinex/clipagent/value"
)

func TestClipboardSetGet(t *testing.T) {
	c := New()
	c.Set("code", value.Text("package main"))

	got, err := c.Get("code")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !value.Equal(got, value.Text("package main")) {
		t.Errorf("unexpected value %s", value.Stringify(got))
	}
	if !c.Has("code") || c.Has("other") {
		t.Error("Has reported wrong membership")
	}
}

func TestClipboardGetMissingListsSlots(t *testing.T) {
	c := New()
	c.Set("alpha", value.Int(1))
	c.Set("beta", value.Int(2))

	_, err := c.Get("gamma")
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "alpha, beta") {
		t.Errorf("expected known slots in %q", err.Error())
	}
}

func TestClipboardOverwriteResetsUsage(t *testing.T) {
	c := New()
	c.Set("a", value.Text("x"))
	c.Set("b", value.Text("y"))
	c.RecordUsage("a")
	c.RecordUsage("a")

	c.Set("a", value.Text("longer"))

	if diff := cmp.Diff([]string{"a", "b"}, c.ListSlots()); diff != "" {
		t.Errorf("slot order mismatch (-want +got):\n%s", diff)
	}
	s := c.EstimateSavings()
	if s.PerSlotUsage["a"] != 0 {
		t.Errorf("expected usage reset, got %d", s.PerSlotUsage["a"])
	}
	if s.PerSlotBytes["a"] != 6 {
		t.Errorf("expected 6 bytes, got %d", s.PerSlotBytes["a"])
	}
}

func TestClipboardByteSize(t *testing.T) {
	tests := []struct {
		name string
		v    value.Value
		want int
	}{
		{"text", value.Text("hello"), 5},
		{"multibyte text counts characters", value.Text("héllo"), 5},
		{"cjk text", value.Text("日本語"), 3},
		{"mapping with multibyte text", value.MustParse(`{"k": "é"}`), len(`{"k":"e"}`)},
		{"integer", value.Int(42), 2},
		{"mapping", value.MustParse(`{"a": 1}`), len(`{"a":1}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New()
			c.Set("s", tt.v)
			if got := c.EstimateSavings().BytesStored; got != tt.want {
				t.Errorf("BytesStored = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestClipboardClear(t *testing.T) {
	c := New()
	c.Set("a", value.Int(1))
	c.Set("b", value.Int(2))
	c.Set("c", value.Int(3))

	c.Clear("b", "missing")
	if diff := cmp.Diff([]string{"a", "c"}, c.ListSlots()); diff != "" {
		t.Errorf("slots mismatch (-want +got):\n%s", diff)
	}
	if _, ok := c.EstimateSavings().PerSlotBytes["b"]; ok {
		t.Error("expected bookkeeping for cleared slot to be removed")
	}

	c.Clear()
	if len(c.ListSlots()) != 0 {
		t.Errorf("expected no slots, got %v", c.ListSlots())
	}
	if c.EstimateSavings().BytesStored != 0 {
		t.Error("expected no stored bytes after clear all")
	}
}

func TestClipboardRecordUsageUnknownIsNoop(t *testing.T) {
	c := New()
	c.RecordUsage("ghost")
	if c.Has("ghost") {
		t.Error("RecordUsage must not create slots")
	}
}

func TestEstimateSavingsWithoutUsage(t *testing.T) {
	c := New()
	c.Set("big", value.Text(strings.Repeat("x", 1000)))
	c.Set("obj", value.MustParse(`{"k":[1,2,3]}`))

	s := c.EstimateSavings()
	if s.BytesSubstituted != 0 || s.NetTokensSaved != 0 || s.ReferenceOverheadTokens != 0 {
		t.Errorf("expected zero savings without usage, got %+v", s)
	}
	if s.BytesStored != 1000+len(`{"k":[1,2,3]}`) {
		t.Errorf("unexpected BytesStored %d", s.BytesStored)
	}
}

func TestEstimateSavings(t *testing.T) {
	c := New()
	c.Set("code", value.Text(strings.Repeat("x", 100)))
	c.Set("s", value.Text("ab"))
	c.RecordUsage("code")
	c.RecordUsage("code")
	c.RecordUsage("s")

	got := c.EstimateSavings()
	want := model.Savings{
		BytesStored:          102,
		BytesSubstituted:     202,
		EstimatedTokensSaved: 50,
		// ((4+4)*2 + (4+1)*1) / 4 = 21 / 4
		ReferenceOverheadTokens: 5,
		NetTokensSaved:          45,
		PerSlotUsage:            map[string]int{"code": 2, "s": 1},
		PerSlotBytes:            map[string]int{"code": 100, "s": 2},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("savings mismatch (-want +got):\n%s", diff)
	}
}

func TestEstimateSavingsCanBeNegative(t *testing.T) {
	c := New()
	c.Set("a_long_slot_name", value.Text("x"))
	for i := 0; i < 4; i++ {
		c.RecordUsage("a_long_slot_name")
	}

	s := c.EstimateSavings()
	if s.NetTokensSaved >= 0 {
		t.Errorf("expected negative net savings, got %d", s.NetTokensSaved)
	}
}
