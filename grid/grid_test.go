package grid

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/brensch/mazewar/codec"
)

func TestNew(t *testing.T) {
	cases := []struct{ w, h int }{{2, 2}, {0, 0}, {1, 4}, {4, 1}}
	for _, c := range cases {
		g := New[any](c.w, c.h)
		if w, h := g.Shape(); w != c.w || h != c.h {
			t.Errorf("Shape() = (%d, %d), want (%d, %d)", w, h, c.w, c.h)
		}
		if g.Len() != c.w*c.h {
			t.Errorf("Len() = %d, want %d", g.Len(), c.w*c.h)
		}
		for _, v := range g.Values() {
			if v != nil {
				t.Errorf("fresh %dx%d grid has cell %v", c.w, c.h, v)
			}
		}
	}
}

func TestKeysAreRowMajor(t *testing.T) {
	g := New[int](2, 3)
	want := []Coord{{0, 0}, {1, 0}, {0, 1}, {1, 1}, {0, 2}, {1, 2}}
	if got := g.Keys(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Keys() = %v, want %v", got, want)
	}
}

func TestIndexBijection(t *testing.T) {
	g := New[int](3, 4)
	i := 0
	for c := range g.All() {
		idx, err := g.CoordToIndex(c)
		if err != nil || idx != i {
			t.Fatalf("CoordToIndex(%v) = %d, %v; want %d", c, idx, err, i)
		}
		back, err := g.IndexToCoord(i)
		if err != nil || back != c {
			t.Fatalf("IndexToCoord(%d) = %v, %v; want %v", i, back, err, c)
		}
		i++
	}
	if _, err := g.IndexToCoord(12); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("IndexToCoord(12) err = %v", err)
	}
}

func TestAtAndSet(t *testing.T) {
	g := New[int](2, 2)
	g.Set(Coord{0, 0}, 1)
	g.Set(Coord{1, 0}, 2)
	g.Set(Coord{0, 1}, 3)
	g.Set(Coord{1, 1}, 4)
	if got := g.Values(); !reflect.DeepEqual(got, []int{1, 2, 3, 4}) {
		t.Fatalf("Values() = %v", got)
	}
	if v, _ := g.At(Coord{1, 0}); v != 2 {
		t.Fatalf("At(1,0) = %d", v)
	}

	bad := []Coord{{3, 0}, {-1, 0}, {0, 3}, {0, -1}, {2, 0}, {0, 2}}
	for _, c := range bad {
		if _, err := g.At(c); !errors.Is(err, ErrOutOfBounds) {
			t.Errorf("At(%v) err = %v", c, err)
		}
		if err := g.Set(c, 1); !errors.Is(err, ErrOutOfBounds) {
			t.Errorf("Set(%v) err = %v", c, err)
		}
	}
}

func TestSetData(t *testing.T) {
	g := New[int](2, 2)
	if err := g.SetData([]int{1, 2, 3, 4}); err != nil {
		t.Fatalf("SetData: %v", err)
	}
	if err := g.SetData([]int{1, 2, 3}); !errors.Is(err, ErrSizeMismatch) {
		t.Fatalf("short SetData err = %v", err)
	}
	if _, err := NewWithData(2, 2, []int{1, 2, 3}); !errors.Is(err, ErrSizeMismatch) {
		t.Fatalf("short NewWithData err = %v", err)
	}
}

func TestStringForms(t *testing.T) {
	g, _ := NewWithData(2, 3, []int{1, 2, 3, 4, 5, 6})
	if got := g.String(); got != "[1, 2]\n[3, 4]\n[5, 6]\n" {
		t.Errorf("String() = %q", got)
	}
	if got := g.CompactString(); got != "12\n34\n56\n" {
		t.Errorf("CompactString() = %q", got)
	}
	g, _ = NewWithData(3, 2, []int{1, 2, 3, 4, 5, 6})
	if got := g.CompactString(); got != "123\n456\n" {
		t.Errorf("CompactString() = %q", got)
	}
}

func TestCanonicalJSONRoundTrip(t *testing.T) {
	g, _ := NewWithData(2, 2, []any{"1", 2.5, true, nil})
	b, err := json.Marshal(g)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Grid[any]
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal %s: %v", b, err)
	}
	if !g.Equal(&back) {
		t.Fatalf("round trip mismatch:\n%v\n%v", g, &back)
	}

	var bad Grid[int]
	if err := json.Unmarshal([]byte(`{"width":2,"height":2,"data":[1,2,3]}`), &bad); !errors.Is(err, ErrSizeMismatch) {
		t.Fatalf("err = %v, want ErrSizeMismatch", err)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	g := New[bool](2, 2)
	alias := g
	cp := g.Clone()
	g.Set(Coord{1, 1}, true)
	if v, _ := alias.At(Coord{1, 1}); !v {
		t.Fatal("alias does not see the write")
	}
	if v, _ := cp.At(Coord{1, 1}); v {
		t.Fatal("clone sees the write")
	}
	if g.Equal(cp) {
		t.Fatal("grids should differ")
	}
	cp.Set(Coord{1, 1}, true)
	if !g.Equal(cp) {
		t.Fatal("grids should be equal")
	}
}

func TestCodecRoundTrip(t *testing.T) {
	g, _ := NewWithData[any](2, 3, []any{1, 2, 3, 4, 5, 6})
	b, err := codec.Marshal(g)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]any
	json.Unmarshal(b, &raw)
	want := map[string]any{
		"type_id": "grid.Grid",
		"value": map[string]any{
			"width":  float64(2),
			"height": float64(3),
			"data":   []any{float64(1), float64(2), float64(3), float64(4), float64(5), float64(6)},
		},
	}
	if !reflect.DeepEqual(raw, want) {
		t.Fatalf("wire form = %s", b)
	}
	back, err := codec.Unmarshal(b)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !g.Equal(back.(*Grid[any])) {
		t.Fatalf("got %v", back)
	}
}

func TestCodecNonTrivialCells(t *testing.T) {
	simple, _ := NewWithData[any](2, 3, []any{1, 2, 3, 4, 5, 6})
	g, _ := NewWithData[any](2, 3, []any{
		1,
		map[string]any{"key": "value"},
		[]any{3, 6, 9, 27},
		[2]string{"a", "tuple?"},
		"ünico∂e",
		simple,
	})
	noTuple, _ := NewWithData[any](2, 3, []any{
		1,
		map[string]any{"key": "value"},
		[]any{3, 6, 9, 27},
		[]any{"a", "tuple?"},
		"ünico∂e",
		simple,
	})
	b, err := codec.Marshal(g)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	back, err := codec.Unmarshal(b)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !noTuple.Equal(back.(*Grid[any])) {
		t.Fatalf("got\n%v\nwant\n%v", back, noTuple)
	}
}

func TestFromFieldsRejectsNonSequence(t *testing.T) {
	_, err := FromFields(map[string]any{"width": 2, "height": 2, "data": "abcd"})
	if !errors.Is(err, ErrType) {
		t.Fatalf("err = %v, want ErrType", err)
	}
	_, err = FromFields(map[string]any{"width": 2, "height": 2, "data": []any{1, 2, 3}})
	if !errors.Is(err, ErrSizeMismatch) {
		t.Fatalf("err = %v, want ErrSizeMismatch", err)
	}
}

func TestConvert(t *testing.T) {
	g, _ := NewWithData[any](2, 1, []any{1, 2})
	ints, err := Convert[int](g)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if got := ints.Values(); !reflect.DeepEqual(got, []int{1, 2}) {
		t.Fatalf("Values() = %v", got)
	}
	g.Set(Coord{1, 0}, "x")
	if _, err := Convert[int](g); !errors.Is(err, ErrType) {
		t.Fatalf("err = %v, want ErrType", err)
	}
}
