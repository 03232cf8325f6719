package playlist

import (
	"fmt"
	"testing"
)

func items(n int) []MediaItem {
	out := make([]MediaItem, n)
	for i := range out {
		out[i] = MediaItem{ID: fmt.Sprintf("id%d", i), URI: fmt.Sprintf("/music/%d.mp3", i)}
	}
	return out
}

func checkIndex(t *testing.T, p *Playlist) {
	t.Helper()
	if p.Len() == 0 {
		if p.CurrentIndex() != -1 {
			t.Fatalf("CurrentIndex() = %d on empty playlist, want -1", p.CurrentIndex())
		}
		return
	}
	if p.CurrentIndex() < 0 || p.CurrentIndex() >= p.Len() {
		t.Fatalf("CurrentIndex() = %d, want in [0,%d)", p.CurrentIndex(), p.Len())
	}
}

func TestNew(t *testing.T) {
	p := New()

	if p.Len() != 0 {
		t.Errorf("Len() = %d, want 0", p.Len())
	}
	if p.CurrentIndex() != -1 {
		t.Errorf("CurrentIndex() = %d, want -1", p.CurrentIndex())
	}
	if _, ok := p.Current(); ok {
		t.Error("Current() should report false for empty playlist")
	}
	if p.HasNext() || p.HasPrevious() {
		t.Error("empty playlist should have neither next nor previous")
	}
}

func TestPlaylist_Load(t *testing.T) {
	tests := []struct {
		name  string
		n     int
		start int
		want  int
	}{
		{"start in range", 5, 2, 2},
		{"negative start", 5, -3, 0},
		{"start past end", 5, 9, 4},
		{"empty", 0, 2, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New()
			p.Load(items(tt.n), tt.start)
			if p.CurrentIndex() != tt.want {
				t.Errorf("CurrentIndex() = %d, want %d", p.CurrentIndex(), tt.want)
			}
		})
	}
}

func TestPlaylist_Load_CopiesInput(t *testing.T) {
	in := items(2)
	p := New()
	p.Load(in, 0)

	in[0].Title = "changed"

	got, _ := p.Item(0)
	if got.Title != "" {
		t.Error("Load should copy the input slice")
	}
}

func TestPlaylist_Append_EmptyActsAsLoad(t *testing.T) {
	p := New()

	loaded := p.Append(items(2), 1)

	if !loaded {
		t.Error("Append on empty playlist should report loaded")
	}
	if p.CurrentIndex() != 1 {
		t.Errorf("CurrentIndex() = %d, want 1", p.CurrentIndex())
	}
}

func TestPlaylist_Append_KeepsCurrent(t *testing.T) {
	p := New()
	p.Load(items(2), 1)

	loaded := p.Append(items(3), 0)

	if loaded {
		t.Error("Append on non-empty playlist should not report loaded")
	}
	if p.Len() != 5 {
		t.Errorf("Len() = %d, want 5", p.Len())
	}
	if p.CurrentIndex() != 1 {
		t.Errorf("CurrentIndex() = %d, want 1", p.CurrentIndex())
	}
	if !p.HasNext() {
		t.Error("HasNext() should be true after append")
	}
}

func TestPlaylist_Insert_BeforeCurrentShiftsIndex(t *testing.T) {
	p := New()
	p.Load(items(3), 1)
	cur, _ := p.Current()

	p.Insert(1, []MediaItem{{ID: "new"}})

	if p.CurrentIndex() != 2 {
		t.Errorf("CurrentIndex() = %d, want 2", p.CurrentIndex())
	}
	if got, _ := p.Current(); got.ID != cur.ID {
		t.Errorf("Current().ID = %q, want %q", got.ID, cur.ID)
	}
}

func TestPlaylist_InsertNext(t *testing.T) {
	p := New()
	p.Load(items(3), 0)

	p.InsertNext([]MediaItem{{ID: "a"}, {ID: "b"}})

	next, _ := p.Item(p.NextIndex())
	if next.ID != "a" {
		t.Errorf("next item = %q, want a", next.ID)
	}
	if p.CurrentIndex() != 0 {
		t.Errorf("CurrentIndex() = %d, want 0", p.CurrentIndex())
	}
}

func TestPlaylist_Move(t *testing.T) {
	tests := []struct {
		name     string
		from, to int
		current  int
		want     int
	}{
		{"move current", 1, 3, 1, 3},
		{"move before current to after", 0, 3, 2, 1},
		{"move after current to before", 4, 0, 2, 3},
		{"unrelated move", 3, 4, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New()
			p.Load(items(5), tt.current)
			cur, _ := p.Current()

			if !p.Move(tt.from, tt.to) {
				t.Fatal("Move() = false, want true")
			}
			if p.CurrentIndex() != tt.want {
				t.Errorf("CurrentIndex() = %d, want %d", p.CurrentIndex(), tt.want)
			}
			if got, _ := p.Current(); got.ID != cur.ID {
				t.Errorf("Current().ID = %q, want %q", got.ID, cur.ID)
			}
		})
	}
}

func TestPlaylist_Move_InvalidIndex(t *testing.T) {
	p := New()
	p.Load(items(2), 0)

	if p.Move(-1, 0) || p.Move(0, 2) {
		t.Error("Move() with out of range index should return false")
	}
}

func TestPlaylist_RemoveAt(t *testing.T) {
	tests := []struct {
		name        string
		n, current  int
		remove      int
		wantIndex   int
		wantCurrent bool
	}{
		{"before current", 5, 2, 0, 1, false},
		{"after current", 5, 2, 4, 2, false},
		{"current advances", 5, 2, 2, 2, true},
		{"current at end clamps", 5, 4, 4, 3, true},
		{"last item", 1, 0, 0, -1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New()
			p.Load(items(tt.n), tt.current)

			removedCurrent, ok := p.RemoveAt(tt.remove)

			if !ok {
				t.Fatal("RemoveAt() ok = false")
			}
			if removedCurrent != tt.wantCurrent {
				t.Errorf("removedCurrent = %v, want %v", removedCurrent, tt.wantCurrent)
			}
			if p.CurrentIndex() != tt.wantIndex {
				t.Errorf("CurrentIndex() = %d, want %d", p.CurrentIndex(), tt.wantIndex)
			}
			checkIndex(t, p)
		})
	}
}

func TestPlaylist_RemoveAt_RepeatAllWraps(t *testing.T) {
	p := New()
	p.Load(items(3), 2)
	p.SetRepeat(RepeatAll)

	p.RemoveAt(2)

	if p.CurrentIndex() != 0 {
		t.Errorf("CurrentIndex() = %d, want 0", p.CurrentIndex())
	}
}

func TestPlaylist_IndexInvariant_RandomOps(t *testing.T) {
	p := New()
	p.Load(items(6), 3)
	ops := []func(){
		func() { p.RemoveAt(p.CurrentIndex()) },
		func() { p.Append(items(2), 0) },
		func() { p.Move(0, p.Len()-1) },
		func() { p.RemoveAt(0) },
		func() { p.Next() },
		func() { p.InsertNext(items(1)) },
		func() { p.RemoveAt(p.Len() - 1) },
		func() { p.Previous() },
		func() { p.RemoveAt(p.CurrentIndex()) },
		func() { p.RemoveAt(p.CurrentIndex()) },
	}
	for _, op := range ops {
		op()
		checkIndex(t, p)
	}
	for p.Len() > 0 {
		p.RemoveAt(p.CurrentIndex())
		checkIndex(t, p)
	}
}

func TestPlaylist_Replace(t *testing.T) {
	p := New()
	p.Load([]MediaItem{{ID: "a"}, {ID: "b"}, {ID: "a"}}, 0)

	n := p.Replace(MediaItem{ID: "a", Title: "Song"})

	if n != 2 {
		t.Errorf("Replace() = %d, want 2", n)
	}
	for _, i := range []int{0, 2} {
		if it, _ := p.Item(i); it.Title != "Song" {
			t.Errorf("Item(%d).Title = %q, want Song", i, it.Title)
		}
	}
}

func TestPlaylist_Items_ReturnsCopy(t *testing.T) {
	p := New()
	p.Load(items(2), 0)

	got := p.Items()
	got[0].ID = "modified"

	if it, _ := p.Item(0); it.ID == "modified" {
		t.Error("Items() should return a copy")
	}
}
