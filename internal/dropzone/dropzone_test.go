package dropzone

import (
	"slices"
	"testing"
)

func TestNext(t *testing.T) {
	tests := []struct {
		event Event
		from  State
		want  State
	}{
		{WindowDragEnter, Hidden, Shown},
		{WindowDragEnter, Shown, Shown},
		{WindowDragEnter, Highlighted, Highlighted},
		{ZoneDragEnter, Hidden, Highlighted},
		{ZoneDragEnter, Shown, Highlighted},
		{ZoneDragEnter, Highlighted, Highlighted},
		{ZoneDragOver, Hidden, Highlighted},
		{ZoneDragOver, Shown, Highlighted},
		{ZoneDragOver, Highlighted, Highlighted},
		{ZoneDragLeave, Hidden, Hidden},
		{ZoneDragLeave, Shown, Shown},
		{ZoneDragLeave, Highlighted, Shown},
		{WindowDragLeave, Hidden, Hidden},
		{WindowDragLeave, Shown, Hidden},
		{WindowDragLeave, Highlighted, Hidden},
		{Drop, Hidden, Hidden},
		{Drop, Shown, Hidden},
		{Drop, Highlighted, Hidden},
		{Event(42), Shown, Hidden},
		{WindowDragEnter, State(9), Hidden},
	}

	for _, tt := range tests {
		t.Run(tt.event.String()+"/"+tt.from.String(), func(t *testing.T) {
			if got := Next(tt.from, tt.event); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestZone(t *testing.T) {
	t.Run("drag sequence", func(t *testing.T) {
		var z Zone
		steps := []struct {
			event Event
			want  State
		}{
			{WindowDragEnter, Shown},
			{ZoneDragEnter, Highlighted},
			{ZoneDragOver, Highlighted},
			{ZoneDragLeave, Shown},
			{WindowDragLeave, Hidden},
		}

		for _, s := range steps {
			if got := z.Handle(s.event); got != s.want {
				t.Errorf("after %s expected %s, got %s", s.event, s.want, got)
			}
		}
	})

	t.Run("drop hides and forwards paths in order", func(t *testing.T) {
		var z Zone
		z.Handle(WindowDragEnter)
		z.Handle(ZoneDragEnter)

		got := z.Drop([]string{"b.pdf", "", "a.pdf"})
		if want := []string{"b.pdf", "a.pdf"}; !slices.Equal(got, want) {
			t.Errorf("expected %v, got %v", want, got)
		}
		if z.State() != Hidden || z.State().Visible() {
			t.Errorf("expected hidden, got %s", z.State())
		}
	})

	t.Run("drop while hidden", func(t *testing.T) {
		var z Zone
		if got := z.Drop(nil); len(got) != 0 {
			t.Errorf("expected no paths, got %v", got)
		}
		if z.State() != Hidden {
			t.Errorf("expected hidden, got %s", z.State())
		}
	})
}
