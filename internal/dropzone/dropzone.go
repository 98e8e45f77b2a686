// package dropzone tracks the visibility of the "drop files here" overlay.
//
// The overlay is driven by drag events. In the terminal those events come from the add-files prompt: opening it,
// focusing or blurring its input, pressing Esc, and pasting (dragging files onto a terminal pastes their paths).
package dropzone

import "fmt"

// State of the overlay.
type State int

const (
	Hidden      State = iota // Overlay not shown
	Shown                    // Overlay visible, pointer outside the drop region
	Highlighted              // Overlay visible, pointer over the drop region
)

func (s State) String() string {
	switch s {
	case Hidden:
		return "hidden"
	case Shown:
		return "shown"
	case Highlighted:
		return "highlighted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Visible reports whether the overlay is drawn.
func (s State) Visible() bool {
	return s != Hidden
}

// Event is a drag event delivered to the overlay.
type Event int

const (
	WindowDragEnter Event = iota
	ZoneDragEnter
	ZoneDragOver
	ZoneDragLeave
	WindowDragLeave
	Drop
)

func (e Event) String() string {
	switch e {
	case WindowDragEnter:
		return "window_drag_enter"
	case ZoneDragEnter:
		return "zone_drag_enter"
	case ZoneDragOver:
		return "zone_drag_over"
	case ZoneDragLeave:
		return "zone_drag_leave"
	case WindowDragLeave:
		return "window_drag_leave"
	case Drop:
		return "drop"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

// transitions[event][state] is the next state.
var transitions = map[Event][3]State{
	WindowDragEnter: {Hidden: Shown, Shown: Shown, Highlighted: Highlighted},
	ZoneDragEnter:   {Hidden: Highlighted, Shown: Highlighted, Highlighted: Highlighted},
	ZoneDragOver:    {Hidden: Highlighted, Shown: Highlighted, Highlighted: Highlighted},
	ZoneDragLeave:   {Hidden: Hidden, Shown: Shown, Highlighted: Shown},
	WindowDragLeave: {Hidden: Hidden, Shown: Hidden, Highlighted: Hidden},
	Drop:            {Hidden: Hidden, Shown: Hidden, Highlighted: Hidden},
}

// Next returns the state after e. Unknown states or events leave the overlay hidden.
func Next(s State, e Event) State {
	row, ok := transitions[e]
	if !ok || s < Hidden || s > Highlighted {
		return Hidden
	}
	return row[s]
}

// Zone is the overlay with its current state. The zero value is hidden.
type Zone struct {
	state State
}

func (z *Zone) State() State { return z.state }

// Handle applies a non-drop event and returns the new state.
func (z *Zone) Handle(e Event) State {
	z.state = Next(z.state, e)
	return z.state
}

// Drop hides the overlay and returns the dropped paths for ingestion, in the order given.
func (z *Zone) Drop(paths []string) []string {
	z.state = Next(z.state, Drop)
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
