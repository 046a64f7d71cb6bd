package drawing

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
)

type Tool string

const (
	ToolBrush  Tool = "brush"
	ToolEraser Tool = "eraser"
	ToolFill   Tool = "fill"
)

const (
	MinSize   = 1
	MaxSize   = 50
	MaxPoints = 10000
)

var hexColorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Action is one atomic drawing operation: a stroke or a fill.
// Actions are treated as immutable values once created.
type Action struct {
	Tool      Tool    `json:"tool"`
	Color     string  `json:"color"`
	Size      int     `json:"size"`
	Points    []Point `json:"points"`
	FillPoint *Point  `json:"fillPoint,omitempty"`
}

func NewStroke(tool Tool, color string, size int, points ...Point) Action {
	pts := make([]Point, len(points))
	copy(pts, points)
	return Action{Tool: tool, Color: color, Size: size, Points: pts}
}

func NewFill(color string, size int, at Point) Action {
	p := Point{X: math.Floor(at.X), Y: math.Floor(at.Y)}
	return Action{Tool: ToolFill, Color: color, Size: size, Points: []Point{}, FillPoint: &p}
}

func (a Action) IsStroke() bool {
	return a.Tool == ToolBrush || a.Tool == ToolEraser
}

// Validate rejects actions that must never reach an action log.
func (a Action) Validate() error {
	switch a.Tool {
	case ToolBrush, ToolEraser, ToolFill:
	default:
		return fmt.Errorf("%w: unknown tool %q", ErrMalformedAction, a.Tool)
	}

	if a.Size < MinSize || a.Size > MaxSize {
		return fmt.Errorf("%w: size %d outside %d..%d", ErrMalformedAction, a.Size, MinSize, MaxSize)
	}

	if a.Tool != ToolEraser && !hexColorPattern.MatchString(a.Color) {
		return fmt.Errorf("%w: invalid color %q", ErrMalformedAction, a.Color)
	}

	if a.Tool == ToolFill {
		if a.FillPoint == nil {
			return fmt.Errorf("%w: fill without fillPoint", ErrMalformedAction)
		}
		if len(a.Points) != 0 {
			return fmt.Errorf("%w: fill with points", ErrMalformedAction)
		}
		if !finite(*a.FillPoint) {
			return fmt.Errorf("%w: non-finite fillPoint", ErrMalformedAction)
		}
		return nil
	}

	if len(a.Points) == 0 {
		return fmt.Errorf("%w: %s without points", ErrMalformedAction, a.Tool)
	}
	if len(a.Points) > MaxPoints {
		return fmt.Errorf("%w: %d points exceeds %d", ErrMalformedAction, len(a.Points), MaxPoints)
	}
	if a.FillPoint != nil {
		return fmt.Errorf("%w: %s with fillPoint", ErrMalformedAction, a.Tool)
	}
	for _, p := range a.Points {
		if !finite(p) {
			return fmt.Errorf("%w: non-finite point", ErrMalformedAction)
		}
	}

	return nil
}

// Key returns the structural identity of the action. Two actions with the
// same key are the same action as far as deduplication is concerned.
func (a Action) Key() string {
	if a.Points == nil {
		a.Points = []Point{}
	}
	b, err := json.Marshal(a)
	if err != nil {
		// only reachable with NaN/Inf coordinates, which Validate rejects
		return fmt.Sprintf("%#v", a)
	}
	return string(b)
}

func (a Action) Equal(b Action) bool {
	return a.Key() == b.Key()
}

// Clone returns a deep copy so callers can hand actions across goroutines.
func (a Action) Clone() Action {
	c := a
	if a.Points != nil {
		c.Points = make([]Point, len(a.Points))
		copy(c.Points, a.Points)
	}
	if a.FillPoint != nil {
		p := *a.FillPoint
		c.FillPoint = &p
	}
	return c
}

func CloneAll(actions []Action) []Action {
	out := make([]Action, len(actions))
	for i, a := range actions {
		out[i] = a.Clone()
	}
	return out
}

func finite(p Point) bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}
