package geom

// Anchor names one of the eight reference points of a Rectangle.
type Anchor int

const (
	AnchorTopLeft Anchor = iota
	AnchorTopRight
	AnchorBottomLeft
	AnchorBottomRight
	AnchorTopMiddle
	AnchorBottomMiddle
	AnchorLeftMiddle
	AnchorRightMiddle
)

// String returns the anchor's snake_case name
func (a Anchor) String() string {
	switch a {
	case AnchorTopLeft:
		return "top_left"
	case AnchorTopRight:
		return "top_right"
	case AnchorBottomLeft:
		return "bottom_left"
	case AnchorBottomRight:
		return "bottom_right"
	case AnchorTopMiddle:
		return "top_middle"
	case AnchorBottomMiddle:
		return "bottom_middle"
	case AnchorLeftMiddle:
		return "left_middle"
	case AnchorRightMiddle:
		return "right_middle"
	default:
		return "unknown"
	}
}

// Anchors lists every anchor in declaration order
var Anchors = [...]Anchor{
	AnchorTopLeft, AnchorTopRight, AnchorBottomLeft, AnchorBottomRight,
	AnchorTopMiddle, AnchorBottomMiddle, AnchorLeftMiddle, AnchorRightMiddle,
}

// Rectangle is an axis-aligned rectangle with its origin at the bottom-left.
type Rectangle struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
	W float64 `json:"w" msgpack:"w"`
	H float64 `json:"h" msgpack:"h"`
}

func (r Rectangle) Left() float64   { return r.X }
func (r Rectangle) Right() float64  { return r.X + r.W }
func (r Rectangle) Top() float64    { return r.Y + r.H }
func (r Rectangle) Bottom() float64 { return r.Y }

func (r Rectangle) centerX() float64 { return (r.Left() + r.Right()) / 2 }
func (r Rectangle) centerY() float64 { return (r.Top() + r.Bottom()) / 2 }

func (r Rectangle) TopLeft() Vec2      { return Vec2{r.Left(), r.Top()} }
func (r Rectangle) TopRight() Vec2     { return Vec2{r.Right(), r.Top()} }
func (r Rectangle) BottomLeft() Vec2   { return Vec2{r.Left(), r.Bottom()} }
func (r Rectangle) BottomRight() Vec2  { return Vec2{r.Right(), r.Bottom()} }
func (r Rectangle) TopMiddle() Vec2    { return Vec2{r.centerX(), r.Top()} }
func (r Rectangle) BottomMiddle() Vec2 { return Vec2{r.centerX(), r.Bottom()} }
func (r Rectangle) LeftMiddle() Vec2   { return Vec2{r.Left(), r.centerY()} }
func (r Rectangle) RightMiddle() Vec2  { return Vec2{r.Right(), r.centerY()} }

// Anchor returns the named point of the rectangle.
// Unknown anchors resolve to the center.
func (r Rectangle) Anchor(a Anchor) Vec2 {
	switch a {
	case AnchorTopLeft:
		return r.TopLeft()
	case AnchorTopRight:
		return r.TopRight()
	case AnchorBottomLeft:
		return r.BottomLeft()
	case AnchorBottomRight:
		return r.BottomRight()
	case AnchorTopMiddle:
		return r.TopMiddle()
	case AnchorBottomMiddle:
		return r.BottomMiddle()
	case AnchorLeftMiddle:
		return r.LeftMiddle()
	case AnchorRightMiddle:
		return r.RightMiddle()
	default:
		return Vec2{r.centerX(), r.centerY()}
	}
}

// Expand grows the rectangle outward by d on all four sides
func (r Rectangle) Expand(d float64) Rectangle {
	return Rectangle{X: r.X - d, Y: r.Y - d, W: r.W + 2*d, H: r.H + 2*d}
}

// Contains reports whether p lies inside or on the boundary
func (r Rectangle) Contains(p Vec2) bool {
	return p.X >= r.Left() && p.X <= r.Right() && p.Y >= r.Bottom() && p.Y <= r.Top()
}
