package engine

// Color constants, packed into the upper 4 bits of Card.
const (
	ColorRed    uint8 = 0
	ColorYellow uint8 = 1
	ColorGreen  uint8 = 2
	ColorBlue   uint8 = 3
	ColorWild   uint8 = 4 // wild cards carry no colour; also "no colour chosen" in EncodePlay
)

// NumColors is the number of playable (non-wild) colours.
const NumColors = 4

// Rank constants, packed into the lower 4 bits of Card.
const (
	RankZero         uint8 = 0
	RankNine         uint8 = 9
	RankSkip         uint8 = 10
	RankReverse      uint8 = 11
	RankDrawTwo      uint8 = 12
	RankWild         uint8 = 13
	RankWildDrawFour uint8 = 14
)

// Card is a packed uint8: upper 4 bits = colour, lower 4 bits = rank.
type Card uint8

// EmptyCard represents the absence of a card.
const EmptyCard Card = 0xFF

// NewCard constructs a Card from colour and rank.
func NewCard(color, rank uint8) Card {
	return Card((color << 4) | (rank & 0x0F))
}

// Color returns the colour bits (upper 4).
func (c Card) Color() uint8 { return uint8(c) >> 4 }

// Rank returns the rank bits (lower 4).
func (c Card) Rank() uint8 { return uint8(c) & 0x0F }

// IsWild reports whether the card is a Wild or Wild Draw Four.
func (c Card) IsWild() bool {
	r := c.Rank()
	return r == RankWild || r == RankWildDrawFour
}

// IsNumber reports whether the card is a coloured 0–9.
func (c Card) IsNumber() bool {
	return c != EmptyCard && c.Rank() <= RankNine
}

// Points returns the scoring value of the card.
//   - 0–9 → face value
//   - Skip, Reverse, Draw Two → 20
//   - Wild, Wild Draw Four → 50
func (c Card) Points() int {
	r := c.Rank()
	switch {
	case c == EmptyCard:
		return 0
	case r <= RankNine:
		return int(r)
	case r <= RankDrawTwo:
		return 20
	default:
		return 50
	}
}

var colorNames = [...]string{"red", "yellow", "green", "blue", "wild"}

var rankNames = [...]string{
	"0", "1", "2", "3", "4", "5", "6", "7", "8", "9",
	"skip", "reverse", "draw two", "wild", "wild draw four",
}

// ColorName returns the lower-case name of a colour, or "" when out of range.
func ColorName(color uint8) string {
	if int(color) < len(colorNames) {
		return colorNames[color]
	}
	return ""
}

// RankName returns the lower-case name of a rank, or "" when out of range.
func RankName(rank uint8) string {
	if int(rank) < len(rankNames) {
		return rankNames[rank]
	}
	return ""
}

// ParseColor maps a colour name to its constant. The empty string maps to
// ColorWild (no choice).
func ParseColor(name string) (uint8, bool) {
	if name == "" {
		return ColorWild, true
	}
	for i, n := range colorNames[:NumColors] {
		if n == name {
			return uint8(i), true
		}
	}
	return 0, false
}

// String renders the card the way players say it: "red 7", "blue skip", "wild".
func (c Card) String() string {
	if c == EmptyCard {
		return "none"
	}
	if c.IsWild() {
		return RankName(c.Rank())
	}
	return ColorName(c.Color()) + " " + RankName(c.Rank())
}

// ---------------------------------------------------------------------------
// Action index constants
// ---------------------------------------------------------------------------

const (
	ActionDraw     uint16 = 0
	ActionPass     uint16 = 1
	ActionBasePlay uint16 = 2 // Play(handIdx*5 + color), MaxHandSize*5 entries

	playStride = NumColors + 1

	NumActions uint16 = ActionBasePlay + MaxHandSize*playStride
)

// EncodePlay returns the action index for playing the card at handIdx.
// color is the colour chosen for a wild card, or ColorWild for any other card.
func EncodePlay(handIdx, color uint8) uint16 {
	return ActionBasePlay + uint16(handIdx)*playStride + uint16(color)
}

// ActionIsPlay returns the hand index and chosen colour if idx encodes a Play action.
func ActionIsPlay(idx uint16) (handIdx, color uint8, ok bool) {
	if idx >= ActionBasePlay && idx < NumActions {
		offset := idx - ActionBasePlay
		return uint8(offset / playStride), uint8(offset % playStride), true
	}
	return 0, 0, false
}

// ---------------------------------------------------------------------------
// LastActionInfo is the public observation of the last game action.
// ---------------------------------------------------------------------------

// LastActionInfo encodes a fully observable summary of the most recent action.
type LastActionInfo struct {
	ActionIdx    uint16
	ActingPlayer uint8
	Played       Card  // EmptyCard unless the action was a Play
	Drawn        uint8 // cards drawn by the acting player
	Penalized    int8  // seat forced to draw by Draw Two / Wild Draw Four, -1 if none
	Penalty      uint8 // cards drawn by Penalized
	Forfeited    int8  // seat removed by Forfeit, -1 if none
}
