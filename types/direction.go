package types

// Direction is a closed two-variant union: Long or Short. Every comparison that
// depends on the trade side lives on the variant, so callers pick the variant
// once and never branch on it again.
type Direction interface {
	Side() Side
	String() string
	// Sign is +1 for Long and -1 for Short.
	Sign() float64
	Opposite() Direction

	// Toward moves price by dist in the profitable direction.
	Toward(price, dist float64) float64
	// Away moves price by dist in the losing direction.
	Away(price, dist float64) float64

	// Beyond reports a strictly on the profitable side of b.
	Beyond(a, b float64) bool
	// AtOrBeyond reports a on or past b on the profitable side.
	AtOrBeyond(a, b float64) bool
	// Behind reports a strictly on the losing side of b.
	Behind(a, b float64) bool
	// AtOrBehind reports a on or past b on the losing side.
	AtOrBehind(a, b float64) bool

	// Adverse is the bar extreme on the losing side (Low for Long).
	Adverse(b Bar) float64
	// Favorable is the bar extreme on the profitable side (High for Long).
	Favorable(b Bar) float64

	// EntryQuote is the price an order on this side fills at.
	EntryQuote(q Quote) float64
	// ExitQuote is the price a position on this side closes at.
	ExitQuote(q Quote) float64

	isDirection()
}

var (
	Long  Direction = long{}
	Short Direction = short{}
)

// DirectionOf maps a side to its direction.
func DirectionOf(s Side) Direction {
	if s == Sell {
		return Short
	}
	return Long
}

type long struct{}

func (long) Side() Side { return Buy }
func (long) String() string { return "LONG" }
func (long) Sign() float64 { return 1 }
func (long) Opposite() Direction { return Short }
func (long) Toward(p, d float64) float64 { return p + d }
func (long) Away(p, d float64) float64 { return p - d }
func (long) Beyond(a, b float64) bool { return a > b }
func (long) AtOrBeyond(a, b float64) bool { return a >= b }
func (long) Behind(a, b float64) bool { return a < b }
func (long) AtOrBehind(a, b float64) bool { return a <= b }
func (long) Adverse(b Bar) float64 { return b.Low }
func (long) Favorable(b Bar) float64 { return b.High }
func (long) EntryQuote(q Quote) float64 { return q.Ask }
func (long) ExitQuote(q Quote) float64 { return q.Bid }
func (long) isDirection() {}

type short struct{}

func (short) Side() Side { return Sell }
func (short) String() string { return "SHORT" }
func (short) Sign() float64 { return -1 }
func (short) Opposite() Direction { return Long }
func (short) Toward(p, d float64) float64 { return p - d }
func (short) Away(p, d float64) float64 { return p + d }
func (short) Beyond(a, b float64) bool { return a < b }
func (short) AtOrBeyond(a, b float64) bool { return a <= b }
func (short) Behind(a, b float64) bool { return a > b }
func (short) AtOrBehind(a, b float64) bool { return a >= b }
func (short) Adverse(b Bar) float64 { return b.High }
func (short) Favorable(b Bar) float64 { return b.Low }
func (short) EntryQuote(q Quote) float64 { return q.Bid }
func (short) ExitQuote(q Quote) float64 { return q.Ask }
func (short) isDirection() {}
