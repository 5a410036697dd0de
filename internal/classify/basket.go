package classify

// BasketType is the classification tag carried by every Basket
// (spec.md §3/§4.1).
type BasketType int

const (
	None BasketType = iota
	Shareable_
	CopyMarshal
	Move
	Exception
)

func (t BasketType) String() string {
	switch t {
	case Shareable_:
		return "Shareable"
	case CopyMarshal:
		return "CopyMarshal"
	case Move:
		return "Move"
	case Exception:
		return "Exception"
	default:
		return "None"
	}
}

// Basket is the value envelope carried through the incoming queue and
// the yield/take rendezvous (spec.md §3 Basket, C2).
type Basket struct {
	Type    BasketType
	Payload Classifiable // set for Shareable_ and Move
	Bytes   []byte       // set for CopyMarshal and Exception
	Sender  ActorID

	// CorrelationID is a debug-only id (set only under CHECK_MODE) used
	// to correlate log lines for a single send/receive or yield/take
	// across actors without re-deriving it from (sender, index) pairs.
	CorrelationID string
}

// MovedPlaceholder is a ready-to-use MovedObject implementation a Mover
// can install over a value's original storage once its payload has been
// relocated into a fresh shell (spec.md §3 MovedObject).
type MovedPlaceholder struct {
	h Header
}

func (m *MovedPlaceholder) Header() *Header { return &m.h }
func (m *MovedPlaceholder) Kind() Kind      { return KindMoved }
func (m *MovedPlaceholder) Inspect() string { return "#<moved>" }
