package pinch

import (
	"fmt"

	"github.com/ayusman/mudra/internal/hand"
)

// Kind is the type of a pinch event.
type Kind int

const (
	KindStart Kind = iota
	KindHold
	KindEnd
	KindMicroMovement
)

func (k Kind) String() string {
	switch k {
	case KindStart:
		return "start"
	case KindHold:
		return "hold"
	case KindEnd:
		return "end"
	case KindMicroMovement:
		return "micro_movement"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Event is emitted by Engine.Observe. Strength is the smoothed value on the
// frame the event fired.
type Event struct {
	Kind     Kind
	Side     hand.Side
	Finger   hand.Finger
	Strength float64
}

func (e Event) String() string {
	return fmt.Sprintf("%s %s/%s %.3f", e.Kind, e.Side, e.Finger, e.Strength)
}
