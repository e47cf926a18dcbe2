package window

import "fmt"

// Channel identifies one optical sensing modality of a PPG device.
type Channel uint8

const (
	IR Channel = iota
	Red
	Green
)

// DefaultChannels is the channel order of a three wavelength PPG board:
// index 0 is the first pulsatile channel, 1 the second, 2 the third.
var DefaultChannels = []Channel{IR, Red, Green}

func (c Channel) String() string {
	switch c {
	case IR:
		return "IR PPG"
	case Red:
		return "RED PPG"
	case Green:
		return "GREEN PPG"
	default:
		return fmt.Sprintf("PPG %d", uint8(c))
	}
}
