// Package relay provides on/off actuator control with hardware abstraction.
// The real implementation drives relay outputs through the Linux GPIO
// character device; the fake implementation allows testing without hardware.
package relay

// Switch controls a single relay output.
type Switch interface {
	// Set drives the relay on or off.
	Set(on bool) error

	// Close releases the underlying resources.
	Close() error
}

// Relay offsets on the LilyGo 8-channel board (BCM numbering).
// The first two are swapped relative to the silkscreen: the physical
// wiring on the deployed board is backwards.
const (
	OffsetAuger = 33
	OffsetChain = 32
)

// DefaultChip is the GPIO character device the relay board hangs off.
const DefaultChip = "gpiochip0"
