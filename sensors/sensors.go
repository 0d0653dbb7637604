// Package sensors exposes the analog/quadrature/potentiometer readings
// the regulator feeds on (§4.3 "Sensor layer"). ADC sampling hardware and
// encoder/potentiometer pin wiring are external collaborators per §1;
// this package specifies only the getter surface and the scaling
// configuration, and provides a host-test Reader driven by canned
// samples.
package sensors

import "github.com/jaguarmc/core/internal/fixed"

// SpeedSource selects which sensor feeds the Speed-mode measurement.
type SpeedSource int

const (
	SpeedFromEncoder SpeedSource = iota
	SpeedFromPotentiometer
)

// PositionSource selects which sensor feeds the Position-mode
// measurement.
type PositionSource int

const (
	PositionFromEncoder PositionSource = iota
	PositionFromPotentiometer
)

// Sample is a coherent snapshot of every sensor, taken once per control
// tick so that multi-byte periodic-status assembly (pstat package)
// never tears a reading across two different instants (§4.9 "Assembly
// snapshots multi-byte sensor reads once per tick across all slots for
// coherence").
type Sample struct {
	BusVoltage  fixed.Q8_8 // volts
	Current     fixed.Q8_8 // amperes
	Temperature fixed.Q8_8 // degrees C
	Position    int32      // cumulative encoder count
	Speed       fixed.Q16_16
	PotPosition fixed.Q16_16 // turns, from potentiometer
}

// Reader is the sensor-layer contract. Getters return the most recent
// sample; the freshness guarantee (no older than one control tick) is
// the implementation's concern, not this interface's.
type Reader interface {
	Sample() Sample
	PotTurnsGet() float32
	PotTurnsSet(turns float32)
	EncoderLinesGet() uint16
	EncoderLinesSet(lines uint16)
}
