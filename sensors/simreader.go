package sensors

// SimReader is a host-test Reader: its Sample is whatever the test last
// pushed via SetSample, generalizing max6675.Device.Read's
// single-reading return into a struct of readings a regulator test can
// drive tick by tick.
type SimReader struct {
	sample      Sample
	potTurns    float32
	encoderLines uint16
}

// NewSimReader returns a SimReader at the zero sample.
func NewSimReader() *SimReader {
	return &SimReader{potTurns: 1, encoderLines: 360}
}

func (s *SimReader) Sample() Sample { return s.sample }

// SetSample overwrites the next Sample() result. Tests call this once
// per simulated tick before invoking the regulator.
func (s *SimReader) SetSample(sm Sample) { s.sample = sm }

func (s *SimReader) PotTurnsGet() float32 { return s.potTurns }
func (s *SimReader) PotTurnsSet(turns float32) { s.potTurns = turns }

func (s *SimReader) EncoderLinesGet() uint16 { return s.encoderLines }
func (s *SimReader) EncoderLinesSet(lines uint16) { s.encoderLines = lines }
