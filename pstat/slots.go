package pstat

// SlotCount is the fixed number of periodic-status slots (§4.9: "Four
// slots").
const SlotCount = 4

// Slot holds one periodic-status slot's configuration and countdown.
type Slot struct {
	Period     uint16 // ticks; 0 = disabled
	countdown  uint16
	Descriptor [DescriptorLen]Opcode
}

// Scheduler advances all four slots by one control tick and reports
// which ones fired, along with their assembled payload, ready for
// dispatch on whichever link is currently active (§4.9 "dispatched
// asynchronously on whichever link is active").
type Scheduler struct {
	slots [SlotCount]Slot
}

// PeriodSet configures a slot's period (0 disables it) and resets its
// countdown, matching `pstat_per_en_Sn`.
func (s *Scheduler) PeriodSet(slot int, period uint16) {
	s.slots[slot].Period = period
	s.slots[slot].countdown = period
}

// DescriptorSet configures a slot's 8-byte format descriptor, matching
// `pstat_cfg_Sn`.
func (s *Scheduler) DescriptorSet(slot int, desc [DescriptorLen]Opcode) {
	s.slots[slot].Descriptor = desc
}

// Fired is one slot's assembled output for this tick.
type Fired struct {
	Slot    int
	Payload []byte
}

// Tick decrements every enabled slot's countdown; any slot reaching
// zero resets to its configured period and has its payload assembled
// from the given tick-coherent snapshot.
func (s *Scheduler) Tick(snap Snapshot, hooks ClearHooks) []Fired {
	var fired []Fired
	for i := range s.slots {
		slot := &s.slots[i]
		if slot.Period == 0 {
			continue
		}
		if slot.countdown == 0 {
			slot.countdown = slot.Period
		}
		slot.countdown--
		if slot.countdown == 0 {
			fired = append(fired, Fired{Slot: i, Payload: Assemble(slot.Descriptor, snap, hooks)})
		}
	}
	return fired
}
