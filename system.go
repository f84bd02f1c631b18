package bachome

import (
	"sync"

	"github.com/brutella/hap/characteristic"
)

// device operation modes, shared by the whole unit (multi-state value)
const (
	modeUnknown = 0
	modeAuto    = 1
	modeHeat    = 2
	modeCool    = 3
	modeDry     = 4
)

// System holds the two facts every zone shares: the controller's network
// address and the unit-wide operation mode. Exactly one exists per platform;
// the zones get it by reference at construction.
type System struct {
	addr   string
	client PresentValueClient

	mu   sync.Mutex
	mode int // last observed device mode, modeUnknown until fetched
}

func NewSystem(client PresentValueClient, addr string) *System {
	return &System{
		addr:   addr,
		client: client,
	}
}

func (s *System) Addr() string {
	return s.addr
}

// Mode returns the cached device mode without touching the network.
func (s *System) Mode() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

func (s *System) setMode(m int) {
	s.mu.Lock()
	s.mode = m
	s.mu.Unlock()
}

// RefreshMode reads the operation mode from the device and caches it. Called
// once at startup before any zone exists, then from zone refreshes.
func (s *System) RefreshMode() (int, error) {
	e, err := directory.Global(keyOperationMode)
	if err != nil {
		return modeUnknown, err
	}

	v, err := s.client.ReadPresentValue(s.addr, e.Ref)
	if err != nil {
		return modeUnknown, err
	}

	m := int(v)
	s.setMode(m)
	return m, nil
}

// WriteMode pushes a device mode to the unit and caches it on success. The
// device is the source of truth; a racing refresh converges on the next pass.
func (s *System) WriteMode(m int) error {
	e, err := directory.Global(keyOperationMode)
	if err != nil {
		return err
	}
	if err := writable(e, scopeGlobal); err != nil {
		return err
	}

	if _, err := s.client.WritePresentValue(s.addr, e.Ref, PresentValue{Tag: TagUnsigned, Value: float64(m)}); err != nil {
		return err
	}

	s.setMode(m)
	return nil
}

// readFanStatus reads the unit-wide fan object.
func (s *System) readFanStatus() (float64, error) {
	e, err := directory.Global(keyFanStatus)
	if err != nil {
		return 0, err
	}
	return s.client.ReadPresentValue(s.addr, e.Ref)
}

// device mode to hap target state. DRY has no HomeKit equivalent and shows as
// COOL; the map is lossy there and nowhere else.
func dm2hap(m int) int {
	switch m {
	case modeHeat:
		return characteristic.TargetHeatingCoolingStateHeat
	case modeCool, modeDry:
		return characteristic.TargetHeatingCoolingStateCool
	case modeAuto:
		return characteristic.TargetHeatingCoolingStateAuto
	default:
		return characteristic.TargetHeatingCoolingStateOff
	}
}

// hap target state to device mode. The unit has no "off" reachable from this
// object -- shutting it down is a different control point -- so OFF writes
// AUTO and the zone dampers idle out on their own.
func hap2dm(s int) int {
	switch s {
	case characteristic.TargetHeatingCoolingStateHeat:
		return modeHeat
	case characteristic.TargetHeatingCoolingStateCool:
		return modeCool
	default: // Off, Auto
		return modeAuto
	}
}
