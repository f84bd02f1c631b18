package bachome

import (
	"fmt"
	"sync"

	"github.com/brutella/hap/characteristic"
)

// f2c and c2f are the linear Fahrenheit/Celsius transforms. HomeKit always
// speaks Celsius; the device speaks whatever the installer configured.
func f2c(f float64) float64 {
	return (f - 32) * 5 / 9
}

func c2f(c float64) float64 {
	return c*9/5 + 32
}

// zoneState is the cache a zone serves while refreshes are in flight. The
// demand sign is the only derived fact in here; everything else is just the
// last thing the device told us. Serialized to the startup cache file.
type zoneState struct {
	CurrentState   int     `json:"currentState"`
	CurrentTemp    float64 `json:"currentTemp"`
	Humidity       float64 `json:"humidity"`
	HeatSetpoint   float64 `json:"heatSetpoint"`
	CoolSetpoint   float64 `json:"coolSetpoint"`
	FanState       int     `json:"fanState"`
	DisplayUnits   int     `json:"displayUnits"`
	HeatingDemand  float64 `json:"heatingDemand"`
	CoolingDemand  float64 `json:"coolingDemand"`
	LastDemandSign int     `json:"lastDemandSign"` // >0 heating, <0 cooling, 0 never observed
}

// sane first-boot values, in Celsius; replaced by the startup cache or the
// first round of refreshes
func defaultZoneState() zoneState {
	return zoneState{
		CurrentState: characteristic.CurrentHeatingCoolingStateOff,
		CurrentTemp:  21.0,
		Humidity:     40.0,
		HeatSetpoint: 20.0,
		CoolSetpoint: 25.0,
		FanState:     characteristic.CurrentFanStateInactive,
	}
}

// Zone translates one climate zone's objects into HomeKit terms. All network
// methods block for the round trip; the refresher decides who waits.
type Zone struct {
	Number int
	Name   string

	sys        *System
	client     PresentValueClient
	fahrenheit bool // device-side unit flag from config, not the HomeKit display unit

	mu    sync.Mutex
	state zoneState
}

// NewZone builds the controller for zone number z. An out-of-range zone fails
// here with UnknownObjectError, before any accessory exists.
func NewZone(sys *System, client PresentValueClient, z int, name string, fahrenheit bool) (*Zone, error) {
	for _, k := range zoneKeys {
		if _, err := directory.Zone(z, k); err != nil {
			return nil, err
		}
	}

	return &Zone{
		Number:     z,
		Name:       name,
		sys:        sys,
		client:     client,
		fahrenheit: fahrenheit,
		state:      defaultZoneState(),
	}, nil
}

// fromDevice converts a device temperature to Celsius.
func (z *Zone) fromDevice(v float64) float64 {
	if z.fahrenheit {
		return f2c(v)
	}
	return v
}

// toDevice converts a Celsius temperature to device units.
func (z *Zone) toDevice(c float64) float64 {
	if z.fahrenheit {
		return c2f(c)
	}
	return c
}

func (z *Zone) read(key string) (float64, error) {
	e, err := directory.Zone(z.Number, key)
	if err != nil {
		return 0, err
	}
	return z.client.ReadPresentValue(z.sys.Addr(), e.Ref)
}

func (z *Zone) write(key string, pv PresentValue) (float64, error) {
	e, err := directory.Zone(z.Number, key)
	if err != nil {
		return 0, err
	}
	if err := writable(e, fmt.Sprintf("zone%d", z.Number)); err != nil {
		return 0, err
	}
	return z.client.WritePresentValue(z.sys.Addr(), e.Ref, pv)
}

// RefreshCurrentState reads both demand objects and infers what the zone is
// doing right now. Both demands nonzero at once is anomalous and reported as
// OFF. A nonzero observation also updates the demand sign used by the target
// temperature arbitration; it never touches the shared mode.
func (z *Zone) RefreshCurrentState() (int, error) {
	heating, err := z.read(keyHeatingDemand)
	if err != nil {
		return 0, err
	}
	cooling, err := z.read(keyCoolingDemand)
	if err != nil {
		return 0, err
	}

	pred := 0
	if heating > 0 {
		pred |= 1
	}
	if cooling > 0 {
		pred |= 2
	}

	state := characteristic.CurrentHeatingCoolingStateOff
	switch pred {
	case 1:
		state = characteristic.CurrentHeatingCoolingStateHeat
	case 2:
		state = characteristic.CurrentHeatingCoolingStateCool
	}

	z.mu.Lock()
	if pred != 0 {
		switch {
		case heating > cooling:
			z.state.LastDemandSign = 1
		case cooling > heating:
			z.state.LastDemandSign = -1
		default:
			z.state.LastDemandSign = 0
		}
	}
	z.state.CurrentState = state
	z.state.HeatingDemand = heating
	z.state.CoolingDemand = cooling
	z.mu.Unlock()

	return state, nil
}

// RefreshTargetState re-reads the shared operation mode.
func (z *Zone) RefreshTargetState() (int, error) {
	m, err := z.sys.RefreshMode()
	if err != nil {
		return 0, err
	}
	return dm2hap(m), nil
}

// SetTargetState writes the shared operation mode. Every zone sees the change
// on its next read; only one write goes to the device.
func (z *Zone) SetTargetState(s int) error {
	return z.sys.WriteMode(hap2dm(s))
}

func (z *Zone) RefreshCurrentTemperature() (float64, error) {
	v, err := z.read(keyRoomTemperature)
	if err != nil {
		return 0, err
	}
	c := z.fromDevice(v)

	z.mu.Lock()
	z.state.CurrentTemp = c
	z.mu.Unlock()
	return c, nil
}

func (z *Zone) RefreshHumidity() (float64, error) {
	v, err := z.read(keyRelativeHumidity)
	if err != nil {
		return 0, err
	}

	z.mu.Lock()
	z.state.Humidity = v
	z.mu.Unlock()
	return v, nil
}

func (z *Zone) RefreshHeatSetpoint() (float64, error) {
	v, err := z.read(keyHeatSetpoint)
	if err != nil {
		return 0, err
	}
	c := z.fromDevice(v)

	z.mu.Lock()
	z.state.HeatSetpoint = c
	z.mu.Unlock()
	return c, nil
}

func (z *Zone) RefreshCoolSetpoint() (float64, error) {
	v, err := z.read(keyCoolSetpoint)
	if err != nil {
		return 0, err
	}
	c := z.fromDevice(v)

	z.mu.Lock()
	z.state.CoolSetpoint = c
	z.mu.Unlock()
	return c, nil
}

func (z *Zone) SetHeatSetpoint(c float64) error {
	if _, err := z.write(keyHeatSetpoint, PresentValue{Tag: TagReal, Value: z.toDevice(c)}); err != nil {
		return err
	}

	z.mu.Lock()
	z.state.HeatSetpoint = c
	z.mu.Unlock()
	return nil
}

func (z *Zone) SetCoolSetpoint(c float64) error {
	if _, err := z.write(keyCoolSetpoint, PresentValue{Tag: TagReal, Value: z.toDevice(c)}); err != nil {
		return err
	}

	z.mu.Lock()
	z.state.CoolSetpoint = c
	z.mu.Unlock()
	return nil
}

// activeSetpointKey decides which of the two setpoints stands in for
// HomeKit's single target temperature. HEAT and COOL modes are unambiguous.
// In AUTO and DRY the device gives us nothing authoritative, so the last
// observed demand direction breaks the tie: a zone that most recently called
// for heat follows the heating setpoint. A zone that has never shown demand
// follows the cooling setpoint. Best effort; the device has no object that
// answers this directly.
func (z *Zone) activeSetpointKey() string {
	switch z.sys.Mode() {
	case modeHeat:
		return keyHeatSetpoint
	case modeCool:
		return keyCoolSetpoint
	}

	z.mu.Lock()
	sign := z.state.LastDemandSign
	z.mu.Unlock()

	if sign > 0 {
		return keyHeatSetpoint
	}
	return keyCoolSetpoint
}

// RefreshTargetTemperature reads whichever setpoint is currently standing in
// for the target temperature.
func (z *Zone) RefreshTargetTemperature() (float64, error) {
	key := z.activeSetpointKey()
	if key == keyHeatSetpoint {
		return z.RefreshHeatSetpoint()
	}
	return z.RefreshCoolSetpoint()
}

// SetTargetTemperature writes through the same selection the getter uses.
func (z *Zone) SetTargetTemperature(c float64) error {
	if z.activeSetpointKey() == keyHeatSetpoint {
		return z.SetHeatSetpoint(c)
	}
	return z.SetCoolSetpoint(c)
}

// RefreshFanState reads the unit-wide fan object. The device only reports
// running or not, so IDLE is never derivable.
func (z *Zone) RefreshFanState() (int, error) {
	v, err := z.sys.readFanStatus()
	if err != nil {
		return 0, err
	}

	state := characteristic.CurrentFanStateInactive
	if v != 0 {
		state = characteristic.CurrentFanStateBlowingAir
	}

	z.mu.Lock()
	z.state.FanState = state
	z.mu.Unlock()
	return state, nil
}

// cached accessors, never touch the network

func (z *Zone) CurrentState() int {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.state.CurrentState
}

func (z *Zone) TargetState() int {
	return dm2hap(z.sys.Mode())
}

func (z *Zone) CurrentTemperature() float64 {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.state.CurrentTemp
}

func (z *Zone) Humidity() float64 {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.state.Humidity
}

func (z *Zone) HeatSetpoint() float64 {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.state.HeatSetpoint
}

func (z *Zone) CoolSetpoint() float64 {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.state.CoolSetpoint
}

// TargetTemperature applies the setpoint arbitration to the cached values.
func (z *Zone) TargetTemperature() float64 {
	if z.activeSetpointKey() == keyHeatSetpoint {
		return z.HeatSetpoint()
	}
	return z.CoolSetpoint()
}

func (z *Zone) FanState() int {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.state.FanState
}

func (z *Zone) Demands() (heating, cooling float64) {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.state.HeatingDemand, z.state.CoolingDemand
}

// DisplayUnits and SetDisplayUnits are a HomeKit-side preference only. They
// never reach the device and have nothing to do with the device unit flag.
func (z *Zone) DisplayUnits() int {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.state.DisplayUnits
}

func (z *Zone) SetDisplayUnits(u int) {
	z.mu.Lock()
	z.state.DisplayUnits = u
	z.mu.Unlock()
}

// snapshot and restore move the whole cache in and out of the startup cache
// file. restore keeps the compiled-in defaults for anything the file lacks.
func (z *Zone) snapshot() zoneState {
	z.mu.Lock()
	defer z.mu.Unlock()
	return z.state
}

func (z *Zone) restore(s zoneState) {
	z.mu.Lock()
	z.state = s
	z.mu.Unlock()
}
