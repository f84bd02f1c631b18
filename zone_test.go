package bachome

import (
	"fmt"
	"sync"
	"testing"

	"github.com/brutella/hap/characteristic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient is an in-memory device: reads come from values, writes are
// recorded and echoed. Failing refs return a TransportError.
type fakeClient struct {
	mu     sync.Mutex
	values map[ObjectReference]float64
	writes map[ObjectReference]PresentValue
	broken map[ObjectReference]bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		values: make(map[ObjectReference]float64),
		writes: make(map[ObjectReference]PresentValue),
		broken: make(map[ObjectReference]bool),
	}
}

func (f *fakeClient) ReadPresentValue(addr string, ref ObjectReference) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.broken[ref] {
		return 0, &TransportError{Op: "read " + ref.String(), Err: fmt.Errorf("timeout")}
	}
	return f.values[ref], nil
}

func (f *fakeClient) WritePresentValue(addr string, ref ObjectReference, pv PresentValue) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.broken[ref] {
		return 0, &TransportError{Op: "write " + ref.String(), Err: fmt.Errorf("timeout")}
	}
	f.writes[ref] = pv
	f.values[ref] = pv.Value
	return pv.Value, nil
}

func (f *fakeClient) set(t *testing.T, zone int, key string, v float64) {
	t.Helper()
	e, err := directory.Zone(zone, key)
	require.NoError(t, err)
	f.mu.Lock()
	f.values[e.Ref] = v
	f.mu.Unlock()
}

func (f *fakeClient) setGlobal(t *testing.T, key string, v float64) {
	t.Helper()
	e, err := directory.Global(key)
	require.NoError(t, err)
	f.mu.Lock()
	f.values[e.Ref] = v
	f.mu.Unlock()
}

func (f *fakeClient) written(t *testing.T, zone int, key string) (PresentValue, bool) {
	t.Helper()
	e, err := directory.Zone(zone, key)
	require.NoError(t, err)
	f.mu.Lock()
	defer f.mu.Unlock()
	pv, ok := f.writes[e.Ref]
	return pv, ok
}

func testZone(t *testing.T, f *fakeClient, num int, fahrenheit bool) (*Zone, *System) {
	t.Helper()
	sys := NewSystem(f, "10.0.0.20:47808")
	z, err := NewZone(sys, f, num, fmt.Sprintf("Zone %d", num), fahrenheit)
	require.NoError(t, err)
	return z, sys
}

func TestCurrentStateFromDemands(t *testing.T) {
	tests := []struct {
		name      string
		heating   float64
		cooling   float64
		wantState int
		wantSign  int
		updated   bool
	}{
		{"idle", 0, 0, characteristic.CurrentHeatingCoolingStateOff, 0, false},
		{"heating", 15, 0, characteristic.CurrentHeatingCoolingStateHeat, 1, true},
		{"cooling", 0, 40, characteristic.CurrentHeatingCoolingStateCool, -1, true},
		{"both equal", 20, 20, characteristic.CurrentHeatingCoolingStateOff, 0, true},
		{"both heating biased", 30, 10, characteristic.CurrentHeatingCoolingStateOff, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeClient()
			z, _ := testZone(t, f, 1, false)

			// pre-load a sign so we can tell "unchanged" from "set to zero"
			z.mu.Lock()
			z.state.LastDemandSign = -1
			z.mu.Unlock()

			f.set(t, 1, keyHeatingDemand, tt.heating)
			f.set(t, 1, keyCoolingDemand, tt.cooling)

			state, err := z.RefreshCurrentState()
			require.NoError(t, err)
			assert.Equal(t, tt.wantState, state)
			assert.Equal(t, tt.wantState, z.CurrentState())

			z.mu.Lock()
			sign := z.state.LastDemandSign
			z.mu.Unlock()
			if tt.updated {
				assert.Equal(t, tt.wantSign, sign)
			} else {
				assert.Equal(t, -1, sign, "sign must not move on an all-zero observation")
			}
		})
	}
}

func TestConversionRoundTrip(t *testing.T) {
	for _, x := range []float64{-40, 0, 0.5, 21.5, 37, 100, 451} {
		assert.InDelta(t, x, f2c(c2f(x)), 1e-9)
		assert.InDelta(t, x, c2f(f2c(x)), 1e-9)
	}
	assert.InDelta(t, 0.0, f2c(32), 1e-9)
	assert.InDelta(t, 212.0, c2f(100), 1e-9)
}

func TestModeMapping(t *testing.T) {
	// auto, heat and cool survive the round trip
	for _, m := range []int{modeAuto, modeHeat, modeCool} {
		assert.Equal(t, m, hap2dm(dm2hap(m)))
	}

	// dry is lossy and comes back as cool
	assert.Equal(t, characteristic.TargetHeatingCoolingStateCool, dm2hap(modeDry))
	assert.Equal(t, modeCool, hap2dm(dm2hap(modeDry)))

	// homekit off has no device equivalent and writes auto
	assert.Equal(t, modeAuto, hap2dm(characteristic.TargetHeatingCoolingStateOff))

	// unknown reads as off
	assert.Equal(t, characteristic.TargetHeatingCoolingStateOff, dm2hap(modeUnknown))
}

func TestSetpointArbitration(t *testing.T) {
	tests := []struct {
		name string
		mode int
		sign int
		want string
	}{
		{"heat ignores sign", modeHeat, -1, keyHeatSetpoint},
		{"cool ignores sign", modeCool, 1, keyCoolSetpoint},
		{"auto heating biased", modeAuto, 1, keyHeatSetpoint},
		{"auto cooling biased", modeAuto, -1, keyCoolSetpoint},
		{"auto never observed", modeAuto, 0, keyCoolSetpoint},
		{"dry behaves like auto", modeDry, 1, keyHeatSetpoint},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeClient()
			z, sys := testZone(t, f, 2, false)

			sys.setMode(tt.mode)
			z.mu.Lock()
			z.state.LastDemandSign = tt.sign
			z.mu.Unlock()

			assert.Equal(t, tt.want, z.activeSetpointKey())
		})
	}
}

func TestTargetTemperatureReadsActiveSetpoint(t *testing.T) {
	f := newFakeClient()
	z, sys := testZone(t, f, 3, false)

	f.set(t, 3, keyHeatSetpoint, 19.5)
	f.set(t, 3, keyCoolSetpoint, 26.0)

	sys.setMode(modeHeat)
	v, err := z.RefreshTargetTemperature()
	require.NoError(t, err)
	assert.InDelta(t, 19.5, v, 1e-9)

	sys.setMode(modeCool)
	v, err = z.RefreshTargetTemperature()
	require.NoError(t, err)
	assert.InDelta(t, 26.0, v, 1e-9)
}

func TestSetTargetTemperatureMirrorsSelection(t *testing.T) {
	f := newFakeClient()
	z, sys := testZone(t, f, 1, false)

	sys.setMode(modeHeat)
	require.NoError(t, z.SetTargetTemperature(21.0))

	pv, ok := f.written(t, 1, keyHeatSetpoint)
	require.True(t, ok)
	assert.Equal(t, TagReal, pv.Tag)
	assert.InDelta(t, 21.0, pv.Value, 1e-9)
	_, ok = f.written(t, 1, keyCoolSetpoint)
	assert.False(t, ok)

	assert.InDelta(t, 21.0, z.HeatSetpoint(), 1e-9)
}

func TestDeviceUnitConversion(t *testing.T) {
	f := newFakeClient()
	z, _ := testZone(t, f, 1, true) // device reports °F

	f.set(t, 1, keyRoomTemperature, 68.0)
	v, err := z.RefreshCurrentTemperature()
	require.NoError(t, err)
	assert.InDelta(t, 20.0, v, 1e-9)

	require.NoError(t, z.SetHeatSetpoint(20.0))
	pv, ok := f.written(t, 1, keyHeatSetpoint)
	require.True(t, ok)
	assert.InDelta(t, 68.0, pv.Value, 1e-9)
	// cache stays in celsius
	assert.InDelta(t, 20.0, z.HeatSetpoint(), 1e-9)
}

func TestFanState(t *testing.T) {
	f := newFakeClient()
	z, _ := testZone(t, f, 4, false)

	f.setGlobal(t, keyFanStatus, 0)
	s, err := z.RefreshFanState()
	require.NoError(t, err)
	assert.Equal(t, characteristic.CurrentFanStateInactive, s)

	f.setGlobal(t, keyFanStatus, 1)
	s, err = z.RefreshFanState()
	require.NoError(t, err)
	assert.Equal(t, characteristic.CurrentFanStateBlowingAir, s)
}

func TestSharedModeAcrossZones(t *testing.T) {
	f := newFakeClient()
	sys := NewSystem(f, "10.0.0.20:47808")

	z1, err := NewZone(sys, f, 1, "Living Room", false)
	require.NoError(t, err)
	z2, err := NewZone(sys, f, 2, "Bedroom", false)
	require.NoError(t, err)

	require.NoError(t, z1.SetTargetState(characteristic.TargetHeatingCoolingStateHeat))

	// zone 2 observes the change without its own network traffic
	assert.Equal(t, characteristic.TargetHeatingCoolingStateHeat, z2.TargetState())

	// exactly one write went to the device, as an unsigned integer
	e, err := directory.Global(keyOperationMode)
	require.NoError(t, err)
	pv, ok := f.writes[e.Ref]
	require.True(t, ok)
	assert.Equal(t, TagUnsigned, pv.Tag)
	assert.InDelta(t, float64(modeHeat), pv.Value, 1e-9)
}

func TestWriteModeSurvivesRefresh(t *testing.T) {
	f := newFakeClient()
	sys := NewSystem(f, "10.0.0.20:47808")

	require.NoError(t, sys.WriteMode(modeDry))
	assert.Equal(t, modeDry, sys.Mode())

	// next refresh converges on whatever the device reports
	f.setGlobal(t, keyOperationMode, float64(modeCool))
	m, err := sys.RefreshMode()
	require.NoError(t, err)
	assert.Equal(t, modeCool, m)
	assert.Equal(t, modeCool, sys.Mode())
}

func TestZoneConstructionOutOfRange(t *testing.T) {
	f := newFakeClient()
	sys := NewSystem(f, "10.0.0.20:47808")

	_, err := NewZone(sys, f, 7, "Attic", false)
	var uo *UnknownObjectError
	require.ErrorAs(t, err, &uo)

	_, err = NewZone(sys, f, 0, "Nowhere", false)
	require.ErrorAs(t, err, &uo)
}

func TestHeatingDemandScenario(t *testing.T) {
	// zone 1 heating at 15%, system in auto: current state reports HEAT and a
	// following target temperature read follows the heating setpoint
	f := newFakeClient()
	z, sys := testZone(t, f, 1, true)

	sys.setMode(modeAuto)
	f.set(t, 1, keyHeatingDemand, 15)
	f.set(t, 1, keyCoolingDemand, 0)
	f.set(t, 1, keyHeatSetpoint, 68.0)
	f.set(t, 1, keyCoolSetpoint, 77.0)

	state, err := z.RefreshCurrentState()
	require.NoError(t, err)
	assert.Equal(t, characteristic.CurrentHeatingCoolingStateHeat, state)

	v, err := z.RefreshTargetTemperature()
	require.NoError(t, err)
	assert.InDelta(t, 20.0, v, 1e-9)
}

func TestDisplayUnitsAreLocal(t *testing.T) {
	f := newFakeClient()
	z, _ := testZone(t, f, 5, false)

	assert.Equal(t, characteristic.TemperatureDisplayUnitsCelsius, z.DisplayUnits())
	z.SetDisplayUnits(characteristic.TemperatureDisplayUnitsFahrenheit)
	assert.Equal(t, characteristic.TemperatureDisplayUnitsFahrenheit, z.DisplayUnits())

	// nothing reached the network
	assert.Empty(t, f.writes)
}
