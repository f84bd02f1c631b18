package bachome

import "fmt"

// BACnet object types used by this device family.
const (
	ObjectAnalogInput     uint16 = 0
	ObjectAnalogValue     uint16 = 2
	ObjectBinaryValue     uint16 = 5
	ObjectMultiStateValue uint16 = 19
)

// ObjectReference is a protocol-level address: object type plus instance
// number. Values only ever come out of the directory.
type ObjectReference struct {
	Type     uint16
	Instance uint32
}

func (r ObjectReference) String() string {
	return fmt.Sprintf("%d:%d", r.Type, r.Instance)
}

type accessMode int

const (
	readOnly accessMode = iota
	readWrite
)

// DirectoryEntry ties a semantic key to the object backing it on the device.
type DirectoryEntry struct {
	Key         string
	Ref         ObjectReference
	Description string
	Access      accessMode
}

// scopeGlobal addresses the device-wide object set; zones are addressed by
// number, 1..6.
const scopeGlobal = "global"

const (
	minZone = 1
	maxZone = 6
)

// global-scope keys
const (
	keyOperationMode = "operation-mode"
	keyFanStatus     = "fan-status"
)

// per-zone keys
const (
	keyRoomTemperature  = "room-temperature"
	keyRelativeHumidity = "relative-humidity"
	keyHeatSetpoint     = "heat-setpoint"
	keyCoolSetpoint     = "cool-setpoint"
	keyHeatingDemand    = "heating-demand"
	keyCoolingDemand    = "cooling-demand"
)

var zoneKeys = []string{
	keyRoomTemperature,
	keyRelativeHumidity,
	keyHeatSetpoint,
	keyCoolSetpoint,
	keyHeatingDemand,
	keyCoolingDemand,
}

type objectDirectory struct {
	global map[string]DirectoryEntry
	zones  map[int]map[string]DirectoryEntry
}

// the one directory; the table is fixed by the device firmware
var directory = mustBuildDirectory()

// Global returns the device-wide entry for key.
func (d *objectDirectory) Global(key string) (DirectoryEntry, error) {
	e, ok := d.global[key]
	if !ok {
		return DirectoryEntry{}, &UnknownObjectError{Scope: scopeGlobal, Key: key}
	}
	return e, nil
}

// Zone returns the entry for key in zone number z.
func (d *objectDirectory) Zone(z int, key string) (DirectoryEntry, error) {
	zm, ok := d.zones[z]
	if !ok {
		return DirectoryEntry{}, &UnknownObjectError{Scope: fmt.Sprintf("zone%d", z), Key: key}
	}
	e, ok := zm[key]
	if !ok {
		return DirectoryEntry{}, &UnknownObjectError{Scope: fmt.Sprintf("zone%d", z), Key: key}
	}
	return e, nil
}

// writable errors out before anything touches the network.
func writable(e DirectoryEntry, scope string) error {
	if e.Access != readWrite {
		return &AccessDeniedError{Scope: scope, Key: e.Key}
	}
	return nil
}

// The controller lays its objects out in fixed blocks: analog inputs 1-6 are
// room temperatures and 11-16 humidities; analog values are grouped per zone
// at zone*10+n. The multi-state operation mode and the fan status are
// device-wide singletons.
func mustBuildDirectory() *objectDirectory {
	d := objectDirectory{
		global: map[string]DirectoryEntry{
			keyOperationMode: {
				Key:         keyOperationMode,
				Ref:         ObjectReference{ObjectMultiStateValue, 1},
				Description: "system operation mode (1=auto 2=heat 3=cool 4=dry)",
				Access:      readWrite,
			},
			keyFanStatus: {
				Key:         keyFanStatus,
				Ref:         ObjectReference{ObjectBinaryValue, 1},
				Description: "system fan running",
				Access:      readOnly,
			},
		},
		zones: make(map[int]map[string]DirectoryEntry),
	}

	for z := minZone; z <= maxZone; z++ {
		base := uint32(z * 10)
		d.zones[z] = map[string]DirectoryEntry{
			keyRoomTemperature: {
				Key:         keyRoomTemperature,
				Ref:         ObjectReference{ObjectAnalogInput, uint32(z)},
				Description: fmt.Sprintf("zone %d room temperature", z),
				Access:      readOnly,
			},
			keyRelativeHumidity: {
				Key:         keyRelativeHumidity,
				Ref:         ObjectReference{ObjectAnalogInput, uint32(z) + 10},
				Description: fmt.Sprintf("zone %d relative humidity", z),
				Access:      readOnly,
			},
			keyHeatSetpoint: {
				Key:         keyHeatSetpoint,
				Ref:         ObjectReference{ObjectAnalogValue, base + 1},
				Description: fmt.Sprintf("zone %d heating setpoint", z),
				Access:      readWrite,
			},
			keyCoolSetpoint: {
				Key:         keyCoolSetpoint,
				Ref:         ObjectReference{ObjectAnalogValue, base + 2},
				Description: fmt.Sprintf("zone %d cooling setpoint", z),
				Access:      readWrite,
			},
			keyHeatingDemand: {
				Key:         keyHeatingDemand,
				Ref:         ObjectReference{ObjectAnalogValue, base + 3},
				Description: fmt.Sprintf("zone %d heating demand percent", z),
				Access:      readOnly,
			},
			keyCoolingDemand: {
				Key:         keyCoolingDemand,
				Ref:         ObjectReference{ObjectAnalogValue, base + 4},
				Description: fmt.Sprintf("zone %d cooling demand percent", z),
				Access:      readOnly,
			},
		}
	}

	// fail at startup, not at first lookup
	for z := minZone; z <= maxZone; z++ {
		for _, k := range zoneKeys {
			if _, ok := d.zones[z][k]; !ok {
				panic(fmt.Sprintf("object directory incomplete: zone %d missing %s", z, k))
			}
		}
	}

	return &d
}
