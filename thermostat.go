package bachome

import (
	"fmt"
	"net/http"

	"github.com/brutella/hap/accessory"
	"github.com/brutella/hap/characteristic"
	"github.com/brutella/hap/log"
	"github.com/brutella/hap/service"
)

// zoneThermostat is the accessory HomeKit sees for one zone: the standard
// thermostat service, a fan service for the unit blower, and a hidden status
// service carrying the raw demand percentages.
type zoneThermostat struct {
	*accessory.A

	Thermostat *thermostatSvc
	Fan        *fanSvc
	Demand     *demandSvc

	zone *Zone
	ref  *refresher
}

type thermostatSvc struct {
	*service.S

	CurrentHeatingCoolingState  *characteristic.CurrentHeatingCoolingState
	TargetHeatingCoolingState   *characteristic.TargetHeatingCoolingState
	CurrentTemperature          *characteristic.CurrentTemperature
	TargetTemperature           *characteristic.TargetTemperature
	TemperatureDisplayUnits     *characteristic.TemperatureDisplayUnits
	CurrentRelativeHumidity     *characteristic.CurrentRelativeHumidity
	CoolingThresholdTemperature *characteristic.CoolingThresholdTemperature
	HeatingThresholdTemperature *characteristic.HeatingThresholdTemperature
}

func newThermostatSvc() *thermostatSvc {
	s := thermostatSvc{}
	s.S = service.New(service.TypeThermostat)

	s.CurrentHeatingCoolingState = characteristic.NewCurrentHeatingCoolingState()
	s.AddC(s.CurrentHeatingCoolingState.C)

	s.TargetHeatingCoolingState = characteristic.NewTargetHeatingCoolingState()
	s.AddC(s.TargetHeatingCoolingState.C)

	s.CurrentTemperature = characteristic.NewCurrentTemperature()
	s.AddC(s.CurrentTemperature.C)

	s.TargetTemperature = characteristic.NewTargetTemperature()
	s.AddC(s.TargetTemperature.C)

	s.TemperatureDisplayUnits = characteristic.NewTemperatureDisplayUnits()
	s.AddC(s.TemperatureDisplayUnits.C)

	s.CurrentRelativeHumidity = characteristic.NewCurrentRelativeHumidity()
	s.AddC(s.CurrentRelativeHumidity.C)

	s.CoolingThresholdTemperature = characteristic.NewCoolingThresholdTemperature()
	s.AddC(s.CoolingThresholdTemperature.C)

	s.HeatingThresholdTemperature = characteristic.NewHeatingThresholdTemperature()
	s.AddC(s.HeatingThresholdTemperature.C)

	return &s
}

type fanSvc struct {
	*service.S

	Active       *characteristic.Active
	CurrentState *characteristic.CurrentFanState
}

func newFanSvc() *fanSvc {
	s := fanSvc{}
	s.S = service.New(service.TypeFanV2)

	s.Active = characteristic.NewActive()
	s.AddC(s.Active.C)

	s.CurrentState = characteristic.NewCurrentFanState()
	s.AddC(s.CurrentState.C)

	return &s
}

// raw demand percentages, handy for debugging damper behavior from the Home
// app's accessory details
// heating demand E87B0001, cooling demand E87B0002, service E87B0000
type demandSvc struct {
	*service.S

	Name          *characteristic.Name
	HeatingDemand *demandPercent
	CoolingDemand *demandPercent
}

type demandPercent struct {
	*characteristic.Float
}

func newDemandPercent(uuid, desc string) *demandPercent {
	c := characteristic.NewFloat(uuid)
	c.Format = characteristic.FormatFloat
	c.Permissions = []string{characteristic.PermissionRead, characteristic.PermissionEvents}
	c.Description = desc
	c.SetMinValue(0)
	c.SetMaxValue(100)
	c.SetValue(0)

	return &demandPercent{c}
}

func newDemandSvc() *demandSvc {
	svc := demandSvc{}
	svc.S = service.New("E87B0000")
	svc.S.Primary = false
	svc.S.Hidden = true

	svc.Name = characteristic.NewName()
	svc.Name.SetValue("Zone Demand")
	svc.S.AddC(svc.Name.C)

	svc.HeatingDemand = newDemandPercent("E87B0001", "Heating Demand")
	svc.S.AddC(svc.HeatingDemand.C)

	svc.CoolingDemand = newDemandPercent("E87B0002", "Cooling Demand")
	svc.S.AddC(svc.CoolingDemand.C)

	return &svc
}

func newZoneThermostat(z *Zone) *zoneThermostat {
	t := zoneThermostat{
		zone: z,
		ref:  newRefresher(z),
	}

	info := accessory.Info{
		Name:         z.Name,
		SerialNumber: fmt.Sprintf("bacnet-zone-%d", z.Number),
		Manufacturer: "bachome",
		Model:        "BACnet HVAC zone",
		Firmware:     "0.1.0",
	}
	t.A = accessory.New(info, accessory.TypeThermostat)

	// keep the id stable across restarts so homekit doesn't forget the room
	t.A.Id = uint64(z.Number + 1)

	t.Thermostat = newThermostatSvc()
	t.AddS(t.Thermostat.S)

	t.Fan = newFanSvc()
	t.AddS(t.Fan.S)

	t.Demand = newDemandSvc()
	t.AddS(t.Demand.S)

	// seed from the zone cache so the first screen isn't blank
	t.push()

	// reads: answer from cache, refresh behind the response
	t.Thermostat.CurrentHeatingCoolingState.C.ValueRequestFunc = func(*http.Request) (interface{}, int) {
		return t.ref.CurrentState(), 0
	}
	t.Thermostat.TargetHeatingCoolingState.C.ValueRequestFunc = func(*http.Request) (interface{}, int) {
		return t.ref.TargetState(), 0
	}
	t.Thermostat.CurrentTemperature.C.ValueRequestFunc = func(*http.Request) (interface{}, int) {
		return t.ref.CurrentTemperature(), 0
	}
	t.Thermostat.TargetTemperature.C.ValueRequestFunc = func(*http.Request) (interface{}, int) {
		return t.ref.TargetTemperature(), 0
	}
	t.Thermostat.CurrentRelativeHumidity.C.ValueRequestFunc = func(*http.Request) (interface{}, int) {
		return t.ref.Humidity(), 0
	}
	t.Thermostat.HeatingThresholdTemperature.C.ValueRequestFunc = func(*http.Request) (interface{}, int) {
		return t.ref.HeatSetpoint(), 0
	}
	t.Thermostat.CoolingThresholdTemperature.C.ValueRequestFunc = func(*http.Request) (interface{}, int) {
		return t.ref.CoolSetpoint(), 0
	}
	t.Thermostat.TemperatureDisplayUnits.C.ValueRequestFunc = func(*http.Request) (interface{}, int) {
		return t.zone.DisplayUnits(), 0
	}
	t.Fan.CurrentState.C.ValueRequestFunc = func(*http.Request) (interface{}, int) {
		return t.ref.FanState(), 0
	}

	// writes: acknowledge now, let the write ride in the background
	t.Thermostat.TargetHeatingCoolingState.OnValueRemoteUpdate(func(s int) {
		log.Info.Printf("zone %d: set target state %d from handler", z.Number, s)
		t.ref.SetTargetState(s)
	})
	t.Thermostat.TargetTemperature.OnValueRemoteUpdate(func(c float64) {
		log.Info.Printf("zone %d: set target temperature %.1f from handler", z.Number, c)
		t.ref.SetTargetTemperature(c)
	})
	t.Thermostat.HeatingThresholdTemperature.OnValueRemoteUpdate(func(c float64) {
		t.ref.SetHeatSetpoint(c)
	})
	t.Thermostat.CoolingThresholdTemperature.OnValueRemoteUpdate(func(c float64) {
		t.ref.SetCoolSetpoint(c)
	})
	t.Thermostat.TemperatureDisplayUnits.OnValueRemoteUpdate(func(u int) {
		// display preference only, nothing on the wire
		t.zone.SetDisplayUnits(u)
	})

	return &t
}

// push shoves the current cache into the characteristics so paired
// controllers get change events. The poller calls this after each sweep.
func (t *zoneThermostat) push() {
	z := t.zone

	t.Thermostat.CurrentHeatingCoolingState.SetValue(z.CurrentState())
	t.Thermostat.TargetHeatingCoolingState.SetValue(z.TargetState())
	t.Thermostat.CurrentTemperature.SetValue(z.CurrentTemperature())
	t.Thermostat.TargetTemperature.SetValue(z.TargetTemperature())
	t.Thermostat.CurrentRelativeHumidity.SetValue(z.Humidity())
	t.Thermostat.HeatingThresholdTemperature.SetValue(z.HeatSetpoint())
	t.Thermostat.CoolingThresholdTemperature.SetValue(z.CoolSetpoint())
	t.Thermostat.TemperatureDisplayUnits.SetValue(z.DisplayUnits())

	fan := z.FanState()
	t.Fan.CurrentState.SetValue(fan)
	if fan == characteristic.CurrentFanStateBlowingAir {
		t.Fan.Active.SetValue(characteristic.ActiveActive)
	} else {
		t.Fan.Active.SetValue(characteristic.ActiveInactive)
	}

	heating, cooling := z.Demands()
	t.Demand.HeatingDemand.SetValue(heating)
	t.Demand.CoolingDemand.SetValue(cooling)
}

// refreshAll pulls every characteristic once, in the foreground. Poller only.
func (t *zoneThermostat) refreshAll() {
	ops := []struct {
		name string
		fn   func() error
	}{
		{"current state", func() error { _, err := t.zone.RefreshCurrentState(); return err }},
		{"target state", func() error { _, err := t.zone.RefreshTargetState(); return err }},
		{"temperature", func() error { _, err := t.zone.RefreshCurrentTemperature(); return err }},
		{"humidity", func() error { _, err := t.zone.RefreshHumidity(); return err }},
		{"heat setpoint", func() error { _, err := t.zone.RefreshHeatSetpoint(); return err }},
		{"cool setpoint", func() error { _, err := t.zone.RefreshCoolSetpoint(); return err }},
		{"fan state", func() error { _, err := t.zone.RefreshFanState(); return err }},
	}

	for _, op := range ops {
		if err := op.fn(); err != nil {
			log.Info.Printf("zone %d %s poll: %s", t.zone.Number, op.name, err.Error())
		}
	}
}
