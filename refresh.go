package bachome

import (
	"sync"

	"github.com/brutella/hap/log"
)

// refresher is the only place the "HomeKit never waits on BACnet" rule lives.
// Every getter hands back the zone's cached value immediately and kicks the
// real read off in the background; the result lands in the cache for the next
// ask. Setters acknowledge immediately and let the write ride along behind.
// A refresh that fails is logged and the stale value keeps serving.
type refresher struct {
	zone *Zone
	wg   sync.WaitGroup
}

func newRefresher(z *Zone) *refresher {
	return &refresher{zone: z}
}

// Wait blocks until every refresh spawned so far has finished. Nothing in the
// serving path calls this; tests do.
func (r *refresher) Wait() {
	r.wg.Wait()
}

func (r *refresher) spawn(op string, fn func() error) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := fn(); err != nil {
			log.Info.Printf("zone %d %s: %s", r.zone.Number, op, err.Error())
		}
	}()
}

func (r *refresher) CurrentState() int {
	v := r.zone.CurrentState()
	r.spawn("current state refresh", func() error {
		_, err := r.zone.RefreshCurrentState()
		return err
	})
	return v
}

func (r *refresher) TargetState() int {
	v := r.zone.TargetState()
	r.spawn("target state refresh", func() error {
		_, err := r.zone.RefreshTargetState()
		return err
	})
	return v
}

func (r *refresher) SetTargetState(s int) {
	r.spawn("target state write", func() error {
		return r.zone.SetTargetState(s)
	})
}

func (r *refresher) CurrentTemperature() float64 {
	v := r.zone.CurrentTemperature()
	r.spawn("temperature refresh", func() error {
		_, err := r.zone.RefreshCurrentTemperature()
		return err
	})
	return v
}

func (r *refresher) Humidity() float64 {
	v := r.zone.Humidity()
	r.spawn("humidity refresh", func() error {
		_, err := r.zone.RefreshHumidity()
		return err
	})
	return v
}

func (r *refresher) HeatSetpoint() float64 {
	v := r.zone.HeatSetpoint()
	r.spawn("heat setpoint refresh", func() error {
		_, err := r.zone.RefreshHeatSetpoint()
		return err
	})
	return v
}

func (r *refresher) SetHeatSetpoint(c float64) {
	r.spawn("heat setpoint write", func() error {
		return r.zone.SetHeatSetpoint(c)
	})
}

func (r *refresher) CoolSetpoint() float64 {
	v := r.zone.CoolSetpoint()
	r.spawn("cool setpoint refresh", func() error {
		_, err := r.zone.RefreshCoolSetpoint()
		return err
	})
	return v
}

func (r *refresher) SetCoolSetpoint(c float64) {
	r.spawn("cool setpoint write", func() error {
		return r.zone.SetCoolSetpoint(c)
	})
}

func (r *refresher) TargetTemperature() float64 {
	v := r.zone.TargetTemperature()
	r.spawn("target temperature refresh", func() error {
		_, err := r.zone.RefreshTargetTemperature()
		return err
	})
	return v
}

func (r *refresher) SetTargetTemperature(c float64) {
	r.spawn("target temperature write", func() error {
		return r.zone.SetTargetTemperature(c)
	})
}

func (r *refresher) FanState() int {
	v := r.zone.FanState()
	r.spawn("fan state refresh", func() error {
		_, err := r.zone.RefreshFanState()
		return err
	})
	return v
}
