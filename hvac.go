package bachome

import (
	"context"
	"fmt"
	"time"

	"github.com/brutella/hap/accessory"
	"github.com/brutella/hap/log"
)

var client *bacnetClient
var system *System
var zones []*zoneThermostat

// Startup brings the platform up in two phases: the shared system state
// first, with one bounded fetch of the operation mode, then the zones. A
// failed mode fetch just leaves the mode unknown until the next refresh; a
// bad zone number is fatal.
// checkZones rejects a zone list the accessory layer cannot serve: zone
// numbers double as accessory ids, so duplicates would collide in HomeKit.
func checkZones(defs []ZoneDef) error {
	if len(defs) == 0 {
		return fmt.Errorf("no zones configured")
	}

	seen := make(map[int]string)
	for _, zd := range defs {
		if prior, dup := seen[zd.Zone]; dup {
			return fmt.Errorf("zone %d configured twice (%s, %s)", zd.Zone, prior, zd.Name)
		}
		seen[zd.Zone] = zd.Name
	}
	return nil
}

func Startup(conf *Config, dir string) error {
	if err := checkZones(conf.Zones); err != nil {
		return err
	}

	var err error
	client, err = newBACnetClient(conf.Interface, conf.Port)
	if err != nil {
		return err
	}

	if conf.Device == "" {
		client.Discover()
		client.Close()
		return fmt.Errorf("no device address configured; see log for discovered devices")
	}

	system = NewSystem(client, conf.Device)
	if _, err := system.RefreshMode(); err != nil {
		log.Info.Printf("initial mode fetch failed, mode unknown until next refresh: %s", err.Error())
	}

	for _, zd := range conf.Zones {
		z, err := NewZone(system, client, zd.Zone, zd.Name, conf.Fahrenheit)
		if err != nil {
			client.Close()
			zones = nil
			return err
		}
		zones = append(zones, newZoneThermostat(z))
	}

	if err := loadCache(dir); err != nil {
		log.Info.Printf("starting with cold zone caches: %s", err.Error())
	}

	log.Info.Printf("serving %d zones from %s", len(zones), conf.Device)
	return nil
}

// Devices returns the accessories ready for HAP to start a hap.Server
func Devices() []*accessory.A {
	var a []*accessory.A

	for _, t := range zones {
		a = append(a, t.A)
	}

	return a
}

// Poller sweeps every zone on a fixed interval and pushes fresh values into
// the characteristics so paired controllers see events without asking.
func Poller(ctx context.Context, seconds int) {
	if seconds <= 0 {
		log.Info.Printf("poller disabled")
		return
	}

	ticker := time.NewTicker(time.Duration(seconds) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for _, t := range zones {
				t.refreshAll()
				t.push()
			}
		case <-ctx.Done():
			log.Info.Printf("poller: context canceled")
			return
		}
	}
}

// Shutdown persists the zone caches and drops the BACnet socket.
func Shutdown(dir string) {
	if err := SaveCache(dir); err != nil {
		log.Info.Printf("unable to save zone cache: %s", err.Error())
	}
	if client != nil {
		client.Close()
	}
}
