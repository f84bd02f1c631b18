package bachome

import (
	"github.com/brutella/hap/accessory"
)

var root *accessory.Bridge

// Bridge builds the root accessory the zone thermostats hang off of.
func Bridge(name string) *accessory.A {
	root = accessory.NewBridge(accessory.Info{
		Name:         name,
		SerialNumber: "1101",
		Manufacturer: "bachome",
		Model:        "bacnet-homekit",
		Firmware:     "0.1.0",
	})
	root.A.Id = 1

	return root.A
}
