package bachome

import (
	"encoding/json"
	"os"

	"github.com/brutella/hap/log"
)

type Config struct {
	Name       string    // bridge name shown in the Home app
	Pin        string    // HomeKit setup pin
	Device     string    // controller address, ip:port (47808 is the usual port)
	Interface  string    // local interface the BACnet socket binds
	Port       int       // local BACnet port
	Fahrenheit bool      // set if the device is configured to report °F
	PollRate   int       // seconds between background polls, 0 disables
	Zones      []ZoneDef // zones wired on the controller
}

type ZoneDef struct {
	Name string `json:"name"`
	Zone int    `json:"zone"`
}

func LoadConfig(filename string) (*Config, error) {
	conf := Config{
		Name:      "BACnet HVAC Bridge",
		Pin:       "80899303",
		Interface: "eth0",
		Port:      47808,
		PollRate:  180,
	}

	raw, err := os.ReadFile(filename)
	if err != nil {
		log.Info.Printf("unable to read config %s: using defaults (%+v)", filename, conf)
		return &conf, nil
	}

	if err := json.Unmarshal(raw, &conf); err != nil {
		log.Info.Printf("unable to parse config %s: %s", filename, err.Error())
		return nil, err
	}

	log.Info.Printf("using config: %+v", conf)
	return &conf, nil
}
