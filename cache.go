package bachome

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/brutella/hap/log"
)

const cachefilename = "zonecache.json"

// SaveCache writes every zone's last-known values to disk so a restarted
// bridge serves warm values instead of compiled-in defaults.
func SaveCache(path string) error {
	states := make(map[int]zoneState)
	for _, t := range zones {
		states[t.zone.Number] = t.zone.snapshot()
	}

	fp := filepath.Join(path, cachefilename)
	cache, err := os.OpenFile(fp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, os.ModePerm)
	if err != nil {
		log.Info.Printf("unable to open file for zone cache: %s", err.Error())
		return err
	}
	defer cache.Close()

	if err := json.NewEncoder(cache).Encode(states); err != nil {
		log.Info.Printf("unable to encode zone cache: %s", err.Error())
		return err
	}
	return nil
}

func loadCache(path string) error {
	fp := filepath.Join(path, cachefilename)
	raw, err := os.ReadFile(fp)
	if err != nil {
		return err
	}

	states := make(map[int]zoneState)
	if err := json.Unmarshal(raw, &states); err != nil {
		log.Info.Printf("zone cache unmarshal failed: %s", err.Error())
		return err
	}

	for _, t := range zones {
		if s, ok := states[t.zone.Number]; ok {
			t.zone.restore(s)
			t.push()
		}
	}
	return nil
}
