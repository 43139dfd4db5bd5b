// Package sysfs reads Linux batteries from /sys/class/power_supply.
package sysfs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/cptspacemanspiff/battery-monitor/internal/battery"
)

// sysfsRoot is swapped by tests.
var sysfsRoot = "/sys"

func powerSupplyDir() string {
	return filepath.Join(sysfsRoot, "class/power_supply")
}

// Source enumerates system batteries. Peripheral batteries (scope=Device,
// e.g. wireless mice) are skipped.
type Source struct{}

func (Source) Devices(ctx context.Context) ([]battery.Device, error) {
	entries, err := os.ReadDir(powerSupplyDir())
	if err != nil {
		return nil, fmt.Errorf("read power_supply: %w", err)
	}

	var names []string
	for _, ent := range entries {
		dir := filepath.Join(powerSupplyDir(), ent.Name())
		props, err := readProps(dir)
		if err != nil {
			continue
		}
		if !strings.EqualFold(props.get("TYPE", "type"), "Battery") {
			continue
		}
		if strings.EqualFold(props.get("SCOPE", "scope"), "Device") {
			continue
		}
		names = append(names, ent.Name())
	}
	sort.Strings(names)

	devs := make([]battery.Device, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		d, err := Open(filepath.Join(powerSupplyDir(), name))
		if err != nil {
			return nil, err
		}
		devs = append(devs, d)
	}
	return devs, nil
}

// props is a parsed uevent with a fallback to individual attribute files.
type props struct {
	dir    string
	values map[string]string
}

func readProps(dir string) (props, error) {
	p := props{dir: dir, values: map[string]string{}}
	data, err := os.ReadFile(filepath.Join(dir, "uevent"))
	if err != nil {
		if _, statErr := os.Stat(dir); statErr != nil {
			return p, fmt.Errorf("read uevent: %w", err)
		}
		// Some drivers expose attributes without a uevent file.
		return p, nil
	}
	p.values = parseUevent(string(data))
	return p, nil
}

// get returns POWER_SUPPLY_<key> or the contents of the attribute file.
func (p props) get(key, attr string) string {
	if v, ok := p.values["POWER_SUPPLY_"+key]; ok {
		return strings.TrimSpace(v)
	}
	data, err := os.ReadFile(filepath.Join(p.dir, attr))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func (p props) int(key, attr string) (int64, bool) {
	s := p.get(key, attr)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseUevent(data string) map[string]string {
	props := make(map[string]string)
	for _, line := range strings.Split(data, "\n") {
		if k, v, ok := strings.Cut(line, "="); ok {
			props[k] = v
		}
	}
	return props
}

// isACOnline checks if any mains or USB supply is online.
func isACOnline() bool {
	matches, err := filepath.Glob(filepath.Join(powerSupplyDir(), "*/online"))
	if err != nil {
		return false
	}
	for _, path := range matches {
		typ, _ := os.ReadFile(filepath.Join(filepath.Dir(path), "type"))
		if strings.EqualFold(strings.TrimSpace(string(typ)), "Battery") {
			continue
		}
		data, err := os.ReadFile(path)
		if err == nil && strings.TrimSpace(string(data)) == "1" {
			return true
		}
	}
	return false
}
