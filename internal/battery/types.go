package battery

import (
	"fmt"
	"strings"
)

// State is the charging state reported by a device.
type State int

const (
	StateUnknown State = iota
	StateCharging
	StateDischarging
	StateEmpty
	StateFull
)

var stateNames = [...]string{"unknown", "charging", "discharging", "empty", "full"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return stateNames[StateUnknown]
	}
	return stateNames[s]
}

// MarshalText encodes the state as its lower-case name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a name produced by MarshalText.
func (s *State) UnmarshalText(text []byte) error {
	for i, name := range stateNames {
		if name == string(text) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("invalid battery state %q", text)
}

// ParseState maps an OS status string ("Charging", "Discharging", "Full",
// "Empty", ...) to a State. Anything unrecognised, including "Not charging",
// is StateUnknown; callers decide how to interpret an idle battery.
func ParseState(s string) State {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "charging":
		return StateCharging
	case "discharging":
		return StateDischarging
	case "empty":
		return StateEmpty
	case "full", "fully charged", "charged":
		return StateFull
	default:
		return StateUnknown
	}
}

// Technology is the battery chemistry.
type Technology int

const (
	TechnologyUnknown Technology = iota
	LithiumIon
	LeadAcid
	LithiumPolymer
	NickelMetalHydride
	NickelCadmium
	NickelZinc
	LithiumIronPhosphate
	RechargeableAlkalineManganese
)

var technologyNames = [...]string{
	"unknown",
	"lithium-ion",
	"lead-acid",
	"lithium-polymer",
	"nickel-metal-hydride",
	"nickel-cadmium",
	"nickel-zinc",
	"lithium-iron-phosphate",
	"rechargeable-alkaline-manganese",
}

func (t Technology) String() string {
	if t < 0 || int(t) >= len(technologyNames) {
		return technologyNames[TechnologyUnknown]
	}
	return technologyNames[t]
}

// MarshalText encodes the technology as its lower-case name.
func (t Technology) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes a name produced by MarshalText.
func (t *Technology) UnmarshalText(text []byte) error {
	for i, name := range technologyNames {
		if name == string(text) {
			*t = Technology(i)
			return nil
		}
	}
	return fmt.Errorf("invalid battery technology %q", text)
}

// ParseTechnology maps the chemistry spellings used by sysfs, ACPI and
// vendor firmware to a Technology.
func ParseTechnology(s string) Technology {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "li-i", "li-ion", "lion", "li_ion", "lithium-ion", "lithium ion":
		return LithiumIon
	case "pb", "pbac", "lead-acid", "lead acid":
		return LeadAcid
	case "lip", "lipo", "li-poly", "lithium-polymer", "lithium polymer":
		return LithiumPolymer
	case "nimh", "ni-mh", "nickel-metal-hydride":
		return NickelMetalHydride
	case "nicd", "nickel-cadmium":
		return NickelCadmium
	case "nizn", "nickel-zinc":
		return NickelZinc
	case "life", "lifepo4", "lithium-iron-phosphate":
		return LithiumIronPhosphate
	case "ram", "limn", "rechargeable-alkaline-manganese":
		return RechargeableAlkalineManganese
	default:
		return TechnologyUnknown
	}
}
