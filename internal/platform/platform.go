// Package platform picks the battery backend for the running OS.
package platform

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/cptspacemanspiff/battery-monitor/internal/battery"
	"github.com/cptspacemanspiff/battery-monitor/internal/platform/acpiconf"
	"github.com/cptspacemanspiff/battery-monitor/internal/platform/ioreg"
	"github.com/cptspacemanspiff/battery-monitor/internal/platform/sysfs"
	"github.com/cptspacemanspiff/battery-monitor/internal/platform/upower"
	"github.com/cptspacemanspiff/battery-monitor/internal/platform/wmi"
)

// ErrUnsupported is returned for an unknown backend name or an OS without
// a default backend.
var ErrUnsupported = errors.ErrUnsupported

// Backends lists the accepted backend names.
var Backends = []string{"auto", "sysfs", "upower", "ioreg", "acpiconf", "wmi"}

var goos = runtime.GOOS

// Default is the backend "auto" resolves to on this OS.
func Default() (string, error) {
	switch goos {
	case "linux", "android":
		return "sysfs", nil
	case "darwin":
		return "ioreg", nil
	case "freebsd", "dragonfly":
		return "acpiconf", nil
	case "windows":
		return "wmi", nil
	default:
		return "", fmt.Errorf("no battery backend for %s: %w", goos, ErrUnsupported)
	}
}

// NewSource returns the battery source for backend. An empty name means
// "auto".
func NewSource(backend string) (battery.Source, error) {
	if backend == "" || backend == "auto" {
		b, err := Default()
		if err != nil {
			return nil, err
		}
		backend = b
	}

	switch backend {
	case "sysfs":
		return sysfs.Source{}, nil
	case "upower":
		src, err := upower.NewSource()
		if err != nil {
			return nil, err
		}
		return src, nil
	case "ioreg":
		return ioreg.Source{}, nil
	case "acpiconf":
		return acpiconf.Source{}, nil
	case "wmi":
		return wmi.Source{}, nil
	default:
		return nil, fmt.Errorf("battery backend %q: %w", backend, ErrUnsupported)
	}
}
