package config

import "sort"

// Presets are full parameter bundles. All but "precise" differ only in
// disturbance level; "precise" is calm air with a stiffer outer LQR loop
// for station keeping.
var Presets = map[string]func() *Config{
	"calm": func() *Config {
		cfg := DefaultConfig()
		cfg.Disturbance.Level = 0
		return cfg
	},
	"breezy": func() *Config {
		cfg := DefaultConfig()
		cfg.Disturbance.Level = 1
		return cfg
	},
	"precise": func() *Config {
		cfg := DefaultConfig()
		cfg.Disturbance.Level = 0
		cfg.LQR.QoPos = 2000
		cfg.LQR.QoVel = 60
		cfg.LQR.RoAcc = 0.5
		return cfg
	},
	"gusty": func() *Config {
		cfg := DefaultConfig()
		cfg.Disturbance.Level = 2
		return cfg
	},
}

func GetPreset(name string) *Config {
	build, ok := Presets[name]
	if !ok {
		return nil
	}
	return build()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
