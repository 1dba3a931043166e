package model

import (
	"fmt"
	"strings"
)

// PlayerStats is the fixed-schema statistics record carried by each identity.
// Gameplay collaborators write to it only through Apply, which validates the
// statistic name against the setter table below.
type PlayerStats struct {
	DamageDealt      float64         `json:"damageDealt"`
	DamageTaken      float64         `json:"damageTaken"`
	Kills            int             `json:"kills"`
	Deaths           int             `json:"deaths"`
	ProjectilesFired int             `json:"projectilesFired"`
	ProjectilesHit   int             `json:"projectilesHit"`
	Level            int             `json:"level"`
	Health           float64         `json:"health"`
	MaxHealth        float64         `json:"maxHealth"`
	EquippedWeapon   string          `json:"equippedWeapon,omitempty"`
	EquippedArmor    string          `json:"equippedArmor,omitempty"`
	PlayTime         string          `json:"playTime,omitempty"`
	Flags            map[string]bool `json:"flags,omitempty"`
}

// FlagPrefix namespaces per-feature boolean flags in Apply keys,
// e.g. "flag:tutorialDone"
const FlagPrefix = "flag:"

type statSetter func(s *PlayerStats, value any) error

// statSetters is the allow-list of writable statistics. Unknown names are
// rejected by Apply, never silently stored.
var statSetters = map[string]statSetter{
	"damageDealt":      func(s *PlayerStats, v any) error { return setFloat(&s.DamageDealt, v) },
	"damageTaken":      func(s *PlayerStats, v any) error { return setFloat(&s.DamageTaken, v) },
	"kills":            func(s *PlayerStats, v any) error { return setInt(&s.Kills, v) },
	"deaths":           func(s *PlayerStats, v any) error { return setInt(&s.Deaths, v) },
	"projectilesFired": func(s *PlayerStats, v any) error { return setInt(&s.ProjectilesFired, v) },
	"projectilesHit":   func(s *PlayerStats, v any) error { return setInt(&s.ProjectilesHit, v) },
	"level":            func(s *PlayerStats, v any) error { return setInt(&s.Level, v) },
	"health":           func(s *PlayerStats, v any) error { return setFloat(&s.Health, v) },
	"maxHealth":        func(s *PlayerStats, v any) error { return setFloat(&s.MaxHealth, v) },
	"equippedWeapon":   func(s *PlayerStats, v any) error { return setString(&s.EquippedWeapon, v) },
	"equippedArmor":    func(s *PlayerStats, v any) error { return setString(&s.EquippedArmor, v) },
	"playTime":         func(s *PlayerStats, v any) error { return setString(&s.PlayTime, v) },
}

// Apply sets the named statistic to value. The name must be in the allow-list
// (or carry the flag prefix) and the value must coerce to the statistic's
// type; JSON numbers arrive as float64 and are accepted for integer fields
// when whole.
func (s *PlayerStats) Apply(name string, value any) error {
	if flag, ok := strings.CutPrefix(name, FlagPrefix); ok {
		if flag == "" {
			return ErrUnknownStatistic
		}
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("%w: flag %q wants bool, got %T", ErrInvalidStatisticValue, flag, value)
		}
		if s.Flags == nil {
			s.Flags = make(map[string]bool)
		}
		s.Flags[flag] = b
		return nil
	}

	setter, ok := statSetters[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownStatistic, name)
	}
	return setter(s, value)
}

// KnownStatistics returns the allow-listed statistic names, for diagnostics
func KnownStatistics() []string {
	names := make([]string, 0, len(statSetters))
	for name := range statSetters {
		names = append(names, name)
	}
	return names
}

func setFloat(dst *float64, v any) error {
	switch n := v.(type) {
	case float64:
		*dst = n
	case int:
		*dst = float64(n)
	default:
		return fmt.Errorf("%w: want number, got %T", ErrInvalidStatisticValue, v)
	}
	return nil
}

func setInt(dst *int, v any) error {
	switch n := v.(type) {
	case int:
		*dst = n
	case float64:
		if n != float64(int(n)) {
			return fmt.Errorf("%w: want integer, got %v", ErrInvalidStatisticValue, n)
		}
		*dst = int(n)
	default:
		return fmt.Errorf("%w: want integer, got %T", ErrInvalidStatisticValue, v)
	}
	return nil
}

func setString(dst *string, v any) error {
	str, ok := v.(string)
	if !ok {
		return fmt.Errorf("%w: want string, got %T", ErrInvalidStatisticValue, v)
	}
	*dst = str
	return nil
}
