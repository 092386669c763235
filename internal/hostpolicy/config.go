// Package hostpolicy implements the hierarchical per-host configuration that
// drives politeness delay, recheck cadence, blacklisting, and aggregation.
package hostpolicy

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"gopkg.in/yaml.v2"
)

// Range is an inclusive-exclusive span of durations used for recheck
// windows: the actual recheck deadline is drawn uniformly from [Min,Max).
type Range struct {
	Min time.Duration
	Max time.Duration
}

// rawConfig is the on-disk YAML shape of the --hosts file.
type rawConfig struct {
	Defaults rawDefaults             `yaml:"defaults"`
	Hosts    map[string]rawHostEntry `yaml:"hosts"`
}

// rawDefaults is the on-disk YAML shape of the "defaults" section.  All
// three fields are required.
type rawDefaults struct {
	Delay           *float64 `yaml:"delay"`
	Recheck         *string  `yaml:"recheck"`
	PriorityRecheck *string  `yaml:"priority_recheck"`
}

// rawHostEntry is the on-disk YAML shape of one entry under "hosts".  All
// fields are optional; an entry overrides only the fields it sets.
type rawHostEntry struct {
	Delay           *float64 `yaml:"delay"`
	Recheck         *string  `yaml:"recheck"`
	PriorityRecheck *string  `yaml:"priority_recheck"`
	Blacklist       *bool    `yaml:"blacklist"`
	Skip            *bool    `yaml:"skip"`
	Aggregate       bool     `yaml:"aggregate"`
}

// Defaults are the host settings applied when no configured suffix of a
// host overrides a given field.
type Defaults struct {
	Delay           time.Duration
	Recheck         Range
	PriorityRecheck Range
}

// Settings is a single configured suffix's worth of overrides.  A nil
// pointer field means "not configured at this suffix"; Aggregate is a plain
// bool since it is monotone (OR, never cleared) rather than overridden.
type Settings struct {
	Delay           *time.Duration
	Recheck         *Range
	PriorityRecheck *Range
	Blacklist       *bool
	Skip            *bool
	Aggregate       bool
}

// update returns a copy of s with other merged in, overwriting only the
// fields other sets.  Aggregate is ORed, matching the "once true, always true" rule.
func (s Settings) update(other Settings) (merged Settings) {
	merged = s

	if other.Delay != nil {
		merged.Delay = other.Delay
	}

	if other.Recheck != nil {
		merged.Recheck = other.Recheck
	}

	if other.PriorityRecheck != nil {
		merged.PriorityRecheck = other.PriorityRecheck
	}

	if other.Blacklist != nil {
		merged.Blacklist = other.Blacklist
	}

	if other.Skip != nil {
		merged.Skip = other.Skip
	}

	if other.Aggregate {
		merged.Aggregate = true
	}

	return merged
}

// Config is the parsed, semantically valid form of the --hosts YAML file.
type Config struct {
	Defaults Defaults
	Hosts    map[string]Settings
}

// LoadConfig reads and validates a host-policy configuration from r.  It
// returns a [*ConfigError] if r does not contain valid YAML, the schema is
// violated (unknown keys), defaults are incomplete, or a recheck range fails
// the grammar.
func LoadConfig(r io.Reader) (conf *Config, err error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading hosts config: %w", err)
	}

	raw := &rawConfig{}
	if err = yaml.UnmarshalStrict(data, raw); err != nil {
		return nil, &ConfigError{Message: fmt.Sprintf("parsing hosts config: %s", err)}
	}

	defaults, err := parseDefaults(raw.Defaults)
	if err != nil {
		return nil, err
	}

	hosts := make(map[string]Settings, len(raw.Hosts))
	for host, entry := range raw.Hosts {
		s, hErr := parseHostEntry(entry)
		if hErr != nil {
			return nil, &ConfigError{
				Message: fmt.Sprintf("host %q: %s", host, hErr),
			}
		}

		hosts[host] = s
	}

	return &Config{
		Defaults: defaults,
		Hosts:    hosts,
	}, nil
}

// parseDefaults validates and converts the raw "defaults" section.
func parseDefaults(raw rawDefaults) (defaults Defaults, err error) {
	if raw.Delay == nil {
		return defaults, &ConfigError{Message: "defaults.delay is required"}
	}

	if raw.Recheck == nil {
		return defaults, &ConfigError{Message: "defaults.recheck is required"}
	}

	if raw.PriorityRecheck == nil {
		return defaults, &ConfigError{Message: "defaults.priority_recheck is required"}
	}

	recheck, err := ParseRecheck(*raw.Recheck)
	if err != nil {
		return defaults, &ConfigError{
			Message: fmt.Sprintf("defaults.recheck: %s", err),
		}
	}

	priorityRecheck, err := ParseRecheck(*raw.PriorityRecheck)
	if err != nil {
		return defaults, &ConfigError{
			Message: fmt.Sprintf("defaults.priority_recheck: %s", err),
		}
	}

	return Defaults{
		Delay:           time.Duration(*raw.Delay * float64(time.Second)),
		Recheck:         recheck,
		PriorityRecheck: priorityRecheck,
	}, nil
}

// parseHostEntry validates and converts one raw "hosts" entry.
func parseHostEntry(raw rawHostEntry) (s Settings, err error) {
	s.Blacklist = raw.Blacklist
	s.Skip = raw.Skip
	s.Aggregate = raw.Aggregate

	if raw.Delay != nil {
		d := time.Duration(*raw.Delay * float64(time.Second))
		s.Delay = &d
	}

	if raw.Recheck != nil {
		r, rErr := ParseRecheck(*raw.Recheck)
		if rErr != nil {
			return s, fmt.Errorf("recheck: %w", rErr)
		}

		s.Recheck = &r
	}

	if raw.PriorityRecheck != nil {
		r, rErr := ParseRecheck(*raw.PriorityRecheck)
		if rErr != nil {
			return s, fmt.Errorf("priority_recheck: %w", rErr)
		}

		s.PriorityRecheck = &r
	}

	return s, nil
}

// ConfigError is returned by [LoadConfig] when the hosts configuration is
// malformed.
type ConfigError struct {
	Message string
}

// Error implements the error interface for *ConfigError.
func (err *ConfigError) Error() (msg string) {
	return "invalid hosts config: " + err.Message
}

// ParseRecheck parses the "<int><unit>-<int><unit>" grammar (no suffix means
// seconds; m/h/d/w mean minutes/hours/days/weeks) into a [Range].
func ParseRecheck(s string) (r Range, err error) {
	lo, hi, ok := strings.Cut(s, "-")
	if !ok {
		return r, &ConfigError{Message: fmt.Sprintf("malformed recheck range %q", s)}
	}

	min, err := parseRecheckTerm(lo)
	if err != nil {
		return r, fmt.Errorf("malformed recheck range %q: %w", s, err)
	}

	max, err := parseRecheckTerm(hi)
	if err != nil {
		return r, fmt.Errorf("malformed recheck range %q: %w", s, err)
	}

	return Range{Min: min, Max: max}, nil
}

// unitMultipliers maps the grammar's unit suffixes to a multiplier in
// seconds.  An absent suffix means seconds, multiplier 1.
var unitMultipliers = map[byte]int64{
	'm': 60,
	'h': 60 * 60,
	'd': 60 * 60 * 24,
	'w': 60 * 60 * 24 * 7,
}

// parseRecheckTerm parses one side of a recheck range, e.g. "90m" or "45".
func parseRecheckTerm(term string) (d time.Duration, err error) {
	if term == "" {
		return 0, errors.Error("empty term")
	}

	mult := int64(1)
	numPart := term
	if last := term[len(term)-1]; last < '0' || last > '9' {
		m, ok := unitMultipliers[last]
		if !ok {
			return 0, fmt.Errorf("unknown unit %q", string(last))
		}

		mult = m
		numPart = term[:len(term)-1]
	}

	n, err := strconv.ParseInt(numPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %q: %w", term, err)
	}

	return time.Duration(n*mult) * time.Second, nil
}
