// Package config loads the actor runtime's tunables. Everything here has a
// hardcoded default; an optional TOML file overrides individual fields.
package config

import (
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds runtime tunables. Zero value is never used directly;
// callers get Default() or Load().
type Config struct {
	// CheckMode enables belonging-id tagging and lock-ownership assertions
	// (spec.md §6, the CHECK_MODE compile-time flag in the original).
	CheckMode bool `toml:"check_mode"`

	// Fairness enables shuffling of select's try-phase case order.
	// spec.md §9: "specification does not require randomization but
	// allows it for fairness."
	Fairness bool `toml:"fairness"`

	// MailboxInitialCapacity is the initial slice capacity of a new
	// actor's incoming queue (spec.md §4.2).
	MailboxInitialCapacity int `toml:"mailbox_initial_capacity"`

	// BarrierPollInterval is loaded and resolved here but not read by
	// VM.Barrier, which waits on its condition variable without a timeout.
	BarrierPollInterval   time.Duration `toml:"-"`
	BarrierPollIntervalMS int64         `toml:"barrier_poll_interval_ms"`

	// TerminateRepollInterval is how often terminate_all re-interrupts
	// still-running actors while waiting for vm.cnt == 1 (spec.md §4.5).
	TerminateRepollInterval   time.Duration `toml:"-"`
	TerminateRepollIntervalMS int64         `toml:"terminate_repoll_interval_ms"`
}

// Default returns the built-in tunables used when no config file is given.
func Default() Config {
	c := Config{
		CheckMode:                 true,
		Fairness:                  true,
		MailboxInitialCapacity:    8,
		BarrierPollIntervalMS:     50,
		TerminateRepollIntervalMS: 200,
	}
	c.resolveDurations()
	return c
}

// Load reads a TOML file at path, starting from Default() and overriding
// any field present in the file. A missing path is not an error; it
// simply returns the defaults.
func Load(path string) (Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	if _, err := toml.DecodeFile(path, &c); err != nil {
		return Config{}, err
	}
	c.resolveDurations()
	return c, nil
}

func (c *Config) resolveDurations() {
	c.BarrierPollInterval = time.Duration(c.BarrierPollIntervalMS) * time.Millisecond
	c.TerminateRepollInterval = time.Duration(c.TerminateRepollIntervalMS) * time.Millisecond
}
