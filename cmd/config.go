package main

import "time"

type Config struct {
	SelfID           string        `env:"SELF_ID,required=true"`
	BadgerFilepath   string        `env:"BADGER_FILEPATH,required=true"`
	LogLevel         string        `env:"LOG_LEVEL,required=true"`
	GuardTransitions bool          `env:"GUARD_TRANSITIONS"`
	RequestRetention time.Duration `env:"REQUEST_RETENTION"`
	SweepInterval    time.Duration `env:"SWEEP_INTERVAL,default=1m"`
	StatsInterval    time.Duration `env:"STATS_INTERVAL,default=1m"`
}
