package config

import "time"

type Sessions struct{}

var _ SessionConfig = Sessions{}

func (Sessions) GetSessionLifetime() time.Duration {
	return GetDurationEnv("SESSION_LIFETIME", 10*time.Minute)
}

func (Sessions) GetSweepInterval() time.Duration {
	return GetDurationEnv("SESSION_SWEEP_INTERVAL", time.Minute)
}

// GetVanityCodeWidth is the minimum number of digits in a vanity code. The
// store widens codes beyond this as the number of live sessions grows.
func (Sessions) GetVanityCodeWidth() int {
	return GetIntEnv("VANITY_CODE_WIDTH", 4)
}
