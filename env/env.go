// Package env loads runner settings from the process environment, with
// an optional .env file.
package env

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Environment holds the runner defaults. Flags override these.
type Environment struct {
	// Seed feeds the stochastic sampling source.
	Seed uint64
	// StepSize is the default dt per logical step.
	StepSize float64
	// Horizon is the default simulated end time.
	Horizon float64
	// LogLevel is a zap level name: debug, info, warn, error.
	LogLevel string
}

// LoadEnv reads HFPN_SEED, HFPN_STEP, HFPN_HORIZON, and HFPN_LOG_LEVEL,
// falling back to defaults. A malformed value is fatal; a missing .env
// file is not.
func LoadEnv(logger *zap.Logger) *Environment {
	_ = godotenv.Load()

	e := &Environment{
		Seed:     1,
		StepSize: 0.1,
		Horizon:  10,
		LogLevel: "info",
	}
	if v, ok := os.LookupEnv("HFPN_SEED"); ok {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			logger.Fatal("HFPN_SEED is not an unsigned integer", zap.String("value", v))
		}
		e.Seed = seed
	}
	if v, ok := os.LookupEnv("HFPN_STEP"); ok {
		step, err := strconv.ParseFloat(v, 64)
		if err != nil || step <= 0 {
			logger.Fatal("HFPN_STEP is not a positive number", zap.String("value", v))
		}
		e.StepSize = step
	}
	if v, ok := os.LookupEnv("HFPN_HORIZON"); ok {
		horizon, err := strconv.ParseFloat(v, 64)
		if err != nil || horizon <= 0 {
			logger.Fatal("HFPN_HORIZON is not a positive number", zap.String("value", v))
		}
		e.Horizon = horizon
	}
	if v, ok := os.LookupEnv("HFPN_LOG_LEVEL"); ok {
		e.LogLevel = v
	}
	return e
}
