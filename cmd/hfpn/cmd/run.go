/*
Copyright © 2025 The hfpn authors

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/hfpn-dev/hfpn"
	"github.com/hfpn-dev/hfpn/env"
	"github.com/hfpn-dev/hfpn/examples"
	"github.com/hfpn-dev/hfpn/petrifile"
	"github.com/hfpn-dev/hfpn/sim"
)

var (
	exampleName string
	netFile     string
	configFile  string
	stepSize    float64
	horizon     float64
	seed        uint64
	verbose     bool
)

// RunConfig is the yaml shape of a run configuration. It configures a
// run; the model comes from a net definition file or a built-in
// example.
type RunConfig struct {
	Example  string  `yaml:"example"`
	File     string  `yaml:"file"`
	StepSize float64 `yaml:"step"`
	Horizon  float64 `yaml:"horizon"`
	Seed     uint64  `yaml:"seed"`
	LogLevel string  `yaml:"logLevel"`
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an example net to a horizon",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		defer func() {
			_ = logger.Sync()
		}()

		e := env.LoadEnv(logger)
		cfg := RunConfig{
			Example:  exampleName,
			StepSize: e.StepSize,
			Horizon:  e.Horizon,
			Seed:     e.Seed,
			LogLevel: e.LogLevel,
		}
		if configFile != "" {
			f, err := os.Open(configFile)
			if err != nil {
				return err
			}
			defer func() {
				_ = f.Close()
			}()
			if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
				return fmt.Errorf("parse %s: %w", configFile, err)
			}
		}
		if cmd.Flags().Changed("dt") {
			cfg.StepSize = stepSize
		}
		if cmd.Flags().Changed("horizon") {
			cfg.Horizon = horizon
		}
		if cmd.Flags().Changed("seed") {
			cfg.Seed = seed
		}
		if !verbose {
			logger = logger.WithOptions(zap.IncreaseLevel(parseLevel(cfg.LogLevel)))
		}

		if cmd.Flags().Changed("file") {
			cfg.File = netFile
		}

		var net *hfpn.Net
		if cfg.File != "" {
			net, err = petrifile.LoadFile(cfg.File)
			if err != nil {
				return err
			}
		} else {
			net = examples.Lookup(cfg.Example)
			if net == nil {
				return fmt.Errorf("unknown example %q (have: %s)", cfg.Example, strings.Join(examples.Names(), ", "))
			}
		}

		c, err := sim.New(net, sim.WithLogger(logger), sim.WithSeed(cfg.Seed))
		if err != nil {
			return err
		}
		for c.Time() < cfg.Horizon {
			events, err := c.Step(cfg.StepSize)
			if err != nil {
				return err
			}
			for _, ev := range events {
				logger.Info("fired",
					zap.String("transition", ev.TransitionName),
					zap.Stringer("type", ev.Type),
					zap.Float64("time", ev.Time),
					zap.Bool("forced", ev.Forced))
			}
		}

		st := c.State()
		fmt.Printf("net %s finished at t=%.3f after %d steps\n", net.Name, st.Time, st.Steps)
		fmt.Printf("immediate firings: %d, forced timed firings: %d, clamped flows: %d\n",
			st.Stats.ImmediateFirings, st.Stats.ForcedTimedFirings, st.Stats.ClampedFlows)
		fmt.Println("final marking:")
		for _, p := range net.Places {
			fmt.Printf("  %-12s %g\n", p.Name, p.Tokens)
		}
		return nil
	},
}

func parseLevel(name string) zapcore.Level {
	var l zapcore.Level
	if err := l.Set(name); err != nil {
		return zapcore.InfoLevel
	}
	return l
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&exampleName, "example", "e", "decay", "example net to run")
	runCmd.Flags().StringVarP(&netFile, "file", "f", "", "net definition file, overrides --example")
	runCmd.Flags().StringVarP(&configFile, "config", "c", "", "yaml run configuration")
	runCmd.Flags().Float64Var(&stepSize, "dt", 0.1, "step size")
	runCmd.Flags().Float64Var(&horizon, "horizon", 10, "simulated end time")
	runCmd.Flags().Uint64Var(&seed, "seed", 1, "stochastic sampling seed")
	runCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log at the configured development level")
}
