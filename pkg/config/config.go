package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"mpimeasure/pkg/log"
	"mpimeasure/pkg/measure"
)

// Config holds all parameters for a measured run.
type Config struct {
	Mode       string        `yaml:"mode"`       // measurement mode, e.g. "runtime,stats"
	Ranks      int           `yaml:"ranks"`      // in-process ranks for simulate
	Root       int           `yaml:"root"`       // rank receiving reductions
	Schema     []string      `yaml:"schema"`     // column names, in order
	Iterations int           `yaml:"iterations"` // workload cycles per rank
	Work       time.Duration `yaml:"work"`       // base work per column
	Imbalance  float64       `yaml:"imbalance"`  // extra work per rank, as a fraction of Work
	Seed       int64         `yaml:"seed"`

	OutputDir string `yaml:"out"`
	Base      string `yaml:"base"`
	Func      string `yaml:"func"`

	LogLevel    string `yaml:"log_level"`
	MetricsAddr string `yaml:"metrics_addr"`

	Network Network `yaml:"network"`
}

// Network holds the parameters of one rank of a TCP group.
type Network struct {
	Rank        int           `yaml:"rank"`
	Size        int           `yaml:"size"`
	Addr        string        `yaml:"addr"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// Default returns the configuration used when neither flags nor a file
// override a value.
func Default() *Config {
	return &Config{
		Mode:       "runtime,stats",
		Ranks:      4,
		Schema:     []string{"compute", "exchange"},
		Iterations: 10,
		Work:       2 * time.Millisecond,
		Imbalance:  0.25,
		Seed:       1,
		OutputDir:  "output/logs/",
		Base:       "run",
		Func:       "step",
		LogLevel:   "info",
		Network: Network{
			Size:        2,
			Addr:        "127.0.0.1:7070",
			DialTimeout: 10 * time.Second,
		},
	}
}

// BindFlags registers the workload and output flags on fs.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.Mode, "mode", c.Mode, "Measurement mode (runtime|syncskew, optionally with stats and total).")
	fs.IntVar(&c.Root, "root", c.Root, "Rank receiving the group statistics.")
	fs.StringSliceVar(&c.Schema, "schema", c.Schema, "Comma separated column names.")
	fs.IntVar(&c.Iterations, "iterations", c.Iterations, "Workload cycles per rank.")
	fs.DurationVar(&c.Work, "work", c.Work, "Base work per column and cycle.")
	fs.Float64Var(&c.Imbalance, "imbalance", c.Imbalance, "Extra work per rank as a fraction of --work.")
	fs.Int64Var(&c.Seed, "seed", c.Seed, "Seed for the workload jitter.")
	fs.StringVar(&c.OutputDir, "out", c.OutputDir, "Directory for measurement logs.")
	fs.StringVar(&c.Base, "base", c.Base, "Base name of measurement logs.")
	fs.StringVar(&c.Func, "func", c.Func, "Function name used in measurement log names.")
	fs.StringVar(&c.MetricsAddr, "metrics-addr", c.MetricsAddr, "Serve Prometheus metrics on this address during the run.")
}

// BindNetworkFlags registers the flags of one rank of a TCP group on fs.
func (c *Config) BindNetworkFlags(fs *pflag.FlagSet) {
	fs.IntVar(&c.Network.Rank, "rank", c.Network.Rank, "Rank of this process.")
	fs.IntVar(&c.Network.Size, "size", c.Network.Size, "Number of processes in the group.")
	fs.StringVar(&c.Network.Addr, "root-addr", c.Network.Addr, "Address rank 0 listens on.")
	fs.DurationVar(&c.Network.DialTimeout, "dial-timeout", c.Network.DialTimeout, "How long to retry connecting to rank 0.")
}

// Load overlays the YAML file at path onto c. Flags set explicitly on fs keep
// their command line value.
func (c *Config) Load(path string, fs *pflag.FlagSet) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not read config file %s: %w", path, err)
	}

	type setting struct {
		flag  *pflag.Flag
		value string
		slice []string
	}
	var explicit []setting
	fs.Visit(func(f *pflag.Flag) {
		s := setting{flag: f, value: f.Value.String()}
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			s.slice = sv.GetSlice()
		}
		explicit = append(explicit, s)
	})

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("could not parse config file %s: %w", path, err)
	}

	for _, s := range explicit {
		if sv, ok := s.flag.Value.(pflag.SliceValue); ok {
			err = sv.Replace(s.slice)
		} else {
			err = s.flag.Value.Set(s.value)
		}
		if err != nil {
			return fmt.Errorf("could not restore flag --%s: %w", s.flag.Name, err)
		}
	}
	log.Debug("Config: %s", c)
	return nil
}

// MeasureMode parses Mode.
func (c *Config) MeasureMode() (measure.Mode, error) {
	return measure.ParseMode(c.Mode)
}

// LogBase returns the path prefix of the measurement logs.
func (c *Config) LogBase() string {
	return filepath.Join(c.OutputDir, c.Base)
}

// ApplyLogLevel sets the global log level from LogLevel.
func (c *Config) ApplyLogLevel() error {
	return setLogLevel(c.LogLevel)
}

// Prepare applies the log level, validates the run parameters and creates the
// output directory.
func (c *Config) Prepare() error {
	if err := c.ApplyLogLevel(); err != nil {
		return err
	}
	if _, err := c.MeasureMode(); err != nil {
		return err
	}
	if c.Iterations < 0 {
		return fmt.Errorf("invalid iteration count %d", c.Iterations)
	}
	dir, err := cleanAndCreateDirectory(c.OutputDir)
	if err != nil {
		return err
	}
	c.OutputDir = dir
	return nil
}

// String returns a string representation of the Config instance
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode:%s Ranks:%d Root:%d Schema:%v Iterations:%d Work:%s "+
		"Imbalance:%g Seed:%d Out:%s Base:%s Func:%s LogLevel:%s Metrics:%s "+
		"Network:{Rank:%d Size:%d Addr:%s DialTimeout:%s}}",
		c.Mode, c.Ranks, c.Root, c.Schema, c.Iterations, c.Work,
		c.Imbalance, c.Seed, c.OutputDir, c.Base, c.Func, c.LogLevel, c.MetricsAddr,
		c.Network.Rank, c.Network.Size, c.Network.Addr, c.Network.DialTimeout)
}

// --- Config Helpers ---

// cleanAndCreateDirectory ensures the specified directory exists by creating it if necessary.
// It returns the cleaned path.
func cleanAndCreateDirectory(path string) (string, error) {
	path = filepath.Clean(path)
	if err := os.MkdirAll(path, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return path, nil
}

// setLogLevel sets the global log level to one of "trace", "debug", "info", or "error".
func setLogLevel(logLevel string) error {
	level, err := log.ParseLevel(logLevel)
	if err != nil {
		return err
	}
	log.SetLevel(level)
	return nil
}
