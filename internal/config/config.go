package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const EnvPrefix = "SENSORCORE"

var ErrInvalid = errors.New("invalid configuration")

// Sensor names accepted in device.sensors
const (
	SensorHeartRate    = "heart_rate"
	SensorCyclingPower = "cycling_power"
	SensorCSC          = "csc"
	SensorBattery      = "battery"
	SensorRadar        = "radar"
	SensorFTMS         = "ftms"
	SensorFEC          = "fec"
	SensorSteering     = "steering"
	SensorRizer        = "rizer"
)

var KnownSensors = []string{
	SensorHeartRate, SensorCyclingPower, SensorCSC, SensorBattery, SensorRadar,
	SensorFTMS, SensorFEC, SensorSteering, SensorRizer,
}

type DeviceConfig struct {
	Address     string        `mapstructure:"address"`
	ScanTimeout time.Duration `mapstructure:"scan-timeout"`
	Sensors     []string      `mapstructure:"sensors"`
}

type LogConfig struct {
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max-size-mb"`
	MaxBackups int    `mapstructure:"max-backups"`
	MaxAgeDays int    `mapstructure:"max-age-days"`
	Compress   bool   `mapstructure:"compress"`
	Stderr     bool   `mapstructure:"stderr"`
}

type CaptureConfig struct {
	File        string  `mapstructure:"file"`
	Replay      string  `mapstructure:"replay"`
	ReplaySpeed float64 `mapstructure:"replay-speed"`
	Dump        string  `mapstructure:"dump"`
}

// SteeringConfig points at the Sterzo challenge table, two response bytes per
// challenge value
type SteeringConfig struct {
	ChallengeFile string `mapstructure:"challenge-file"`
}

// TrainerConfig holds the commands sent once a trainer is connected. Zero
// values are not sent.
type TrainerConfig struct {
	TargetPowerWatts       float64       `mapstructure:"target-power"`
	BasicResistancePercent float64       `mapstructure:"basic-resistance"`
	GradePercent           float64       `mapstructure:"grade"`
	CommandTimeout         time.Duration `mapstructure:"command-timeout"`
}

type Config struct {
	Device   DeviceConfig   `mapstructure:"device"`
	Log      LogConfig      `mapstructure:"log"`
	Capture  CaptureConfig  `mapstructure:"capture"`
	Trainer  TrainerConfig  `mapstructure:"trainer"`
	Steering SteeringConfig `mapstructure:"steering"`
	Simulate bool           `mapstructure:"simulate"`
	Duration time.Duration  `mapstructure:"duration"`
}

func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", "", "config file (yaml, toml or json)")

	fs.String("device.address", "", "connect to this address instead of scanning")
	fs.Duration("device.scan-timeout", 20*time.Second, "how long to scan for a device")
	fs.StringSlice("device.sensors", []string{SensorHeartRate, SensorCyclingPower}, "sensors to enable: "+strings.Join(KnownSensors, ","))

	fs.String("log.file", "", "log file, rotated (stderr when empty)")
	fs.Int("log.max-size-mb", 10, "rotate the log file after this many megabytes")
	fs.Int("log.max-backups", 3, "rotated log files to keep")
	fs.Int("log.max-age-days", 28, "days to keep rotated log files")
	fs.Bool("log.compress", false, "gzip rotated log files")
	fs.Bool("log.stderr", false, "also log to stderr when logging to a file")

	fs.String("capture.file", "", "append every frame to this CBOR capture")
	fs.String("capture.replay", "", "replay this CBOR capture instead of using bluetooth")
	fs.Float64("capture.replay-speed", 1, "replay speed factor, 0 for no pauses")
	fs.String("capture.dump", "", "print this CBOR capture and exit")

	fs.String("steering.challenge-file", "", "Sterzo challenge table, required by the steering sensor")

	fs.Float64("trainer.target-power", 0, "FE-C target power in watts")
	fs.Float64("trainer.basic-resistance", 0, "FE-C basic resistance in percent")
	fs.Float64("trainer.grade", 0, "FE-C track resistance grade in percent")
	fs.Duration("trainer.command-timeout", 3*time.Second, "wait this long for a command status")

	fs.Bool("simulate", false, "use the built in simulator instead of bluetooth")
	fs.Duration("duration", 0, "stop after this long (0 runs until interrupted)")
	return fs
}

// Load parses args, then environment (SENSORCORE_DEVICE_ADDRESS, ...), then
// the optional config file. Flags set on the command line win.
func Load(name string, args []string) (*Config, error) {
	fs := newFlagSet(name)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}

	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	for _, s := range c.Device.Sensors {
		if !slices.Contains(KnownSensors, s) {
			errs = append(errs, fmt.Errorf("%w: unknown sensor %q", ErrInvalid, s))
		}
	}
	if c.Device.ScanTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%w: device.scan-timeout must be positive", ErrInvalid))
	}
	if c.Capture.ReplaySpeed < 0 {
		errs = append(errs, fmt.Errorf("%w: capture.replay-speed must not be negative", ErrInvalid))
	}
	if c.Capture.Replay != "" && c.Simulate {
		errs = append(errs, fmt.Errorf("%w: capture.replay and simulate are exclusive", ErrInvalid))
	}
	if c.Capture.Replay != "" && c.Capture.Replay == c.Capture.File {
		errs = append(errs, fmt.Errorf("%w: cannot capture into the file being replayed", ErrInvalid))
	}
	if c.Enabled(SensorSteering) && c.Steering.ChallengeFile == "" {
		errs = append(errs, fmt.Errorf("%w: steering needs steering.challenge-file", ErrInvalid))
	}
	if c.Trainer.CommandTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%w: trainer.command-timeout must be positive", ErrInvalid))
	}
	return errors.Join(errs...)
}

// Enabled reports whether sensor is in device.sensors
func (c *Config) Enabled(sensor string) bool {
	return slices.Contains(c.Device.Sensors, sensor)
}
