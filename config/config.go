// Package config loads run configurations for the cmdty command line.
package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"gonum.org/v1/gonum/mat"

	"github.com/bcdannyboy/cmdty/curves"
	"github.com/bcdannyboy/cmdty/errs"
	"github.com/bcdannyboy/cmdty/models"
)

const EnvPrefix = "CMDTY"

// Model kinds.
const (
	KindOneFactor           = "one_factor"
	KindTwoFactor           = "two_factor"
	KindThreeFactorSeasonal = "three_factor_seasonal"
	KindMultiFactor         = "multi_factor"
)

type Config struct {
	LogLevel      string           `mapstructure:"log_level"`
	Output        string           `mapstructure:"output"`
	ValuationDate string           `mapstructure:"valuation_date"`
	DayCount      string           `mapstructure:"day_count"`
	ForwardCurve  []CurvePoint     `mapstructure:"forward_curve"`
	Model         ModelConfig      `mapstructure:"model"`
	Simulation    SimulationConfig `mapstructure:"simulation"`
	Tree          TreeConfig       `mapstructure:"tree"`
}

// CurvePoint is one dated value. Period uses the 2006-01-02 layout.
type CurvePoint struct {
	Period string  `mapstructure:"period" yaml:"period"`
	Value  float64 `mapstructure:"value" yaml:"value"`
}

type FactorConfig struct {
	MeanReversion float64 `mapstructure:"mean_reversion"`
	// Volatility applies to every day when VolatilityCurve is empty.
	Volatility      float64      `mapstructure:"volatility"`
	VolatilityCurve []CurvePoint `mapstructure:"volatility_curve"`
}

type ModelConfig struct {
	Kind        string         `mapstructure:"kind"`
	Factors     []FactorConfig `mapstructure:"factors"`
	Correlation [][]float64    `mapstructure:"correlation"`
	Rho         float64        `mapstructure:"rho"`

	SpotMeanReversion float64 `mapstructure:"spot_mean_reversion"`
	SpotVol           float64 `mapstructure:"spot_vol"`
	LongTermVol       float64 `mapstructure:"long_term_vol"`
	SeasonalVol       float64 `mapstructure:"seasonal_vol"`
}

type SimulationConfig struct {
	NumSims    int    `mapstructure:"num_sims"`
	Seed       uint64 `mapstructure:"seed"`
	Antithetic bool   `mapstructure:"antithetic"`
	// Workers of 0 means one per logical CPU.
	Workers int `mapstructure:"workers"`
	// Periods defaults to every forward curve period after the valuation date.
	Periods []string `mapstructure:"periods"`
}

type TreeConfig struct {
	MeanReversion   float64      `mapstructure:"mean_reversion"`
	Volatility      float64      `mapstructure:"volatility"`
	VolatilityCurve []CurvePoint `mapstructure:"volatility_curve"`
	TimeDelta       float64      `mapstructure:"time_delta"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("output", "table")
	v.SetDefault("day_count", "act/365")
	v.SetDefault("model.kind", KindOneFactor)
	v.SetDefault("simulation.num_sims", 10000)
	v.SetDefault("simulation.seed", 12)
	v.SetDefault("simulation.antithetic", false)
	v.SetDefault("simulation.workers", 0)
	v.SetDefault("tree.time_delta", 1.0/365.0)
}

// Load reads the YAML file at path, applies defaults and CMDTY_ prefixed
// environment overrides such as CMDTY_SIMULATION_NUM_SIMS. An empty path
// loads defaults and environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	return &cfg, nil
}

// Validate checks every section that can be checked without building the
// engines.
func (c *Config) Validate() error {
	if _, err := c.Valuation(); err != nil {
		return err
	}
	if _, err := c.DayCountFunc(); err != nil {
		return err
	}
	if _, err := c.Forward(); err != nil {
		return err
	}
	if c.Simulation.NumSims <= 0 {
		return errs.Config("simulation.num_sims", "must be positive, got %d", c.Simulation.NumSims)
	}
	if c.Simulation.Workers < 0 {
		return errs.Config("simulation.workers", "must not be negative, got %d", c.Simulation.Workers)
	}
	switch strings.ToLower(c.Output) {
	case "table", "json", "yaml":
	default:
		return errs.Config("output", "unknown format %q", c.Output)
	}
	return nil
}

func parseDate(param, s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, errs.Config(param, "%q is not a 2006-01-02 date", s)
	}
	return t, nil
}

func (c *Config) Valuation() (time.Time, error) {
	return parseDate("valuation_date", c.ValuationDate)
}

func (c *Config) DayCountFunc() (curves.DayCount, error) {
	return curves.DayCountByName(c.DayCount)
}

func buildCurve(param string, points []CurvePoint) (*curves.Curve, error) {
	periods := make([]time.Time, len(points))
	values := make([]float64, len(points))
	for i, pt := range points {
		p, err := parseDate(param, pt.Period)
		if err != nil {
			return nil, err
		}
		periods[i] = p
		values[i] = pt.Value
	}
	c, err := curves.New(periods, values)
	if err != nil {
		return nil, errors.Wrap(err, param)
	}
	return c, nil
}

// Forward builds the forward curve.
func (c *Config) Forward() (*curves.Curve, error) {
	if len(c.ForwardCurve) == 0 {
		return nil, errs.Config("forward_curve", "no points")
	}
	return buildCurve("forward_curve", c.ForwardCurve)
}

// volatility returns the configured curve, or a constant daily curve over
// [start, end] when none is given.
func volatility(param string, constant float64, points []CurvePoint, start, end time.Time) (*curves.Curve, error) {
	if len(points) > 0 {
		return buildCurve(param, points)
	}
	return curves.Constant(start, end, constant)
}

// ModelParameters builds the factor model over [valuation date, last forward
// period].
func (c *Config) ModelParameters() (*models.Parameters, error) {
	start, err := c.Valuation()
	if err != nil {
		return nil, err
	}
	forward, err := c.Forward()
	if err != nil {
		return nil, err
	}
	end := forward.End()

	m := c.Model
	switch strings.ToLower(m.Kind) {
	case KindThreeFactorSeasonal:
		return models.ForThreeFactorSeasonal(m.SpotMeanReversion, m.SpotVol, m.LongTermVol, m.SeasonalVol, start, end)
	case KindOneFactor, KindTwoFactor, KindMultiFactor:
	default:
		return nil, errs.Config("model.kind", "unknown model %q", m.Kind)
	}

	factors := make([]models.Factor, len(m.Factors))
	for i, fc := range m.Factors {
		vol, err := volatility("model.factors.volatility_curve", fc.Volatility, fc.VolatilityCurve, start, end)
		if err != nil {
			return nil, err
		}
		f, err := models.NewFactor(fc.MeanReversion, vol)
		if err != nil {
			return nil, errors.Wrapf(err, "factor %d", i)
		}
		factors[i] = f
	}

	switch strings.ToLower(m.Kind) {
	case KindOneFactor:
		if len(factors) != 1 {
			return nil, errs.Config("model.factors", "%s needs 1 factor, got %d", m.Kind, len(factors))
		}
		return models.ForOneFactor(factors[0].MeanReversion, factors[0].Volatility)
	case KindTwoFactor:
		if len(factors) != 2 {
			return nil, errs.Config("model.factors", "%s needs 2 factors, got %d", m.Kind, len(factors))
		}
		return models.ForTwoFactors(m.Rho, factors[0], factors[1])
	}

	n := len(factors)
	if len(m.Correlation) != n {
		return nil, errs.Config("model.correlation", "needs %d rows, got %d", n, len(m.Correlation))
	}
	data := make([]float64, 0, n*n)
	for i, row := range m.Correlation {
		if len(row) != n {
			return nil, errs.Config("model.correlation", "row %d has %d entries, want %d", i, len(row), n)
		}
		data = append(data, row...)
	}
	return models.NewParameters(mat.NewDense(n, n, data), factors...)
}

// SimulationPeriods resolves the periods to simulate against forward.
func (c *Config) SimulationPeriods(forward *curves.Curve) ([]time.Time, error) {
	if len(c.Simulation.Periods) > 0 {
		periods := make([]time.Time, len(c.Simulation.Periods))
		for i, s := range c.Simulation.Periods {
			p, err := parseDate("simulation.periods", s)
			if err != nil {
				return nil, err
			}
			periods[i] = p
		}
		return periods, nil
	}

	start, err := c.Valuation()
	if err != nil {
		return nil, err
	}
	var periods []time.Time
	for _, p := range forward.Periods() {
		if p.After(start) {
			periods = append(periods, p)
		}
	}
	if len(periods) == 0 {
		return nil, errs.Config("forward_curve", "no periods after valuation date %s", start.Format(time.DateOnly))
	}
	return periods, nil
}

// TreeVolatility builds the tree's volatility curve over the forward range.
func (c *Config) TreeVolatility(forward *curves.Curve) (*curves.Curve, error) {
	return volatility("tree.volatility_curve", c.Tree.Volatility, c.Tree.VolatilityCurve, forward.Start(), forward.End())
}
