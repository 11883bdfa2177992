// Package report renders summaries of trees and simulations.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/pkg/errors"
	"github.com/xhhuango/json"
	"gopkg.in/yaml.v3"

	"github.com/bcdannyboy/cmdty/curves"
	"github.com/bcdannyboy/cmdty/errs"
	"github.com/bcdannyboy/cmdty/montecarlo"
	"github.com/bcdannyboy/cmdty/trinomial"
)

type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	}
	return "", errs.Config("output", "unknown format %q", s)
}

// Summary is anything Write can render.
type Summary interface {
	title() string
	header() table.Row
	rows() []table.Row
}

type SimulationRow struct {
	Period  string  `json:"period" yaml:"period"`
	Forward float64 `json:"forward" yaml:"forward"`
	Mean    float64 `json:"mean" yaml:"mean"`
	StdDev  float64 `json:"std_dev" yaml:"std_dev"`
	StdErr  float64 `json:"std_err" yaml:"std_err"`
}

type SimulationSummary struct {
	NumSims    int             `json:"num_sims" yaml:"num_sims"`
	NumFactors int             `json:"num_factors" yaml:"num_factors"`
	Rows       []SimulationRow `json:"periods" yaml:"periods"`
}

// SummarizeSimulation compares the sample mean at every simulated period
// against the forward price.
func SummarizeSimulation(res *montecarlo.Results, forward *curves.Curve) (*SimulationSummary, error) {
	s := &SimulationSummary{
		NumSims:    res.NumSims(),
		NumFactors: res.NumFactors(),
	}
	for i, p := range res.Periods() {
		fwd, ok := forward.Value(p)
		if !ok {
			return nil, errs.Config("forwardCurve", "no forward price for %s", p.Format(time.DateOnly))
		}
		mean, std, stdErr, err := res.SpotStats(i)
		if err != nil {
			return nil, err
		}
		s.Rows = append(s.Rows, SimulationRow{
			Period:  p.Format(time.DateOnly),
			Forward: fwd,
			Mean:    mean,
			StdDev:  std,
			StdErr:  stdErr,
		})
	}
	return s, nil
}

func (s *SimulationSummary) title() string {
	return fmt.Sprintf("%d simulations, %d factors", s.NumSims, s.NumFactors)
}

func (s *SimulationSummary) header() table.Row {
	return table.Row{"period", "forward", "mean", "std dev", "std err"}
}

func (s *SimulationSummary) rows() []table.Row {
	out := make([]table.Row, len(s.Rows))
	for i, r := range s.Rows {
		out[i] = table.Row{r.Period, r.Forward, r.Mean, r.StdDev, r.StdErr}
	}
	return out
}

type TreeRow struct {
	Period         string  `json:"period" yaml:"period"`
	Nodes          int     `json:"nodes" yaml:"nodes"`
	ProbabilitySum float64 `json:"probability_sum" yaml:"probability_sum"`
	Forward        float64 `json:"forward" yaml:"forward"`
	Expected       float64 `json:"expected" yaml:"expected"`
	Min            float64 `json:"min" yaml:"min"`
	Max            float64 `json:"max" yaml:"max"`
}

type TreeSummary struct {
	JMax        int       `json:"j_max" yaml:"j_max"`
	NodeSpacing float64   `json:"node_spacing" yaml:"node_spacing"`
	Rows        []TreeRow `json:"periods" yaml:"periods"`
}

// SummarizeTree reports the shape of every level and how well it prices the
// forward curve.
func SummarizeTree(tree *trinomial.Tree, forward *curves.Curve) (*TreeSummary, error) {
	s := &TreeSummary{
		JMax:        tree.JMax(),
		NodeSpacing: tree.NodeSpacing(),
	}
	for i := 0; i < tree.Len(); i++ {
		p := tree.Period(i)
		fwd, ok := forward.Value(p)
		if !ok {
			return nil, errs.Config("forwardCurve", "no forward price for %s", p.Format(time.DateOnly))
		}
		lo, hi := tree.ValueRange(i)
		s.Rows = append(s.Rows, TreeRow{
			Period:         p.Format(time.DateOnly),
			Nodes:          len(tree.Level(i)),
			ProbabilitySum: tree.ProbabilitySum(i),
			Forward:        fwd,
			Expected:       tree.ExpectedValue(i),
			Min:            lo,
			Max:            hi,
		})
	}
	return s, nil
}

func (s *TreeSummary) title() string {
	return fmt.Sprintf("trinomial tree, jmax %d, spacing %.6f", s.JMax, s.NodeSpacing)
}

func (s *TreeSummary) header() table.Row {
	return table.Row{"period", "nodes", "prob sum", "forward", "expected", "min", "max"}
}

func (s *TreeSummary) rows() []table.Row {
	out := make([]table.Row, len(s.Rows))
	for i, r := range s.Rows {
		out[i] = table.Row{r.Period, r.Nodes, r.ProbabilitySum, r.Forward, r.Expected, r.Min, r.Max}
	}
	return out
}

// Write renders s to w in the given format.
func Write(w io.Writer, format Format, s Summary) error {
	switch format {
	case FormatTable:
		writeTable(w, s)
		return nil
	case FormatJSON:
		out, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return errors.Wrap(err, "encode json report")
		}
		_, err = fmt.Fprintln(w, string(out))
		return err
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return errors.Wrap(err, "encode yaml report")
		}
		return enc.Close()
	}
	return errs.Config("output", "unknown format %q", format)
}

func writeTable(w io.Writer, s Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetTitle(s.title())
	t.AppendHeader(s.header())
	t.AppendRows(s.rows())

	cols := len(s.header())
	configs := make([]table.ColumnConfig, 0, cols)
	for n := 2; n <= cols; n++ {
		configs = append(configs, table.ColumnConfig{
			Number:      n,
			Align:       text.AlignRight,
			Transformer: formatNumber,
		})
	}
	t.SetColumnConfigs(configs)
	t.Render()
}

func formatNumber(v interface{}) string {
	switch x := v.(type) {
	case float64:
		return fmt.Sprintf("%.6f", x)
	default:
		return fmt.Sprint(x)
	}
}
