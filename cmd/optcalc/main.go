// Command optcalc prices one American option and fits the outcome
// probabilities of an underlying from the command line, reporting how long
// each stage takes.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"

	"github.com/atmx/option-engine/internal/american"
	"github.com/atmx/option-engine/internal/chart"
	"github.com/atmx/option-engine/internal/contract"
	"github.com/atmx/option-engine/internal/model"
	"github.com/atmx/option-engine/internal/probability"
)

var (
	labelColor = color.New(color.FgBlue).SprintFunc()
	timeColor  = color.New(color.FgYellow).SprintFunc()
	posColor   = color.New(color.FgGreen).SprintFunc()
	negColor   = color.New(color.FgRed).SprintFunc()
)

func signed(v float64) string {
	s := fmt.Sprintf("%.8f", v)
	if v < 0 {
		return negColor(s)
	}
	return posColor(s)
}

func line(label string, v float64) {
	fmt.Printf("  %-26s %s\n", labelColor(label), signed(v))
}

var rootCmd = &cobra.Command{
	Use:   "optcalc",
	Short: "American option pricing and outcome probabilities",
}

var priceCmd = &cobra.Command{
	Use:   "price",
	Short: "Price an American option on a CRR lattice and print its Greeks",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := contractFromFlags(cmd)
		if err != nil {
			return err
		}

		start := time.Now()
		p, err := american.NewPricer(c)
		if err != nil {
			return err
		}
		initTime := time.Since(start)
		fmt.Printf("%s %s\n", labelColor("lattice solved in"), timeColor(initTime))

		start = time.Now()
		g, err := p.Greeks()
		if err != nil {
			return err
		}
		days, err := p.ExpiryDays()
		if err != nil {
			return err
		}
		queryTime := time.Since(start)

		fmt.Printf("%s %d steps, %d days\n", labelColor("contract:"), c.Steps, days)
		line("theoretical price", g.TheoreticalPrice)
		line("theoretical price %", g.TheoreticalPricePercent)
		line("delta", g.Delta)
		line("gamma", g.Gamma)
		line("vega", g.Vega)
		line("theta", g.Theta)
		line("rho", g.Rho)
		line("intrinsic value", g.IntrinsicValue)
		line("time value", g.TimeValue)
		line("due profit", g.DueProfit)
		line("current profit", g.CurrentProfit)

		fmt.Printf("%s %s, %s %s\n",
			labelColor("results in"), timeColor(queryTime),
			labelColor("total"), timeColor(initTime+queryTime))
		return nil
	},
}

var probabilityCmd = &cobra.Command{
	Use:   "probability",
	Short: "Fit a log-normal model to a price sample and integrate interval probabilities",
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		sample, _ := flags.GetFloat64Slice("sample")
		price, _ := flags.GetFloat64("price")
		breakpoints, _ := flags.GetFloat64Slice("breakpoints")
		halfWidth, _ := flags.GetInt("half-width")
		step, _ := flags.GetFloat64("step")
		resolution, _ := flags.GetInt("resolution")
		span, _ := flags.GetFloat64("span")
		chartPath, _ := flags.GetString("chart")

		start := time.Now()
		est, err := probability.NewEstimator(sample)
		if err != nil {
			return err
		}
		points, err := est.ProbabilityMap(price, breakpoints, halfWidth, step)
		if err != nil {
			return err
		}
		probs, err := est.IntervalProbability(breakpoints, resolution, span)
		if err != nil {
			return err
		}
		elapsed := time.Since(start)

		fmt.Printf("%s %s (%d map points)\n", labelColor("probability map in"), timeColor(elapsed), len(points))
		line("mean ln(price)", est.Mean())
		line("std dev ln(price)", est.StdDev())
		for i, p := range probs {
			line(fmt.Sprintf("interval %d", i+1), p)
		}
		line("sum", floats.Sum(probs))

		if chartPath != "" {
			if err := writeChart(chartPath, points, breakpoints); err != nil {
				return err
			}
			fmt.Printf("%s %s\n", labelColor("chart written to"), chartPath)
		}
		return nil
	},
}

func writeChart(path string, points []model.Point, breakpoints []float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	o := chart.DefaultOptions()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return chart.WriteHTML(f, points, breakpoints, o)
	case ".png":
		return chart.WritePNG(f, points, breakpoints, o)
	default:
		return fmt.Errorf("unsupported chart extension %q (use .png or .html)", filepath.Ext(path))
	}
}

func contractFromFlags(cmd *cobra.Command) (contract.Option, error) {
	flags := cmd.Flags()
	side, _ := flags.GetString("side")
	startStr, _ := flags.GetString("start")
	endStr, _ := flags.GetString("end")

	var sign int
	switch strings.ToLower(side) {
	case "call", "c", "1", "+1":
		sign = contract.Call
	case "put", "p", "-1":
		sign = contract.Put
	default:
		return contract.Option{}, fmt.Errorf("side must be call or put, got %q", side)
	}

	start, err := contract.ParseDate(startStr)
	if err != nil {
		return contract.Option{}, err
	}
	end, err := contract.ParseDate(endStr)
	if err != nil {
		return contract.Option{}, err
	}

	c := contract.Option{Sign: sign, StartDate: start, EndDate: end}
	c.Steps, _ = flags.GetInt("steps")
	c.AssetPrice, _ = flags.GetFloat64("asset")
	c.ExercisePrice, _ = flags.GetFloat64("strike")
	c.MarketPrice, _ = flags.GetFloat64("market")
	c.Sigma, _ = flags.GetFloat64("sigma")
	c.Rate, _ = flags.GetFloat64("rate")
	c.Dividend, _ = flags.GetFloat64("dividend")
	return c, nil
}

func init() {
	pf := priceCmd.Flags()
	pf.String("side", "put", "Option side: call or put.")
	pf.Int("steps", 2, "Lattice steps N (at least 2).")
	pf.Float64("asset", 3.061, "Underlying price S0.")
	pf.Float64("strike", 3.12, "Exercise price K.")
	pf.Float64("market", -0.0833, "Observed option price; 0 when unknown.")
	pf.String("start", "2019-12-01", "Valuation date, YYYY-MM-DD.")
	pf.String("end", "2020-01-22", "Expiry date, YYYY-MM-DD.")
	pf.Float64("sigma", 0.1105, "Annualized volatility.")
	pf.Float64("rate", 0.0303, "Risk-free rate.")
	pf.Float64("dividend", 0, "Dividend yield.")

	qf := probabilityCmd.Flags()
	qf.Float64Slice("sample", []float64{3, 2, 3, 4, 5, 6, 7, 8, 7}, "Observed prices.")
	qf.Float64("price", 3, "Centre of the probability map.")
	qf.Float64Slice("breakpoints", []float64{4, 6}, "Break-even prices separating the intervals.")
	qf.Int("half-width", probability.DefaultHalfWidth, "Map points either side of the centre.")
	qf.Float64("step", probability.DefaultStep, "Map grid spacing.")
	qf.Int("resolution", probability.DefaultResolution, "Integration grid intervals.")
	qf.Float64("span", probability.DefaultSpan, "Integration half-width in standard deviations.")
	qf.String("chart", "", "Write the probability map to this .png or .html file.")

	rootCmd.AddCommand(priceCmd, probabilityCmd)
}

func main() {
	cobra.CheckErr(rootCmd.Execute())
}
