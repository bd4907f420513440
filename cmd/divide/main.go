package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/fair-rent/internal/division"
	"github.com/eugenenazirov/fair-rent/internal/ingest"
	"github.com/eugenenazirov/fair-rent/internal/logging"
	"github.com/eugenenazirov/fair-rent/internal/pricing"
	"github.com/eugenenazirov/fair-rent/internal/problem"
	"github.com/eugenenazirov/fair-rent/internal/solver"
)

type options struct {
	input     string
	houseCost *float64
	method    string
	timeout   time.Duration
	maxRounds int
}

type output struct {
	Method     string      `json:"method"`
	HouseCost  float64     `json:"houseCost"`
	Maxsum     float64     `json:"maxsum"`
	Surplus    float64     `json:"surplus"`
	Total      float64     `json:"total"`
	Allocation []outputRow `json:"allocation"`
	Rounds     int         `json:"rounds,omitempty"`
}

type outputRow struct {
	Resource string   `json:"resource"`
	Unit     string   `json:"unit"`
	Members  []string `json:"members"`
	Bid      float64  `json:"bid"`
	Price    float64  `json:"price"`
}

func main() {
	opts, logLevel, err := parseArgs(os.Args[1:])
	kingpin.FatalIfError(err, "")

	logger, err := logging.New(logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(2)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if err := run(context.Background(), opts, os.Stdout, logger); err != nil {
		fmt.Fprintf(os.Stderr, "divide: %v\n", err)
		os.Exit(1)
	}
}

// parseArgs reads the command line. houseCost stays nil unless --house-cost
// was given, so an explicit 0 still replaces a document's cost.
func parseArgs(args []string) (options, string, error) {
	app := kingpin.New("divide", "Divide rent for one problem file and print the result as JSON")

	var (
		opts         options
		houseCost    float64
		houseCostSet bool
		logLevel     string
	)
	app.Flag("input", "Problem file (.yaml, .yml or .csv)").Short('i').Required().StringVar(&opts.input)
	app.Flag("house-cost", "Total rent; required for CSV input, overrides YAML when set").IsSetByUser(&houseCostSet).Float64Var(&houseCost)
	app.Flag("method", "Pricing method (brams-kilgour, sung-vlach)").Short('m').StringVar(&opts.method)
	app.Flag("timeout", "Deadline for the whole division").Default("30s").DurationVar(&opts.timeout)
	app.Flag("max-rounds", "Round limit for the second-price descent").Default("1000").IntVar(&opts.maxRounds)
	app.Flag("log-level", "Log level (debug, info, warn, error)").Default("warn").StringVar(&logLevel)

	if _, err := app.Parse(args); err != nil {
		return options{}, "", err
	}
	if houseCostSet {
		opts.houseCost = &houseCost
	}
	return opts, logLevel, nil
}

func run(ctx context.Context, opts options, w io.Writer, logger *zap.Logger) error {
	doc, err := ingest.LoadFile(opts.input, opts.houseCost)
	if err != nil {
		return err
	}
	if err := doc.Validate(); err != nil {
		return err
	}

	name := opts.method
	if name == "" {
		name = doc.Method
	}
	method := pricing.SungVlachMethod
	if name != "" {
		if method, err = pricing.ParseMethod(name); err != nil {
			return err
		}
	}

	p, err := problem.New(doc.Input())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	svc := division.New(solver.NewSimplex(),
		division.WithLogger(logger),
		division.WithMaxDescentRounds(opts.maxRounds),
	)
	res, err := svc.Divide(ctx, p, method)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(newOutput(p, res))
}

func newOutput(p *problem.Problem, res *division.Result) output {
	out := output{
		Method:     string(res.Method),
		HouseCost:  p.HouseCost(),
		Maxsum:     res.Assignment.Maxsum,
		Surplus:    res.Assignment.Surplus,
		Total:      res.Allocation.Total,
		Allocation: make([]outputRow, 0, len(res.Allocation.Rows)),
	}
	if res.Trace != nil {
		out.Rounds = len(res.Trace.Rounds)
	}
	for _, row := range res.Allocation.Rows {
		members := make([]string, 0, len(row.Members))
		for _, m := range row.Members {
			members = append(members, string(m))
		}
		out.Allocation = append(out.Allocation, outputRow{
			Resource: string(row.Resource),
			Unit:     string(row.Unit),
			Members:  members,
			Bid:      row.Bid,
			Price:    row.Price,
		})
	}
	return out
}
