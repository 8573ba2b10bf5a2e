package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/vgadepth/internal/config"
	"github.com/matzehuels/vgadepth/pkg/depth"
	vgaerrors "github.com/matzehuels/vgadepth/pkg/errors"
	"github.com/matzehuels/vgadepth/pkg/persist"
	"github.com/matzehuels/vgadepth/pkg/persist/mongo"
	"github.com/matzehuels/vgadepth/pkg/persist/postgres"
	"github.com/matzehuels/vgadepth/pkg/persist/sqlite"
	"github.com/matzehuels/vgadepth/pkg/pipeline"
	"github.com/matzehuels/vgadepth/pkg/selection"
)

// stepDepthFlags holds the command-line flags for the stepdepth command.
type stepDepthFlags struct {
	graph      string   // visibility graph JSON
	points     []string // inline "x,y" origins
	pointsFile string   // delimited file with x and y columns
	delimiter  string   // points file delimiter; empty uses config
	stepType   string   // angular, metric or visual
	column     string   // output column name; empty derives from type
	checkEvery int      // settlements between progress/cancel checks
	refresh    bool     // recompute even on a cache hit
	noCache    bool     // disable the result cache entirely
	outputs    []string // .json or .csv files
	sqlitePath string
	pgDSN      string
	mongoURI   string
	summary    bool // print column statistics
}

// stepDepthCommand creates the stepdepth command.
func (c *CLI) stepDepthCommand() *cobra.Command {
	var f stepDepthFlags

	cmd := &cobra.Command{
		Use:   "stepdepth",
		Short: "Compute step depth from origin points",
		Long: `Compute step depth from a set of origin points over a visibility graph.

Origins are given inline with --point (repeatable) or read from a delimited
file with --points-file whose header names the x and y columns. Every point
must lie inside the graph's region.

Step types:
  visual   number of visibility steps (column "Visual Step Depth")
  metric   shortest path length (column "Metric Step Shortest-Path Length")
  angular  accumulated turn angle (column "Angular Step Depth")

The column can be written to JSON or CSV files (-o) and to SQLite, PostgreSQL
or MongoDB. Results are cached by graph content, step type and origins.`,
		Example: `  vgadepth stepdepth -g floor.json -p 1.5,2.5 -t visual -o depth.csv
  vgadepth stepdepth -g floor.json -f entrances.tsv -t angular --sqlite vga.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("check-every") {
				f.checkEvery = c.Config.Analysis.CheckEvery
			}
			return c.runStepDepth(cmd.Context(), f)
		},
	}

	cmd.Flags().StringVarP(&f.graph, "graph", "g", "", "visibility graph JSON file")
	cmd.Flags().StringArrayVarP(&f.points, "point", "p", nil, `origin point "x,y" (repeatable)`)
	cmd.Flags().StringVarP(&f.pointsFile, "points-file", "f", "", "file of origin points with x and y columns")
	cmd.Flags().StringVar(&f.delimiter, "delimiter", "", `points file delimiter (default from config, "tab")`)
	cmd.Flags().StringVarP(&f.stepType, "type", "t", "", "step type: angular, metric, visual")
	cmd.Flags().StringVar(&f.column, "column", "", "output column name (default derives from --type)")
	cmd.Flags().IntVar(&f.checkEvery, "check-every", depth.DefaultCheckEvery, "settlements between progress and cancellation checks")
	cmd.Flags().BoolVar(&f.refresh, "refresh", false, "recompute even if a cached result exists")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable caching")
	cmd.Flags().StringArrayVarP(&f.outputs, "output", "o", nil, "write the column to a .json or .csv file (repeatable)")
	cmd.Flags().StringVar(&f.sqlitePath, "sqlite", "", "write the column to a SQLite database")
	cmd.Flags().StringVar(&f.pgDSN, "postgres", "", "write the column to PostgreSQL (DSN)")
	cmd.Flags().StringVar(&f.mongoURI, "mongo", "", "write the column to MongoDB (URI)")
	cmd.Flags().BoolVar(&f.summary, "summary", true, "print column statistics")

	return cmd
}

// options validates the flags and converts them to pipeline options.
func (f stepDepthFlags) options(cfg *config.Config) (pipeline.Options, error) {
	if f.graph == "" {
		return pipeline.Options{}, vgaerrors.New(vgaerrors.ErrCodeRequiredArgument, "--graph must be provided")
	}
	if len(f.points) > 0 && f.pointsFile != "" {
		return pipeline.Options{}, vgaerrors.New(vgaerrors.ErrCodeInvalidArgument, "--point cannot be used together with --points-file")
	}
	if len(f.points) == 0 && f.pointsFile == "" {
		return pipeline.Options{}, vgaerrors.New(vgaerrors.ErrCodeRequiredArgument, "--point or --points-file must be provided")
	}

	opts := pipeline.Options{
		GraphPath:  f.graph,
		PointsFile: f.pointsFile,
		Type:       f.stepType,
		Column:     f.column,
		CheckEvery: f.checkEvery,
		Refresh:    f.refresh,
		MaxCells:   cfg.Analysis.MaxCells,
	}
	if len(f.points) > 0 {
		pts, err := selection.ParseInline(f.points)
		if err != nil {
			return pipeline.Options{}, err
		}
		opts.Points = pts
	}

	var err error
	if f.delimiter != "" {
		opts.Delimiter, err = config.ParseDelimiter(f.delimiter)
	} else {
		opts.Delimiter, err = cfg.Analysis.DelimiterRune()
	}
	if err != nil {
		return pipeline.Options{}, err
	}
	return opts, nil
}

func (c *CLI) runStepDepth(ctx context.Context, f stepDepthFlags) error {
	opts, err := f.options(c.Config)
	if err != nil {
		return err
	}
	// Fail on a bad type before any file is touched.
	if _, err := depth.ParseModel(opts.Type); err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, f.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	sinks, err := c.openSinks(ctx, f)
	if err != nil {
		return err
	}
	defer sinks.close(context.WithoutCancel(ctx))

	logger := loggerFromContext(ctx)
	opts.Logger = logger

	spinner := newSpinnerWithContext(ctx, "Calculating step-depth")
	opts.Progress = spinner

	var res *pipeline.Result
	err = timed(logger, "Calculating step-depth", func() error {
		spinner.Start()
		var err error
		res, err = runner.Execute(ctx, opts)
		return err
	})
	if err != nil {
		if errors.Is(err, depth.ErrCancelled) {
			spinner.Stop()
			return err
		}
		spinner.StopWithError("Step depth failed")
		return err
	}
	spinner.Stop()

	if len(sinks.sinks) > 0 {
		err = timed(logger, "Writing graph", func() error {
			return runner.Persist(ctx, res, sinks.sinks...)
		})
		if err != nil {
			return err
		}
	}

	printSuccess("Step depth complete (%s)", res.Depth.Model)
	for _, name := range sinks.names {
		printFile(name)
	}
	printStats(res.Stats.Cells, res.Stats.Edges, res.Stats.Origins, res.CacheHit)
	sum, err := res.Summary()
	if err != nil {
		return err
	}
	if f.summary {
		printSummary(sum)
	}
	if sum.Undefined > 0 {
		printWarning("%d cells are unreachable from the origins", sum.Undefined)
	}
	if len(sinks.sinks) == 0 {
		printNextStep("Write the column", appName+" stepdepth ... -o depth.csv")
	}
	return nil
}

// =============================================================================
// Sinks
// =============================================================================

type sinkSet struct {
	sinks   []persist.Sink
	names   []string
	closers []func(context.Context) error
}

func (s *sinkSet) add(sink persist.Sink, name string) {
	s.sinks = append(s.sinks, sink)
	s.names = append(s.names, name)
}

func (s *sinkSet) close(ctx context.Context) {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i](ctx)
	}
}

// openSinks builds the sinks named by flags, falling back to the
// configured database sinks. On error, sinks already opened are closed.
func (c *CLI) openSinks(ctx context.Context, f stepDepthFlags) (_ *sinkSet, err error) {
	set := &sinkSet{}
	defer func() {
		if err != nil {
			set.close(ctx)
		}
	}()

	for _, path := range f.outputs {
		sink, err := fileSink(path)
		if err != nil {
			return nil, err
		}
		set.add(sink, path)
	}

	persistCfg := c.Config.Persist
	sqlitePath := firstNonEmpty(f.sqlitePath, persistCfg.SQLitePath)
	if sqlitePath != "" {
		store, err := sqlite.Open(sqlitePath)
		if err != nil {
			return nil, vgaerrors.Wrap(vgaerrors.ErrCodeStorage, err, "open sqlite %s", sqlitePath)
		}
		set.closers = append(set.closers, func(context.Context) error { return store.Close() })
		set.add(store, "sqlite:"+sqlitePath)
	}

	if dsn := firstNonEmpty(f.pgDSN, persistCfg.PostgresDSN); dsn != "" {
		store, err := postgres.Open(ctx, dsn)
		if err != nil {
			return nil, vgaerrors.Wrap(vgaerrors.ErrCodeStorage, err, "connect postgres")
		}
		set.closers = append(set.closers, func(context.Context) error { return store.Close() })
		set.add(store, "postgres")
	}

	if uri := firstNonEmpty(f.mongoURI, persistCfg.MongoURI); uri != "" {
		store, err := mongo.ConnectCollection(ctx, uri, persistCfg.MongoDatabase, persistCfg.MongoCollection)
		if err != nil {
			return nil, vgaerrors.Wrap(vgaerrors.ErrCodeStorage, err, "connect mongo")
		}
		set.closers = append(set.closers, store.Close)
		if err := store.EnsureIndexes(ctx); err != nil {
			return nil, vgaerrors.Wrap(vgaerrors.ErrCodeStorage, err, "mongo indexes")
		}
		set.add(store, "mongo")
	}
	return set, nil
}

// fileSink picks the file format from the extension.
func fileSink(path string) (persist.Sink, error) {
	if err := vgaerrors.ValidatePath(path); err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return persist.NewJSONFile(path), nil
	case ".csv":
		return persist.NewCSVFile(path), nil
	}
	return nil, vgaerrors.New(vgaerrors.ErrCodeInvalidArgument, "unsupported output %s (want .json or .csv)", path)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
