package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/promptpool/fpo/cmd/fpo-cli/internal/display"
	"github.com/promptpool/fpo/cmd/fpo-cli/internal/runner"
	"github.com/promptpool/fpo/pkg/errors"
	"github.com/promptpool/fpo/pkg/fpo"
)

type runOptions struct {
	configPath     string
	casesPath      string
	iterations     int
	candidateID    string
	noEvolve       bool
	interval       int
	learningRate   float64
	modelCrossover bool
	verbose        bool
}

func NewRunCommand() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run optimization iterations against a case file",
		Long: `Evaluate the registry's candidates against a set of test cases, update
their weights, and commit the result. Iteration numbers continue from the last
committed iteration, so repeated runs keep extending the same history.

Evolution fires on the configured interval unless --no-evolve is set. With
--model-crossover the offspring template is blended by the model instead of
spliced from the parents.`,
		Example: `  # One full-population iteration
  fpo-cli run --cases cases.json

  # Ten iterations against a Parquet case file
  fpo-cli run --cases cases.parquet --iterations 10

  # Score a single candidate without evolving
  fpo-cli run --cases cases.json --candidate 3e7c61f2 --no-evolve

  # Model-assisted crossover with a faster learning rate
  fpo-cli run --cases cases.json --model-crossover --learning-rate 0.5`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			if err := runRun(opts); err != nil {
				fmt.Printf("%sError:%s %v\n", display.ColorRed, display.ColorReset, err)
				os.Exit(1)
			}
		},
	}

	cmd.Flags().StringVar(&opts.casesPath, "cases", "", "Evaluation case file (.json or .parquet)")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "Config file (default: fpo.yaml, .fpo.yaml, ~/.fpo/config.yaml)")
	cmd.Flags().IntVar(&opts.iterations, "iterations", 1, "Number of iterations to run")
	cmd.Flags().StringVar(&opts.candidateID, "candidate", "", "Evaluate only this candidate (default: full population sweep)")
	cmd.Flags().BoolVar(&opts.noEvolve, "no-evolve", false, "Disable the evolution step for this run")
	cmd.Flags().IntVar(&opts.interval, "interval", 0, "Override the evolution interval (0 = use config)")
	cmd.Flags().Float64Var(&opts.learningRate, "learning-rate", 0, "Override the EMA learning rate (0 = use config)")
	cmd.Flags().BoolVar(&opts.modelCrossover, "model-crossover", false, "Blend offspring templates with the model")
	cmd.Flags().BoolVar(&opts.verbose, "verbose", false, "Enable verbose logging")
	_ = cmd.MarkFlagRequired("cases")

	return cmd
}

func runRun(opts runOptions) error {
	if opts.iterations < 1 {
		return fmt.Errorf("--iterations must be at least 1, got %d", opts.iterations)
	}

	cfg, err := runner.LoadConfig(opts.configPath)
	if err != nil {
		return err
	}
	runner.SetupLogging(cfg, opts.verbose)

	cases, err := runner.LoadCases(opts.casesPath)
	if err != nil {
		return err
	}

	evaluator, err := runner.BuildEvaluator(cfg)
	if err != nil {
		return err
	}
	defer runner.CloseEvaluator(evaluator)

	st, err := runner.BuildStore(cfg)
	if err != nil {
		return err
	}

	var engineOpts []fpo.EngineOption
	if opts.modelCrossover {
		rewriter, err := runner.BuildRewriter(cfg)
		if err != nil {
			runner.CloseStore(st)
			return err
		}
		engineOpts = append(engineOpts, fpo.WithRewriter(rewriter))
	}

	engine, err := fpo.NewEngine(st, evaluator, cfg.EngineConfig(), engineOpts...)
	if err != nil {
		runner.CloseStore(st)
		return err
	}
	defer func() { _ = engine.Close() }()

	ctx := context.Background()
	pop, err := engine.LoadRegistry(ctx)
	if err != nil {
		if errors.Code(err) == errors.ResourceNotFound {
			return fmt.Errorf("no registry at %s, run 'fpo-cli seed' first", cfg.Store.Path)
		}
		return err
	}
	start := pop.LastIteration() + 1

	var iterOpts []fpo.IterationOption
	if opts.candidateID != "" {
		iterOpts = append(iterOpts, fpo.WithCandidate(opts.candidateID))
	}
	if opts.noEvolve {
		iterOpts = append(iterOpts, fpo.WithEvolution(false))
	}
	if opts.interval > 0 {
		iterOpts = append(iterOpts, fpo.WithEvolutionInterval(opts.interval))
	}
	if opts.learningRate > 0 {
		iterOpts = append(iterOpts, fpo.WithLearningRate(opts.learningRate))
	}

	fmt.Printf("%s%sRunning %d iteration(s) from iteration %d%s\n",
		display.ColorBold, display.ColorBlue, opts.iterations, start, display.ColorReset)
	fmt.Printf("%sCases:%s %d from %s\n\n", display.ColorCyan, display.ColorReset, len(cases), opts.casesPath)

	for i := 0; i < opts.iterations; i++ {
		result, err := engine.RunIteration(ctx, start+i, cases, iterOpts...)
		if err != nil {
			return err
		}
		fmt.Print(display.FormatIterationResult(result))
	}

	return nil
}
