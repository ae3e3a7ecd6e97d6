package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/funvibe/formulas/internal/extconfig"
	"github.com/funvibe/formulas/pkg/formula"
)

// options holds the flags shared by every subcommand.
type options struct {
	kind    string
	env     []string
	extFile string
	v1      bool
	verbose bool
	color   bool

	logger *zap.Logger
	engine *formula.Engine
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	rootCmd := &cobra.Command{
		Use:   "formulas",
		Short: "formulas - parse, type-check and compute WD conditions of mathematical formulas",
		Long: `Reads formulas from the arguments, or one per line from standard input,
and parses them as expressions, predicates, assignments or types.
Datatypes are loaded from --ext, or from the nearest formulas.yaml.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.kind, "kind", "k", "predicate", "What the text is: expression, predicate, assignment, type or pattern")
	flags.StringArrayVarP(&opts.env, "env", "e", nil, "Type of a free identifier as name=type (repeatable)")
	flags.StringVar(&opts.extFile, "ext", "", "Datatype definition file (default: nearest formulas.yaml)")
	flags.BoolVar(&opts.v1, "v1", false, "Use the historical notation")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log every stage")

	rootCmd.AddCommand(newParseCmd(opts))
	rootCmd.AddCommand(newCheckCmd(opts))
	rootCmd.AddCommand(newWDCmd(opts))
	rootCmd.AddCommand(newPrintCmd(opts))
	return rootCmd
}

func (o *options) setup(cmd *cobra.Command) error {
	level := zapcore.WarnLevel
	if o.verbose {
		level = zapcore.DebugLevel
	}
	encoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	o.logger = zap.New(zapcore.NewCore(encoder, zapcore.AddSync(cmd.ErrOrStderr()), level))
	o.color = isTerminal(cmd.OutOrStdout())

	var engineOpts []formula.Option
	engineOpts = append(engineOpts, formula.WithLogger(o.logger))
	if o.v1 {
		engineOpts = append(engineOpts, formula.WithVersion(formula.V1))
	}

	path := o.extFile
	if path == "" {
		found, err := extconfig.FindConfig(".")
		if err != nil {
			return err
		}
		path = found
	}
	if path == "" {
		o.engine = formula.NewEngine(engineOpts...)
		return nil
	}
	engine, err := formula.LoadEngine(path, engineOpts...)
	if err != nil {
		o.logger.Error("Failed to load datatype definitions", zap.String("path", path), zap.Error(err))
		return err
	}
	o.engine = engine
	return nil
}

func (o *options) mode() (formula.Mode, error) {
	switch o.kind {
	case "expression", "expr":
		return formula.ModeExpression, nil
	case "predicate", "pred":
		return formula.ModePredicate, nil
	case "assignment", "assign":
		return formula.ModeAssignment, nil
	case "type":
		return formula.ModeType, nil
	case "pattern":
		return formula.ModePredicatePattern, nil
	}
	return 0, fmt.Errorf("unknown kind %q (want expression, predicate, assignment, type or pattern)", o.kind)
}

func (o *options) environment() (*formula.Environment, error) {
	return o.engine.ParseEnvironment(o.env)
}

// inputs returns the formulas given as arguments, or the non-blank lines
// of in.
func inputs(args []string, in io.Reader) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	var out []string
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			out = append(out, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	return out, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
