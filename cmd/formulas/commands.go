package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/funvibe/formulas/pkg/formula"
)

var errRejected = errors.New("some formulas were rejected")

// each runs fn on every input and reports whether one failed.
func each(cmd *cobra.Command, args []string, fn func(out io.Writer, text string) bool) error {
	texts, err := inputs(args, cmd.InOrStdin())
	if err != nil {
		return err
	}
	failed := false
	for _, text := range texts {
		if !fn(cmd.OutOrStdout(), text) {
			failed = true
		}
	}
	if failed {
		return errRejected
	}
	return nil
}

func newParseCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "parse [formulas...]",
		Short: "Parse formulas and print them back",
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := opts.mode()
			if err != nil {
				return err
			}
			return each(cmd, args, func(out io.Writer, text string) bool {
				res := opts.parse(text, mode)
				printProblems(out, res, opts.color)
				if res.HasErrors() {
					return false
				}
				if mode == formula.ModeType {
					fmt.Fprintln(out, res.Type)
				} else {
					fmt.Fprintln(out, formula.Print(res.Formula))
				}
				return true
			})
		},
	}
}

func newCheckCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "check [formulas...]",
		Short: "Type-check formulas and print the inferred types",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.runChecked(cmd, args, func(out io.Writer, res *formula.Result) {
				fmt.Fprintln(out, formula.PrintWithTypes(res.Formula))
				if res.Inferred != nil && res.Inferred.Len() > 0 {
					fmt.Fprintf(out, "  inferred: %s\n", res.Inferred)
				}
			})
		},
	}
}

func newWDCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "wd [formulas...]",
		Short: "Print the well-definedness condition of formulas",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.runChecked(cmd, args, func(out io.Writer, res *formula.Result) {
				fmt.Fprintln(out, formula.Print(res.WD))
			})
		},
	}
}

func newPrintCmd(opts *options) *cobra.Command {
	var full bool
	cmd := &cobra.Command{
		Use:   "print [formulas...]",
		Short: "Parse formulas and print them fully parenthesized",
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := opts.mode()
			if err != nil {
				return err
			}
			if mode == formula.ModeType {
				return errors.New("print does not apply to types, use parse")
			}
			return each(cmd, args, func(out io.Writer, text string) bool {
				res := opts.parse(text, mode)
				printProblems(out, res, opts.color)
				if res.HasErrors() {
					return false
				}
				if full {
					fmt.Fprintln(out, formula.PrintParenthesized(res.Formula))
				} else {
					fmt.Fprintln(out, formula.Print(res.Formula))
				}
				return true
			})
		},
	}
	cmd.Flags().BoolVar(&full, "full", true, "Parenthesize every compound sub-formula")
	return cmd
}

func (o *options) parse(text string, mode formula.Mode) *formula.Result {
	switch mode {
	case formula.ModeExpression:
		return o.engine.ParseExpression(text)
	case formula.ModeAssignment:
		return o.engine.ParseAssignment(text)
	case formula.ModeType:
		return o.engine.ParseType(text)
	case formula.ModePredicatePattern:
		return o.engine.ParsePredicatePattern(text)
	}
	return o.engine.ParsePredicate(text)
}

// runChecked type-checks every input and calls show on the successes.
func (o *options) runChecked(cmd *cobra.Command, args []string, show func(io.Writer, *formula.Result)) error {
	mode, err := o.mode()
	if err != nil {
		return err
	}
	if mode == formula.ModeType || mode == formula.ModePredicatePattern {
		return fmt.Errorf("%s formulas cannot be type-checked", mode)
	}
	env, err := o.environment()
	if err != nil {
		return err
	}
	return each(cmd, args, func(out io.Writer, text string) bool {
		res := o.engine.Check(text, mode, env)
		printProblems(out, res, o.color)
		if res.HasErrors() {
			return false
		}
		show(out, res)
		return true
	})
}
