package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/lcalzada-xor/jstaint/pkg/config"
	"github.com/lcalzada-xor/jstaint/pkg/runner"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	flags := config.BuildFlagSet("jstaint", config.GlobalFlagDefs...)

	cmd := &cobra.Command{
		Use:   "jstaint [files...]",
		Short: "Intraprocedural must/may taint analysis for JavaScript",
		Long: `jstaint reports, per function, the variables filled by an argument-less
source call (retSource() by default) that reach a sink call (sink(x) by default)
on every path (must) or on some path (may).

Inputs are JavaScript files or HTML pages whose inline scripts are analysed.
With no files, the program is read from stdin.`,
		Version:      config.Version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Load(v); err != nil {
				return err
			}
			options := runner.OptionsFromViper(v)
			options.Color = options.OutputFile == "" && isTerminal(os.Stdout)

			r, err := runner.NewRunner(options, nil)
			if err != nil {
				return err
			}
			defer r.Close()

			inputs, err := runner.InputsFromArgs(args, cmd.InOrStdin())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			doc, runErr := r.Run(ctx, inputs)
			if doc.Results == nil {
				return runErr
			}
			if err := r.Emit(doc, cmd.OutOrStdout()); err != nil {
				return err
			}
			return runErr
		},
	}
	cmd.Flags().AddFlagSet(flags)
	if err := config.Bind(v, flags, config.GlobalFlagDefs...); err != nil {
		panic(fmt.Errorf("failed to bind global flags: %w", err))
	}
	return cmd
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
