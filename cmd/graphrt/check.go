package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hanpama/graphrt/internal/bootstrap"
)

func newCheckCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate bindings and print the required-selection graph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := loadProject(v)
			if err != nil {
				return err
			}
			defer p.Close()

			svc, err := p.bootstrap(cmd.Context(), nil)
			var verr bootstrap.ValidationError
			if errors.As(err, &verr) {
				printViolations(cmd.OutOrStdout(), verr)
				return fmt.Errorf("bootstrap failed with %d violation(s)", len(verr))
			}
			if err != nil {
				return err
			}
			printGraph(cmd.OutOrStdout(), svc)
			return nil
		},
	}
}

func printViolations(w io.Writer, violations bootstrap.ValidationError) {
	for _, v := range violations {
		if v.Coordinate != "" {
			fmt.Fprintf(w, "%s: %s\n", v.Coordinate, v.Message)
		} else {
			fmt.Fprintln(w, v.Message)
		}
	}
}

// printGraph lists every bound coordinate, dependencies first, with the
// coordinates its required selection depends on.
func printGraph(w io.Writer, svc *bootstrap.Service) {
	for _, c := range svc.Plan.Order() {
		deps := svc.Plan.Dependencies(c)
		if len(deps) == 0 {
			fmt.Fprintln(w, c)
			continue
		}
		names := make([]string, len(deps))
		for i, d := range deps {
			names[i] = d.String()
		}
		fmt.Fprintf(w, "%s -> %s\n", c, strings.Join(names, ", "))
	}
}
