package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	lwerrors "github.com/lockwatch-dev/lockwatch/internal/errors"
)

func explainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "explain [code]",
		Short: "Describe lockwatch error codes",
		Long: `Print the meaning of an error code such as E103, with a hint on how
to fix it. Without a code, list every known code.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				for _, code := range lwerrors.GetAllCodes() {
					tmpl, _ := lwerrors.GetTemplate(code)
					fmt.Fprintf(out, "  %s  %-8s  %s\n", code, tmpl.Category, tmpl.Message)
				}
				return nil
			}

			code := strings.ToUpper(args[0])
			if _, ok := lwerrors.GetTemplate(code); !ok {
				return fmt.Errorf("unknown error code %q", args[0])
			}
			fmt.Fprintln(out, lwerrors.New(code).Format())
			return nil
		},
	}
}
