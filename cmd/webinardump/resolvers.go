package main

import (
	"github.com/spf13/cobra"

	"github.com/idlesign/webinardump/internal/resolver"
)

func (a *app) resolversCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "resolvers",
		Short: "List available resolvers and their parameters",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			a.printf("Available resolvers:\n")
			for _, name := range resolver.Names() {
				r, err := resolver.New(name)
				if err != nil {
					return err
				}

				a.printf("\n%s (%s)\n", r.Name(), r.Title())
				for _, p := range r.Params() {
					required := ""
					if p.Required {
						required = " (required)"
					}
					a.printf("  --param %s=...  %s%s\n", p.Name, p.Hint, required)
				}
			}
			return nil
		},
	}
}
