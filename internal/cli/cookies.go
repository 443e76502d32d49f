package cli

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func (a *app) cookiesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cookies",
		Short: "Inspect or clear the persistent cookie document",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "Print every stored cookie",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				store, err := a.openCookies()
				if err != nil {
					return err
				}

				tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "URI\tNAME\tVALUE\tDOMAIN\tPATH\tMAX-AGE")
				for _, uri := range store.URIs() {
					for _, rec := range store.Get(uri) {
						maxAge := "session"
						if rec.MaxAge >= 0 {
							maxAge = strconv.FormatInt(rec.MaxAge, 10)
						}
						fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
							uri, rec.Name, rec.Value, rec.DomainOrEmpty(), rec.PathOrRoot(), maxAge)
					}
				}

				return tw.Flush()
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Remove every stored cookie",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				store, err := a.openCookies()
				if err != nil {
					return err
				}

				store.RemoveAll()

				return store.Save()
			},
		},
	)

	return cmd
}

func (a *app) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration commands",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return a.cfg.Write(a.stdout)
		},
	})

	return cmd
}
