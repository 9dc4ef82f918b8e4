// Package cmd implements the nextshort command line interface
package cmd

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/nextdhcp/nextshort/core/lease"
	"github.com/nextdhcp/nextshort/core/leasefile"
	"github.com/nextdhcp/nextshort/shortmain"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// NewRootCommand returns the nextshort command. Without a sub command it
// runs the coordinator
func NewRootCommand() *cobra.Command {
	var conf string

	cmd := &cobra.Command{
		Use:           "nextshort",
		Short:         "Short address lease manager for 802.15.4 coordinators",
		Version:       shortmain.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return shortmain.Run(conf)
		},
	}

	cmd.PersistentFlags().StringVar(&conf, "conf", "", "Shortfile to load (default \"Shortfile\", \"-\" reads from stdin)")

	cmd.AddCommand(newValidateCommand(&conf))
	cmd.AddCommand(newLeasesCommand())
	return cmd
}

func newValidateCommand(conf *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Parse the configuration and execute all directives without starting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := shortmain.Validate(*conf); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "configuration is valid")
			return nil
		},
	}
}

func newLeasesCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "leases",
		Short: "Print the leases stored in a lease file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			leases, err := leasefile.ReadFile(file)
			if err != nil {
				return err
			}

			printLeases(cmd.OutOrStdout(), leases, time.Now())
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Path to the lease file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// printLeases writes leases as a table ordered by short address
func printLeases(w io.Writer, leases []lease.Lease, now time.Time) {
	sorted := make([]lease.Lease, len(leases))
	copy(sorted, leases)
	sort.Sort(lease.ByShortAddr(sorted))

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Short Address", "Hardware Address", "Last Seen", "Age"})
	table.SetBorder(false)

	for _, l := range sorted {
		table.Append([]string{
			l.ShortAddr.String(),
			l.HwAddr.String(),
			l.LastSeen.UTC().Format(time.RFC3339),
			humanize.RelTime(l.LastSeen, now, "ago", "from now"),
		})
	}

	table.Render()

	fmt.Fprintf(w, "%d leases\n", len(sorted))
}
