package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/vignesh-goutham/hermes/pkg/app"
	"github.com/vignesh-goutham/hermes/pkg/dynamo"
)

var snapshotsCmd = &cobra.Command{
	Use:   "snapshots",
	Short: "List position snapshots stored in DynamoDB",
	RunE:  runSnapshots,
}

func runSnapshots(cmd *cobra.Command, args []string) error {
	a, err := app.NewAWS(cmd.Context(), cfg, app.ModeSecrets)
	if err != nil {
		return err
	}
	dynamo.InitializeWithConfig(a.AWS)
	dynamo.SetTableName(cfg.DynamoTable)

	snaps, err := dynamo.GetSnapshots(cmd.Context())
	if err != nil {
		return fmt.Errorf("error reading snapshots: %w", err)
	}
	sort.Slice(snaps, func(i, j int) bool {
		if snaps[i].AccountNumber != snaps[j].AccountNumber {
			return snaps[i].AccountNumber < snaps[j].AccountNumber
		}
		return snaps[i].Symbol < snaps[j].Symbol
	})

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ACCOUNT\tSYMBOL\tQUANTITY\tMARKET VALUE\tUNREALIZED P/L\tCAPTURED")
	for _, s := range snaps {
		p, err := s.Position()
		if err != nil {
			return fmt.Errorf("invalid snapshot %s/%s: %w", s.AccountNumber, s.Symbol, err)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", s.AccountNumber, p.Symbol,
			p.Quantity.String(), p.MarketValue.StringFixed(2), p.UnrealizedPL.StringFixed(2),
			s.CapturedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}
