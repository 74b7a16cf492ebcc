package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/nimeshabuddhika/hosted-checkout-reconciler/pkg/repositories"
	"github.com/nimeshabuddhika/hosted-checkout-reconciler/pkg/views"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func auditCmd(logger *zap.Logger) *cobra.Command {
	var (
		limit  int
		offset int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "List confirmed payments, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 1 || limit > 200 {
				return fmt.Errorf("--limit must be between 1 and 200")
			}
			ctx := cmd.Context()
			db, disconnect, err := openDB(ctx, cmd, logger)
			if err != nil {
				return err
			}
			defer disconnect()

			records, err := repositories.NewAuditRepository().List(ctx, db, limit, offset)
			if err != nil {
				return err
			}
			out := make([]views.AuditRecord, 0, len(records))
			for _, r := range records {
				out = append(out, r.ToView())
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RECORDED AT\tORDER\tRECEIPT")
			for _, r := range out {
				fmt.Fprintf(w, "%s\t%s\t%s\n", r.RecordedAt.Format(time.RFC3339), r.OrderReference, r.ReceiptURL)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "page size (max 200)")
	cmd.Flags().IntVar(&offset, "offset", 0, "records to skip")
	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "print JSON")
	return cmd
}
