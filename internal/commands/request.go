package commands

import (
	"github.com/spf13/cobra"

	"github.com/odyssey-erp/glengine/internal/tbreport"
)

// bindRequestFlags registers the report selection flags on cmd.
func bindRequestFlags(cmd *cobra.Command, req *tbreport.Request) {
	flags := cmd.Flags()
	flags.Int64Var(&req.CompanyID, "company", 0, "company id (0 reports across all companies)")
	flags.StringVar(&req.StartAccount, "from-account", "", "first account code (required)")
	flags.StringVar(&req.EndAccount, "to-account", "", "last account code (required)")
	flags.StringVar(&req.StartDate, "from", "", "period start, YYYY-MM-DD (required)")
	flags.StringVar(&req.EndDate, "to", "", "period end, YYYY-MM-DD (required)")
	flags.StringVar(&req.FSFilter, "fs", "ALL", "account filter: ALL, ACT, BS or IS")
	flags.StringVar(&req.Format, "format", "xlsx", "output format: xlsx, csv or pdf")
	flags.StringVar(&req.RequestedBy, "requested-by", "", "who asked for the report")
	for _, name := range []string{"from-account", "to-account", "from", "to"} {
		_ = cmd.MarkFlagRequired(name)
	}
}
