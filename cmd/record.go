package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/example/studylog/internal/points"
	"github.com/example/studylog/internal/records"
	"github.com/spf13/cobra"
)

func newRecordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Manage study records (non-UI)",
	}
	cmd.AddCommand(newRecordSetCmd())
	cmd.AddCommand(newRecordListCmd())
	return cmd
}

func newRecordSetCmd() *cobra.Command {
	var (
		userID  int64
		date    string
		hours   string
		minutes string
	)

	c := &cobra.Command{
		Use:   "set",
		Short: "Set the minutes studied on a date, replacing any earlier entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			total, err := records.ParseDuration(hours, minutes)
			if err != nil {
				return err
			}
			if date == "" {
				date = time.Now().AddDate(0, 0, -1).Format(records.DateLayout)
			}

			ctx := cmd.Context()
			d, _, err := openStore(ctx, "cli")
			if err != nil {
				return err
			}
			defer d.Close()

			if err := records.NewRepo(d).Upsert(ctx, userID, date, total); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user=%d date=%s minutes=%d points=%d\n", userID, date, total, points.Calc(total))
			return nil
		},
	}

	c.Flags().Int64Var(&userID, "user-id", 0, "user id (from DB)")
	c.Flags().StringVar(&date, "date", "", "date YYYY-MM-DD (default yesterday)")
	c.Flags().StringVar(&hours, "hours", "", "whole hours")
	c.Flags().StringVar(&minutes, "minutes", "", "whole minutes")
	_ = c.MarkFlagRequired("user-id")
	return c
}

func newRecordListCmd() *cobra.Command {
	var userID int64
	c := &cobra.Command{
		Use:   "list",
		Short: "List a user's records with their points",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			d, _, err := openStore(ctx, "cli")
			if err != nil {
				return err
			}
			defer d.Close()

			recs, err := records.NewRepo(d).ListByUser(ctx, userID)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "DATE\tMINUTES\tPOINTS")
			mins := make([]int, 0, len(recs))
			for _, r := range recs {
				fmt.Fprintf(tw, "%s\t%d\t%d\n", r.Date, r.Minutes, points.Calc(r.Minutes))
				mins = append(mins, r.Minutes)
			}
			fmt.Fprintf(tw, "TOTAL\t\t%d\n", points.Sum(mins...))
			return tw.Flush()
		},
	}
	c.Flags().Int64Var(&userID, "user-id", 0, "user id")
	_ = c.MarkFlagRequired("user-id")
	return c
}
