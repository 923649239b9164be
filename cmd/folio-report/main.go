// folio-report prints event counts from the analytics query API.
//
//	folio-report -events "User Authenticated,Article Completed" -days 30
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/anamartins/folio/pkg/config"
	"github.com/anamartins/folio/svc/analytics"
)

func main() {
	events := flag.String("events", "", "comma-separated event names; empty means all")
	days := flag.Int("days", 30, "how many days back to count")
	from := flag.String("from", "", "range start (YYYY-MM-DD, overrides -days)")
	to := flag.String("to", "", "range end (YYYY-MM-DD, defaults to now)")
	flag.Parse()

	if err := run(context.Background(), *events, *days, *from, *to); err != nil {
		fmt.Fprintln(os.Stderr, "folio-report:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, events string, days int, fromArg, toArg string) error {
	var cfg analytics.Config
	if err := config.Load(&cfg); err != nil {
		return err
	}

	req := analytics.ReportRequest{To: time.Now()}
	if toArg != "" {
		t, err := time.Parse(time.DateOnly, toArg)
		if err != nil {
			return fmt.Errorf("invalid -to date: %w", err)
		}
		req.To = t
	}
	req.From = req.To.AddDate(0, 0, -days)
	if fromArg != "" {
		t, err := time.Parse(time.DateOnly, fromArg)
		if err != nil {
			return fmt.Errorf("invalid -from date: %w", err)
		}
		req.From = t
	}
	if events != "" {
		for _, name := range strings.Split(events, ",") {
			if name = strings.TrimSpace(name); name != "" {
				req.Events = append(req.Events, name)
			}
		}
	}

	client := analytics.NewReportClient(cfg)
	report, err := client.EventCounts(ctx, req)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(report.Counts))
	for name := range report.Counts {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Printf("Events %s to %s\n\n", req.From.Format(time.DateOnly), req.To.Format(time.DateOnly))
	for _, name := range names {
		fmt.Printf("%8d  %s\n", report.Counts[name], name)
	}
	fmt.Printf("%8d  total\n", report.Total)
	return nil
}
