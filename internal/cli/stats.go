package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/blogstore/internal/analytics"
	"github.com/roach88/blogstore/internal/model"
)

// StatsOptions holds flags shared by the stats subcommands.
type StatsOptions struct {
	*RootOptions
	Type string
}

// HourlyResult is the output of stats hourly.
type HourlyResult struct {
	Date  string  `json:"date"`
	Type  string  `json:"type"`
	Hours []int64 `json:"hours"`
}

// DailyResult is the output of stats daily.
type DailyResult struct {
	From string             `json:"from"`
	To   string             `json:"to"`
	Type string             `json:"type"`
	Days []model.DailyTotal `json:"days"`
}

// WeeklyResult is the output of stats weekly. Averages are indexed by
// weekday, Sunday first.
type WeeklyResult struct {
	Days     int       `json:"days"`
	Type     string    `json:"type"`
	Averages []float64 `json:"averages"`
}

var weekdayNames = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// NewStatsCommand creates the stats command and its subcommands.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize the analytics log",
		Long: `Summarize the analytics event log. All days are UTC calendar days.

--type selects one event type; it defaults to analytics.default_type from
the configuration, and --type "" counts every type.`,
	}
	cmd.PersistentFlags().StringVar(&opts.Type, "type", "", "event type (default from config; \"\" for all types)")

	cmd.AddCommand(newStatsHourlyCommand(opts))
	cmd.AddCommand(newStatsDailyCommand(opts))
	cmd.AddCommand(newStatsWeeklyCommand(opts))
	cmd.AddCommand(newStatsMarkersCommand(opts))
	cmd.AddCommand(newStatsEventsCommand(opts))

	return cmd
}

// eventType resolves --type against the configured default.
func (o *StatsOptions) eventType(cmd *cobra.Command, a *app) string {
	if cmd.Flags().Changed("type") {
		return o.Type
	}
	return a.cfg.Analytics.DefaultType
}

func newAggregator(a *app) *analytics.Aggregator {
	return analytics.NewAggregator(a.backend, a.clock)
}

func newStatsHourlyCommand(opts *StatsOptions) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "hourly",
		Short: "Events per UTC hour for one day",
		Example: `  blogstore stats hourly --date 2024-01-01
  blogstore stats hourly --type login`,
		Args: cobra.NoArgs,
		RunE: runE(opts.RootOptions, func(cmd *cobra.Command, args []string) error {
			a, err := openStore(cmd, opts.RootOptions)
			if err != nil {
				return err
			}
			defer a.Close()

			if date == "" {
				date = a.clock.Now().UTC().Format(time.DateOnly)
			}
			eventType := opts.eventType(cmd, a)

			hours, err := newAggregator(a).Hourly(commandContext(cmd), date, eventType)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to aggregate", err)
			}

			day, _ := analytics.ParseDay(date)
			result := HourlyResult{Date: day.Format(time.DateOnly), Type: eventType, Hours: hours}
			return a.out.Success(result, func(w io.Writer) {
				fmt.Fprintf(w, "%s (%s)\n", result.Date, typeLabel(eventType))
				for h, n := range result.Hours {
					fmt.Fprintf(w, "  %02d:00  %d\n", h, n)
				}
			})
		}),
	}
	cmd.Flags().StringVar(&date, "date", "", "UTC day, YYYY-MM-DD (default today)")
	return cmd
}

func newStatsDailyCommand(opts *StatsOptions) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:     "daily",
		Short:   "Events per UTC day over an inclusive range",
		Example: `  blogstore stats daily --from 2024-01-01 --to 2024-01-31`,
		Args:    cobra.NoArgs,
		RunE: runE(opts.RootOptions, func(cmd *cobra.Command, args []string) error {
			a, err := openStore(cmd, opts.RootOptions)
			if err != nil {
				return err
			}
			defer a.Close()

			eventType := opts.eventType(cmd, a)
			days, err := newAggregator(a).DailyTotals(commandContext(cmd), from, to, eventType)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to aggregate", err)
			}

			result := DailyResult{From: from, To: to, Type: eventType, Days: days}
			return a.out.Success(result, func(w io.Writer) {
				fmt.Fprintf(w, "%s to %s (%s)\n", from, to, typeLabel(eventType))
				if len(days) == 0 {
					fmt.Fprintln(w, "  no events")
				}
				for _, d := range days {
					fmt.Fprintf(w, "  %s  %d\n", d.Date, d.Count)
				}
			})
		}),
	}
	cmd.Flags().StringVar(&from, "from", "", "first UTC day, YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&to, "to", "", "last UTC day, inclusive (required)")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newStatsWeeklyCommand(opts *StatsOptions) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "weekly",
		Short: "Average events per weekday over the trailing days",
		Example: `  blogstore stats weekly
  blogstore stats weekly --days 56 --type ""`,
		Args: cobra.NoArgs,
		RunE: runE(opts.RootOptions, func(cmd *cobra.Command, args []string) error {
			a, err := openStore(cmd, opts.RootOptions)
			if err != nil {
				return err
			}
			defer a.Close()

			if !cmd.Flags().Changed("days") {
				days = a.cfg.Analytics.WeeklyDays
			}
			eventType := opts.eventType(cmd, a)

			averages, err := newAggregator(a).WeeklyAverages(commandContext(cmd), days, eventType)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to aggregate", err)
			}
			if days <= 0 {
				days = analytics.DefaultWeeklyDays
			}

			result := WeeklyResult{Days: days, Type: eventType, Averages: averages}
			return a.out.Success(result, func(w io.Writer) {
				fmt.Fprintf(w, "Last %d days (%s)\n", days, typeLabel(eventType))
				for i, avg := range averages {
					fmt.Fprintf(w, "  %s  %.2f\n", weekdayNames[i], avg)
				}
			})
		}),
	}
	cmd.Flags().IntVar(&days, "days", analytics.DefaultWeeklyDays, "trailing window in days, today included")
	return cmd
}

func newStatsMarkersCommand(opts *StatsOptions) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:     "markers",
		Short:   "List release markers",
		Example: `  blogstore stats markers --path ./version_releases.json`,
		Args:    cobra.NoArgs,
		RunE: runE(opts.RootOptions, func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd, opts.RootOptions)
			if err != nil {
				return err
			}
			if path == "" {
				path = cfg.Analytics.MarkersPath
			}

			markers, err := analytics.ReadVersionMarkers(path)
			if err != nil {
				logger.Warn("version markers unavailable", "path", path, "error", err)
				markers = []model.VersionMarker{}
			}

			return newFormatter(cmd, opts.RootOptions).Success(markers, func(w io.Writer) {
				if len(markers) == 0 {
					fmt.Fprintln(w, "No version markers")
				}
				for _, m := range markers {
					fmt.Fprintf(w, "%-12s %s\n", m.Version, m.Timestamp.Format(time.RFC3339))
				}
			})
		}),
	}
	cmd.Flags().StringVar(&path, "path", "", "markers file, JSON or YAML (default from config)")
	return cmd
}

func newStatsEventsCommand(opts *StatsOptions) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:     "events",
		Short:   "List raw events over an inclusive range of UTC days",
		Example: `  blogstore stats events --from 2024-01-01 --to 2024-01-01`,
		Args:    cobra.NoArgs,
		RunE: runE(opts.RootOptions, func(cmd *cobra.Command, args []string) error {
			start, err := analytics.ParseDay(from)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid --from", err)
			}
			end, err := analytics.ParseDay(to)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid --to", err)
			}
			if end.Before(start) {
				return WrapExitError(ExitCommandError, "invalid range", analytics.ErrInvalidRange)
			}

			a, err := openStore(cmd, opts.RootOptions)
			if err != nil {
				return err
			}
			defer a.Close()

			events, err := a.backend.LoadEvents(commandContext(cmd), start, end.AddDate(0, 0, 1))
			if err != nil {
				return WrapExitError(ExitFailure, "failed to load events", err)
			}
			if cmd.Flags().Changed("type") {
				events = filterEvents(events, opts.Type)
			}

			return a.out.Success(events, func(w io.Writer) {
				if len(events) == 0 {
					fmt.Fprintln(w, "No events")
				}
				for _, ev := range events {
					meta, _ := json.Marshal(ev.Metadata)
					fmt.Fprintf(w, "%s  %-10s %s %s\n", ev.Timestamp.Format(time.RFC3339Nano), ev.Type, ev.ID, meta)
				}
			})
		}),
	}
	cmd.Flags().StringVar(&from, "from", "", "first UTC day, YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&to, "to", "", "last UTC day, inclusive (required)")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func filterEvents(events []model.Event, eventType string) []model.Event {
	if eventType == "" {
		return events
	}
	out := make([]model.Event, 0, len(events))
	for _, ev := range events {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

func typeLabel(eventType string) string {
	if eventType == "" {
		return "all types"
	}
	return eventType
}
