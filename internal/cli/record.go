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

// RecordOptions holds flags for the record command.
type RecordOptions struct {
	*RootOptions
	At   string
	Meta map[string]string
}

// NewRecordCommand creates the record command.
func NewRecordCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RecordOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "record [type]",
		Short: "Append one analytics event",
		Long: `Append one event to the analytics log and print it.

The type defaults to "event" and the timestamp to now. Metadata values are
stored as strings.

Example:
  blogstore record visit
  blogstore record login --meta username=alice
  blogstore record visit --at 2024-01-01T10:00:00Z`,
		Args: cobra.MaximumNArgs(1),
		RunE: runE(rootOpts, func(cmd *cobra.Command, args []string) error {
			return runRecord(opts, cmd, args)
		}),
	}

	cmd.Flags().StringVar(&opts.At, "at", "", "event time (RFC 3339, default now)")
	cmd.Flags().StringToStringVar(&opts.Meta, "meta", nil, "metadata key=value pairs")

	return cmd
}

func runRecord(opts *RecordOptions, cmd *cobra.Command, args []string) error {
	ev := model.Event{Metadata: map[string]any{}}
	if len(args) == 1 {
		ev.Type = args[0]
	}
	if opts.At != "" {
		at, err := time.Parse(time.RFC3339Nano, opts.At)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --at", err)
		}
		ev.Timestamp = at
	}
	for k, v := range opts.Meta {
		ev.Metadata[k] = v
	}

	a, err := openStore(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer a.Close()

	rec := analytics.NewRecorder(a.backend, analytics.RecorderOptions{
		QueueSize:       a.cfg.Analytics.QueueSize,
		Workers:         a.cfg.Analytics.Workers,
		RetryMaxElapsed: a.cfg.Analytics.RetryMaxElapsed,
		Logger:          a.logger,
		Registerer:      a.registerer,
		Clock:           a.clock,
		NewID:           opts.NewID,
	})
	defer rec.Close(commandContext(cmd))

	ev, err = rec.RecordSync(commandContext(cmd), ev)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to record event", err)
	}

	return a.out.Success(ev, func(w io.Writer) {
		meta, _ := json.Marshal(ev.Metadata)
		fmt.Fprintf(w, "Recorded %s %s at %s %s\n", ev.Type, ev.ID, ev.Timestamp.Format(time.RFC3339Nano), meta)
	})
}
