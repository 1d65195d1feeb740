package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/PentesterFlow/wsprobe/internal/output"
	"github.com/PentesterFlow/wsprobe/internal/session"
)

func runHistory(cmd *cobra.Command, args []string, opts *cliOptions) error {
	if _, err := os.Stat(opts.db); err != nil {
		return fmt.Errorf("no session database at %s: %w", opts.db, err)
	}

	store, err := session.NewBoltStore(opts.db)
	if err != nil {
		return fmt.Errorf("failed to open session database: %w", err)
	}
	defer store.Close()

	out := cmd.OutOrStdout()

	if len(args) == 0 {
		sessions, err := store.List()
		if err != nil {
			return fmt.Errorf("failed to list sessions: %w", err)
		}
		printSessions(out, sessions)
		return nil
	}

	sess, err := store.Get(args[0])
	if err != nil {
		return fmt.Errorf("failed to read session: %w", err)
	}
	if sess == nil {
		return fmt.Errorf("unknown session %s", args[0])
	}

	msgs, err := store.Messages(sess.ID)
	if err != nil {
		return fmt.Errorf("failed to read messages: %w", err)
	}

	fmt.Fprintf(out, "Session:  %s\n", sess.ID)
	fmt.Fprintf(out, "Endpoint: %s\n", sess.Endpoint)
	fmt.Fprintf(out, "Started:  %s\n", sess.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(out, "Duration: %v\n", sess.Duration().Round(time.Millisecond))
	fmt.Fprintf(out, "Outcome:  %s\n", outcome(sess))
	fmt.Fprintln(out)

	if sess.Connected {
		fmt.Fprintln(out, output.ConnectedLine)
	}
	for _, m := range msgs {
		fmt.Fprintf(out, "%s %s\n", output.InboundPrefix, m.String())
	}
	if sess.Error != "" {
		fmt.Fprintf(out, "%s %s\n", output.ErrorPrefix, sess.Error)
	}

	return nil
}

func printSessions(w io.Writer, sessions []*session.Session) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, "No recorded sessions")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tDURATION\tMESSAGES\tOUTCOME\tENDPOINT")
	for _, s := range sessions {
		fmt.Fprintf(tw, "%s\t%s\t%v\t%d\t%s\t%s\n",
			s.ID,
			s.StartedAt.Format(time.RFC3339),
			s.Duration().Round(time.Millisecond),
			s.Messages,
			outcome(s),
			s.Endpoint,
		)
	}
	tw.Flush()
}

func outcome(s *session.Session) string {
	if s.Active() {
		return "active"
	}
	return s.Outcome
}
