package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kaishaku/cli/cmd/kaishaku/cli/session"
	"github.com/kaishaku/cli/cmd/kaishaku/cli/settings"
)

// timeLayout formats session timestamps in list output.
const timeLayout = "2006-01-02 15:04:05"

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the active session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, session.Status{}, func(cmd *cobra.Command, res *session.Result) error {
				w := cmd.OutOrStdout()
				writeStatus(w, newOutputStyles(w), res.Status)
				return nil
			})
		},
	}
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List sessions",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, session.List{}, func(cmd *cobra.Command, res *session.Result) error {
				w := cmd.OutOrStdout()
				writeList(w, newOutputStyles(w), res.Entries)
				return nil
			})
		},
	}
}

func orUnknown(v string) string {
	if v == "" {
		return "(unknown)"
	}
	return v
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func writeStatus(w io.Writer, s outputStyles, r *session.StatusReport) {
	if r == nil || r.Session == nil {
		fmt.Fprintln(w, s.render(s.yellow, "No active kaishaku session."))
		return
	}

	fmt.Fprintln(w, s.label("Active session", s.render(s.bold, r.Session.Name)))
	fmt.Fprintln(w, "  "+s.label("Original branch", orUnknown(r.Session.OriginalBranch)))
	fmt.Fprintln(w, "  "+s.label("Session HEAD", orUnknown(r.Session.HeadRef)))
	fmt.Fprintln(w)

	fmt.Fprintln(w, s.sectionRule("Current HEAD"))
	fmt.Fprintln(w, "  "+orUnknown(r.CurrentHead))
	fmt.Fprintln(w)

	fmt.Fprintln(w, s.sectionRule("Uncommitted changes"))
	if len(r.Changes) == 0 {
		fmt.Fprintln(w, "  "+s.render(s.dim, "none"))
	}
	for _, ch := range r.Changes {
		fmt.Fprintln(w, "  "+ch.String())
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, s.sectionRule("Configuration"))
	for _, key := range settings.Keys {
		fmt.Fprintln(w, "  "+s.label(string(key), yesNo(r.Config.Get(key))))
	}
}

func writeList(w io.Writer, s outputStyles, entries []session.ListEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, s.render(s.yellow, "No kaishaku sessions exist."))
		return
	}

	fmt.Fprintln(w, s.render(s.cyan, "kaishaku sessions:"))
	for _, e := range entries {
		marker := "  "
		name := s.render(s.yellow, e.Session.Name)
		if e.Active {
			marker = s.render(s.green, "* ")
			name = s.render(s.green, e.Session.Name)
		}
		fmt.Fprintf(w, "  %s%s\n", marker, name)

		if e.Corrupted {
			fmt.Fprintf(w, "    %s\n", s.render(s.red,
				fmt.Sprintf("Corrupted: missing %s. Use 'kaishaku recover %s' or 'kaishaku clean %s'.",
					strings.Join(e.Session.Missing(), ", "), e.Session.Name, e.Session.Name)))
			continue
		}

		modified := "unknown"
		if !e.Session.LastModified.IsZero() {
			modified = e.Session.LastModified.Local().Format(timeLayout)
		}
		fmt.Fprintln(w, "    "+s.label("Last modified", modified))
		fmt.Fprintln(w, "    "+s.label("Original branch", e.Session.OriginalBranch+missing(s, e.BranchMissing)))
		fmt.Fprintln(w, "    "+s.label("Session HEAD", e.Session.HeadRef+missing(s, e.HeadMissing)))
		if e.NeedsRecovery() {
			fmt.Fprintf(w, "    %s\n", s.render(s.yellow, "Warning: session may be corrupted. Use 'recover' to fix."))
		}
	}
}

func missing(s outputStyles, isMissing bool) string {
	if !isMissing {
		return ""
	}
	return s.render(s.red, " (missing)")
}
