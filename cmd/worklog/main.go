package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/zhubert/worklog-core/cli"
	"github.com/zhubert/worklog-core/config"
	"github.com/zhubert/worklog-core/git"
	"github.com/zhubert/worklog-core/identity"
	"github.com/zhubert/worklog-core/logger"
	"github.com/zhubert/worklog-core/recap"
	"github.com/zhubert/worklog-core/summarize"
)

var (
	cfg         *config.Config
	sessionsDir string
)

var rootCmd = &cobra.Command{
	Use:           "worklog",
	Short:         "Analyze agent session logs",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded

		path, err := logger.DefaultLogPath()
		if err == nil {
			if err := logger.Init(path); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
			}
		}
		logger.SetDebug(cfg.Debug)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&sessionsDir, "sessions-dir", "", "override the session log root directory")
	rootCmd.AddCommand(newWhoamiCmd())
	rootCmd.AddCommand(newRecapCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newDoctorCmd())
}

func main() {
	defer logger.Close()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "worklog: %v\n", err)
		os.Exit(1)
	}
}

func sessionRoot() (string, error) {
	if sessionsDir != "" {
		return sessionsDir, nil
	}
	return cfg.ResolveSessionRoot()
}

func newRecapper(root string) *recap.Recapper {
	var summarizer summarize.Summarizer
	switch cfg.Summarizer {
	case config.SummarizerClaude:
		summarizer = summarize.NewClaudeSummarizer()
	default:
		summarizer = summarize.NewStaticSummarizer()
	}

	return recap.NewRecapper(root,
		recap.WithCommitLister(git.NewGitService()),
		recap.WithSummarizer(summarizer),
		recap.WithTitleMaxLen(cfg.TitleMaxLen),
		recap.WithContextWindow(cfg.ContextWindow),
	)
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Print the session id of the current process's session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := sessionRoot()
			if err != nil {
				return err
			}

			// On success only the bare id reaches stdout, so callers can
			// substitute the output directly. Any failure exits non-zero
			// with the step and count that broke resolution.
			id, err := identity.NewResolver(root).Resolve(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
}

func newRecapCmd() *cobra.Command {
	var (
		since      string
		formatFlag string
	)

	cmd := &cobra.Command{
		Use:   "recap",
		Short: "Summarize sessions active in a time window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			window, err := recap.ParseSince(since, time.Now())
			if err != nil {
				return err
			}

			root, err := sessionRoot()
			if err != nil {
				return err
			}

			summaries, err := newRecapper(root).Recap(cmd.Context(), window)
			if err != nil {
				return err
			}

			switch strings.ToLower(formatFlag) {
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(summaries)
			case "text":
				renderSummaries(cmd, summaries)
				return nil
			default:
				return fmt.Errorf("unknown format %q (want text or json)", formatFlag)
			}
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&since, "since", "today", "window start: yesterday, today, week, or YYYY-MM-DD [HH:MM]")
	flags.StringVar(&formatFlag, "format", "text", "output format: text or json")

	return cmd
}

func newStatsCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "stats [session-id]",
		Short: "Show aggregate statistics for one session",
		Long: "Show aggregate statistics for one session. With no argument the " +
			"session is resolved from the calling process's environment.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := sessionRoot()
			if err != nil {
				return err
			}

			var id string
			if len(args) == 1 {
				id = args[0]
			} else {
				id, err = identity.NewResolver(root).Resolve(cmd.Context())
				if err != nil {
					return err
				}
			}

			summary, err := newRecapper(root).RecapSession(cmd.Context(), id)
			if err != nil {
				return err
			}

			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(summary)
			}
			renderSummaries(cmd, []recap.Summary{*summary})
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit JSON instead of text")
	return cmd
}

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check optional CLI tools worklog can use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			results := cli.CheckAll(cli.DefaultPrerequisites())
			fmt.Fprint(cmd.OutOrStdout(), cli.FormatCheckResults(results))
			return cli.ValidateRequired(cli.DefaultPrerequisites())
		},
	}
}

func renderSummaries(cmd *cobra.Command, summaries []recap.Summary) {
	out := cmd.OutOrStdout()

	if len(summaries) == 0 {
		fmt.Fprintln(out, "No sessions in window.")
		return
	}

	for i, s := range summaries {
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "%s\n", s.DisplayName())
		fmt.Fprintf(out, "  id:       %s\n", s.ID)
		if s.CWD != "" {
			fmt.Fprintf(out, "  cwd:      %s\n", recap.HomeRelative(s.CWD))
		}
		fmt.Fprintf(out, "  span:     %s – %s (%s)\n",
			s.Start.Local().Format("2006-01-02 15:04"),
			s.End.Local().Format("15:04"),
			formatDuration(s.DurationSeconds))
		fmt.Fprintf(out, "  activity: %d messages, %d tool calls\n", s.UserMessages, s.ToolCalls)
		fmt.Fprintf(out, "  context:  %.0f%% used, %d rot / %d smash crossings\n",
			s.TokenRatioEnd*100, s.RotCrossings, s.SmashCrossings)
		if s.Warnings > 0 {
			fmt.Fprintf(out, "  warnings: %d corrupt log lines skipped\n", s.Warnings)
		}
		for _, point := range s.DiscussionPoints {
			fmt.Fprintf(out, "  - %s\n", point)
		}
		for _, c := range s.Commits {
			sha := c.SHA
			if len(sha) > 8 {
				sha = sha[:8]
			}
			fmt.Fprintf(out, "  * %s %s\n", sha, c.Message)
		}
	}
}

func formatDuration(seconds int) string {
	d := time.Duration(seconds) * time.Second
	if d < time.Minute {
		return fmt.Sprintf("%ds", seconds)
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
}
