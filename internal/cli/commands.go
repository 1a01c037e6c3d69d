package cli

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"taskflow/internal/backup"
	"taskflow/internal/calendar"
	"taskflow/internal/ics"
	"taskflow/internal/model"
)

func newBackupCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Write one backup file into the backup directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := opts.loadConfig()
			if err != nil {
				return err
			}
			mgr, st, err := openManager(cmd.Context(), conf)
			if err != nil {
				return err
			}
			defer st.Close()

			path, err := backup.New(mgr, conf.Backup.Dir, conf.Backup.Keep).RunOnce()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), path)
			return err
		},
	}
}

func newExportCommand(opts *rootOptions) *cobra.Command {
	var format, output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the collection as a JSON backup or an iCalendar file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format != "json" && format != "ics" {
				return fmt.Errorf("unknown format %q (want json or ics)", format)
			}
			conf, err := opts.loadConfig()
			if err != nil {
				return err
			}
			mgr, st, err := openManager(cmd.Context(), conf)
			if err != nil {
				return err
			}
			defer st.Close()

			w := cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}

			bw := bufio.NewWriter(w)
			if format == "ics" {
				err = ics.Export(bw, mgr.All(), time.Now())
			} else {
				err = mgr.Export(bw)
			}
			if err != nil {
				return err
			}
			return bw.Flush()
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format: json or ics")
	cmd.Flags().StringVarP(&output, "output", "o", "-", "Output file (- for stdout)")
	return cmd
}

func newImportCommand(opts *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import a JSON backup (replacing the collections it contains) or an iCalendar file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format == "" {
				format = "json"
				if strings.HasSuffix(strings.ToLower(args[0]), ".ics") {
					format = "ics"
				}
			}
			if format != "json" && format != "ics" {
				return fmt.Errorf("unknown format %q (want json or ics)", format)
			}

			var data []byte
			var err error
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return err
			}

			conf, err := opts.loadConfig()
			if err != nil {
				return err
			}
			mgr, st, err := openManager(cmd.Context(), conf)
			if err != nil {
				return err
			}
			defer st.Close()

			out := cmd.OutOrStdout()
			if format == "ics" {
				loc, _ := conf.Location()
				sum, err := ics.NewImporter(nil, mgr, loc).ImportBody(cmd.Context(), data)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(out, "imported %d events as %d tasks\n", sum.Created, sum.Tasks)
				return err
			}

			res, err := mgr.Import(cmd.Context(), bytes.NewReader(data))
			if err != nil {
				return err
			}
			if res.TasksReplaced {
				fmt.Fprintf(out, "tasks replaced: %d\n", res.Tasks)
			}
			if res.TagsReplaced {
				fmt.Fprintf(out, "tags replaced: %d\n", res.Tags)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "Input format: json or ics (default from file extension)")
	return cmd
}

func newAgendaCommand(opts *rootOptions) *cobra.Command {
	var view, date string

	cmd := &cobra.Command{
		Use:   "agenda",
		Short: "Print the tasks of a day, week or month grouped by time of day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := calendar.ParseView(view)
			if err != nil {
				return err
			}
			conf, err := opts.loadConfig()
			if err != nil {
				return err
			}

			loc, _ := conf.Location()
			ref := model.DateOf(time.Now().In(loc))
			if date != "" {
				if ref, err = model.ParseDate(date); err != nil {
					return err
				}
			}

			mgr, st, err := openManager(cmd.Context(), conf)
			if err != nil {
				return err
			}
			defer st.Close()

			from, to := calendar.Builder{WeekStart: conf.WeekStartDay()}.Window(v, ref)
			groups := calendar.GroupByPeriod(calendar.NewIndex(mgr.All()).Between(from, to))
			return printAgenda(cmd.OutOrStdout(), from, to, groups)
		},
	}

	cmd.Flags().StringVar(&view, "view", "day", "day, week or month")
	cmd.Flags().StringVar(&date, "date", "", "Reference date YYYY-MM-DD (default today)")
	return cmd
}

func printAgenda(w io.Writer, from, to model.Date, groups []calendar.PeriodGroup) error {
	bw := bufio.NewWriter(w)
	if from == to {
		fmt.Fprintf(bw, "%s\n", from)
	} else {
		fmt.Fprintf(bw, "%s .. %s\n", from, to)
	}
	if len(groups) == 0 {
		fmt.Fprintln(bw, "  no tasks")
	}
	for _, g := range groups {
		fmt.Fprintf(bw, "\n%s\n", strings.ToUpper(string(g.Period)))
		for _, t := range g.Tasks {
			mark := " "
			if t.Completed {
				mark = "x"
			}
			fmt.Fprintf(bw, "  [%s] %s %s %-6s %s\n", mark, t.Date, t.StartTime, t.Priority, t.Title)
		}
	}
	return bw.Flush()
}
