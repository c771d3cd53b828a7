package main

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/floqtt/floq-cli/floq"
	"github.com/floqtt/floq-cli/session"
	"github.com/floqtt/floq-cli/tui"
)

const defaultHours = 7.5

func newLoginCommand(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to Floq with your browser",
		Long: "Log in to Floq. A stored login is reused or refreshed; otherwise a link is " +
			"printed that completes the login in your browser.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.cfg.requireClient(); err != nil {
				return err
			}
			return withDisplayer(func(d tui.Displayer) error {
				resolver := a.resolver(d)

				var (
					user *session.User
					err  error
				)
				if force {
					user, err = resolver.Login(cmd.Context())
				} else {
					user, err = resolver.Resolve(cmd.Context())
				}
				if err != nil {
					return err
				}

				d.Done(user.Name, user.Email, user.EmployeeID, time.Until(user.AccessTokenExpires))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Log in again even if a valid login is stored")
	return cmd
}

func newLogoutCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored login",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d := tui.NewPlainDisplayer(cmd.ErrOrStderr())
			return session.NewResolver(a.store, nil, nil, session.WithDisplayer(d)).Logout()
		},
	}
}

func newWhoAmICommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show who you are logged in as",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, err := a.currentUser(cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Name:          %s\n", user.Name)
			fmt.Fprintf(out, "Email:         %s\n", user.Email)
			fmt.Fprintf(out, "Employee ID:   %d\n", user.EmployeeID)
			fmt.Fprintf(out, "Login expires: %s\n", user.AccessTokenExpires.Local().Format(time.RFC3339))
			return nil
		},
	}
}

func newProjectsCommand(a *app) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:     "projects",
		Aliases: []string{"prosjekter"},
		Short:   "List the projects you have tracked time on lately",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, err := a.currentUser(cmd)
			if err != nil {
				return err
			}
			client := a.api.ForEmployee(user.Credentials())

			var projects []floq.Project
			if all {
				projects, err = client.Projects(cmd.Context())
			} else {
				projects, err = client.ProjectsForEmployee(cmd.Context(), time.Now())
			}
			if err != nil {
				return err
			}

			if len(projects) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No projects found.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), projectsTable(projects))
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "List every project, not only your recent ones")
	return cmd
}

func projectsTable(projects []floq.Project) string {
	sorted := append([]floq.Project(nil), projects...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	rows := make([][]string, 0, len(sorted))
	for _, p := range sorted {
		name := p.Name
		if !p.Active {
			name += " (inactive)"
		}
		rows = append(rows, []string{p.ID, p.Customer.Name, name})
	}
	return tui.Table([]string{"ID", "CUSTOMER", "NAME"}, rows)
}

func newTrackCommand(a *app) *cobra.Command {
	var (
		dateFlag string
		hours    float64
	)

	cmd := &cobra.Command{
		Use:     "track <project>",
		Aliases: []string{"timeforing"},
		Short:   "Set the hours tracked on a project for a day",
		Long: "Set the hours tracked on a project for a day. The difference from what is " +
			"already tracked is registered, so running the command twice changes nothing.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID := args[0]

			date := floq.Day(time.Now())
			if dateFlag != "" {
				parsed, err := floq.ParseDate(dateFlag)
				if err != nil {
					return err
				}
				date = parsed
			}
			if hours < 0 || hours > 24 {
				return fmt.Errorf("hours must be between 0 and 24, got %s", formatHours(hours))
			}

			user, err := a.currentUser(cmd)
			if err != nil {
				return err
			}

			added, err := a.api.ForEmployee(user.Credentials()).
				TrackHours(cmd.Context(), projectID, date, hours)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if added == 0 {
				fmt.Fprintf(out, "%s hours were already tracked on %s for %s.\n",
					formatHours(hours), projectID, date.Format(floq.DateLayout))
				return nil
			}
			fmt.Fprintf(out, "Tracked %s hours on %s for %s.\n",
				formatHours(hours), projectID, date.Format(floq.DateLayout))
			return nil
		},
	}
	cmd.Flags().StringVar(&dateFlag, "date", "", "Day to track (YYYY-MM-DD, default today)")
	cmd.Flags().Float64Var(&hours, "hours", defaultHours, "Hours to track")
	return cmd
}

func newHistoryCommand(a *app) *cobra.Command {
	var dateFlag, fromFlag, toFlag string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show tracked hours, by default for the current week",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			from, to, err := historyPeriod(time.Now(), dateFlag, fromFlag, toFlag)
			if err != nil {
				return err
			}

			user, err := a.currentUser(cmd)
			if err != nil {
				return err
			}

			tracked, err := a.api.ForEmployee(user.Credentials()).
				TimeTrackedInPeriod(cmd.Context(), from, to)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(tracked) == 0 {
				fmt.Fprintf(out, "No hours tracked from %s to %s.\n",
					from.Format(floq.DateLayout), to.Format(floq.DateLayout))
				return nil
			}
			fmt.Fprintln(out, historyTable(tracked))
			return nil
		},
	}
	cmd.Flags().StringVar(&dateFlag, "date", "", "Show a single day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&fromFlag, "from", "", "First day of the period (YYYY-MM-DD)")
	cmd.Flags().StringVar(&toFlag, "to", "", "Last day of the period (YYYY-MM-DD)")
	cmd.MarkFlagsMutuallyExclusive("date", "from")
	cmd.MarkFlagsMutuallyExclusive("date", "to")
	return cmd
}

// historyPeriod picks the days to show. A single --date wins; --from and
// --to default to Monday and Sunday of the current week.
func historyPeriod(now time.Time, date, from, to string) (time.Time, time.Time, error) {
	if date != "" {
		day, err := floq.ParseDate(date)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		return day, day, nil
	}

	start, end := floq.Week(now)
	if from != "" {
		parsed, err := floq.ParseDate(from)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		start = parsed
	}
	if to != "" {
		parsed, err := floq.ParseDate(to)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		end = parsed
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf(
			"--to %s is before --from %s", end.Format(floq.DateLayout), start.Format(floq.DateLayout))
	}
	return start, end, nil
}

func historyTable(tracked []floq.TrackedTime) string {
	rows := make([][]string, 0, len(tracked)+1)
	totalMinutes := 0
	for _, t := range tracked {
		rows = append(rows, []string{
			t.Date.Format(floq.DateLayout),
			t.ProjectID,
			t.ProjectName,
			t.CustomerName,
			formatHours(t.Hours()),
		})
		totalMinutes += t.Minutes
	}
	rows = append(rows, []string{"", "", "", "Total", formatHours(float64(totalMinutes) / 60)})
	return tui.Table([]string{"DATE", "ID", "PROJECT", "CUSTOMER", "HOURS"}, rows, 4)
}

// formatHours prints at most two decimals: 7.5, 8, 7.33.
func formatHours(h float64) string {
	return strconv.FormatFloat(math.Round(h*100)/100, 'f', -1, 64)
}
