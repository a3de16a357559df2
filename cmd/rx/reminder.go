package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/ellery/rxcare/internal/gateway"
	"github.com/ellery/rxcare/internal/models"
	"github.com/ellery/rxcare/internal/reminders"
	"github.com/ellery/rxcare/internal/scheduler"
	"github.com/spf13/cobra"
)

func newReminderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reminder",
		Short: "Medication reminder commands",
	}

	cmd.AddCommand(newReminderListCmd())
	cmd.AddCommand(newReminderAddCmd())
	cmd.AddCommand(newReminderRemoveCmd())
	return cmd
}

func newReminderListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List reminders",
		Long:  "Lists stored reminders with the next local fire time of each.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReminderList(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "rxcare.yaml", "path to rxcare config file")
	return cmd
}

func runReminderList(cmd *cobra.Command, configPath string) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	store := reminders.NewStore(gormDB)

	list, err := store.Load()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(list) == 0 {
		fmt.Fprintln(out, "No reminders.")
		return nil
	}

	now := time.Now()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMEDICINE\tTIME\tNEXT FIRE")
	for _, r := range list {
		next := "-"
		if t := scheduler.NextFire(r.Time, now); !t.IsZero() {
			next = t.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.ID, r.MedicineName, r.Time, next)
	}
	w.Flush()
	return nil
}

func newReminderAddCmd() *cobra.Command {
	var (
		configPath  string
		name        string
		instruction string
		at          string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a daily reminder",
		Long:  "Creates a recurring calendar event for the medicine and stores the reminder locally once the calendar confirms.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReminderAdd(cmd, configPath, name, instruction, at)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "rxcare.yaml", "path to rxcare config file")
	cmd.Flags().StringVar(&name, "name", "", "medicine name (required)")
	cmd.Flags().StringVar(&instruction, "instruction", "", "dosage instruction")
	cmd.Flags().StringVar(&at, "at", "", "daily time as HH:MM (required)")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("at")
	return cmd
}

func runReminderAdd(cmd *cobra.Command, configPath, name, instruction, at string) error {
	if err := reminders.ValidateTime(at); err != nil {
		return err
	}

	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	cal, err := gateway.NewCalendar(cmd.Context(), cfg.Calendar)
	if err != nil {
		return fmt.Errorf("calendar not authenticated; run rx auth: %w", err)
	}

	created, err := cal.CreateReminder(cmd.Context(), gateway.ReminderRequest{
		Name:        name,
		Instruction: instruction,
		Time:        at,
	})
	if err != nil {
		return err
	}

	store := reminders.NewStore(gormDB)
	if err := store.Append(models.Reminder{
		ID:           created.EventID,
		MedicineName: name,
		Time:         at,
		CalendarLink: created.CalendarLink,
	}); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created reminder %s for %s at %s daily\n", created.EventID, name, at)
	if created.CalendarLink != "" {
		fmt.Fprintf(out, "Calendar: %s\n", created.CalendarLink)
	}
	return nil
}

func newReminderRemoveCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a reminder locally",
		Long:  "Removes the reminder from local storage. The recurring calendar event is not touched.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			store := reminders.NewStore(gormDB)
			if err := store.Remove(args[0]); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Removed %s\n", args[0])
			fmt.Fprintln(out, "Note: the recurring calendar event still exists.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "rxcare.yaml", "path to rxcare config file")
	return cmd
}
