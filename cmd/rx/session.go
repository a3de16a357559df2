package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/ellery/rxcare/internal/config"
	"github.com/ellery/rxcare/internal/db"
	"github.com/ellery/rxcare/internal/registry"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func newSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Prescription session commands",
	}

	cmd.AddCommand(newSessionListCmd())
	cmd.AddCommand(newSessionShowCmd())
	cmd.AddCommand(newSessionSwitchCmd())
	cmd.AddCommand(newSessionDeleteCmd())
	return cmd
}

func newSessionListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List prescription sessions",
		Long:  "Lists all sessions in creation order. The active session is marked with *.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionList(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "rxcare.yaml", "path to rxcare config file")
	return cmd
}

func runSessionList(cmd *cobra.Command, configPath string) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	reg := registry.New(gormDB)

	list, err := reg.List()
	if err != nil {
		return err
	}
	activeID, err := reg.ActiveID()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(list) == 0 {
		fmt.Fprintln(out, "No sessions.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, " \tID\tFILE\tCREATED")
	for _, s := range list {
		marker := " "
		if s.ID == activeID {
			marker = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			marker, s.ID, s.FileName, s.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	w.Flush()
	return nil
}

func newSessionShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show session details",
		Long:  "Displays the analysis, summary, and edited text of a session.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionShow(cmd, configPath, args[0])
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "rxcare.yaml", "path to rxcare config file")
	return cmd
}

func runSessionShow(cmd *cobra.Command, configPath, id string) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	reg := registry.New(gormDB)

	s, err := reg.Get(id)
	if err != nil {
		return err
	}
	if s == nil {
		return fmt.Errorf("session %s not found", id)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:       %s\n", s.ID)
	fmt.Fprintf(out, "File:     %s\n", s.FileName)
	fmt.Fprintf(out, "Created:  %s\n", s.CreatedAt.Format("2006-01-02 15:04:05"))

	analysis, err := registry.Analysis(s)
	if err != nil {
		return err
	}
	if analysis != nil {
		fmt.Fprintln(out, "\nMedications:")
		for _, m := range analysis.Medications {
			fmt.Fprintf(out, "  %s - %s - %s\n", m.Name, m.Dosage, m.Instruction)
		}
		if analysis.Advice != "" {
			fmt.Fprintf(out, "\nAdvice:\n%s\n", analysis.Advice)
		}
	}

	summary, err := registry.Summary(s)
	if err != nil {
		return err
	}
	if summary != nil {
		fmt.Fprintf(out, "\nSummary:\n%s\n", summary.Summary)
	}

	if s.EditedText != "" {
		fmt.Fprintf(out, "\nTranscript:\n%s\n", s.EditedText)
	}
	return nil
}

func newSessionSwitchCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "switch <id>",
		Short: "Make a session active",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			reg := registry.New(gormDB)
			if err := reg.SetActive(args[0]); err != nil {
				return err
			}
			activeID, err := reg.ActiveID()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Active session: %s\n", activeID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "rxcare.yaml", "path to rxcare config file")
	return cmd
}

func newSessionDeleteCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a session",
		Long:  "Deletes a session and its chat history. Deleting the active session moves the pointer to the next remaining one.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			reg := registry.New(gormDB)
			if err := reg.Delete(args[0]); err != nil {
				return err
			}
			activeID, err := reg.ActiveID()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Deleted %s\n", args[0])
			if activeID == "" {
				fmt.Fprintln(out, "No sessions remain.")
			} else {
				fmt.Fprintf(out, "Active session: %s\n", activeID)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "rxcare.yaml", "path to rxcare config file")
	return cmd
}

// connectFromConfig loads config and returns a GORM DB connection.
func connectFromConfig(configPath string) (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	gormDB, err := db.Connect(cfg.Storage)
	if err != nil {
		return nil, nil, fmt.Errorf("connect storage: %w", err)
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}

	return cfg, gormDB, nil
}
