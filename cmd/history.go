package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/abhisek/qcbank/internal/ui/components"
)

var historyCmd = &cobra.Command{
	Use:   "history <question-id>",
	Short: "Show every version of a question",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := buildDeps(cmd)
		if err != nil {
			return err
		}
		defer d.Close()

		versions, err := d.svc.Versions(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(versions)
		}
		_, err = lipgloss.Fprintln(out, components.History(args[0], versions, cardWidth))
		return err
	},
}

var questionsCmd = &cobra.Command{
	Use:   "questions",
	Short: "List stored questions",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := buildDeps(cmd)
		if err != nil {
			return err
		}
		defer d.Close()

		qs, err := d.svc.Questions(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(qs) == 0 {
			fmt.Fprintln(out, "No questions stored yet.")
			return nil
		}
		fmt.Fprintf(out, "%-36s  %-19s  %s\n", "Question", "Created", "Versions")
		for _, q := range qs {
			fmt.Fprintf(out, "%-36s  %-19s  %d\n", q.ID, q.CreatedAt.Local().Format("2006-01-02 15:04:05"), q.VersionCount)
		}
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every version as CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := buildDeps(cmd)
		if err != nil {
			return err
		}
		defer d.Close()

		path, _ := cmd.Flags().GetString("output")
		if path == "" || path == "-" {
			return d.svc.ExportCSV(cmd.Context(), cmd.OutOrStdout())
		}

		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		if err := d.svc.ExportCSV(cmd.Context(), f); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	},
}

func init() {
	historyCmd.Flags().Bool("json", false, "Print versions as JSON")
	exportCmd.Flags().StringP("output", "o", "question_versions.csv", "Output file, or - for stdout")
}
