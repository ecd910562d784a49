package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/abhisek/qcbank/internal/question"
	"github.com/abhisek/qcbank/internal/ui/components"
)

const cardWidth = 88

var submitCmd = &cobra.Command{
	Use:   "submit [text]",
	Short: "Review a question and append it as a new version",
	Long: "Runs every analyzer over the question text and appends the result as a new version. " +
		"Reads the text from stdin when no argument is given.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := questionText(cmd, args)
		if err != nil {
			return err
		}
		questionID, _ := cmd.Flags().GetString("question-id")
		createdBy, _ := cmd.Flags().GetString("by")

		d, err := buildDeps(cmd)
		if err != nil {
			return err
		}
		defer d.Close()

		res, err := d.svc.Submit(cmd.Context(), question.SubmitRequest{
			Text:       text,
			CreatedBy:  createdBy,
			QuestionID: questionID,
		})
		if err != nil {
			return err
		}
		return printResult(cmd, res)
	},
}

var improveCmd = &cobra.Command{
	Use:   "improve <question-id>",
	Short: "Accept the latest improvement suggestion as a new version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := buildDeps(cmd)
		if err != nil {
			return err
		}
		defer d.Close()

		res, err := d.svc.Improve(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printResult(cmd, res)
	},
}

func questionText(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read question from stdin: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", errors.New("no question text given")
	}
	return text, nil
}

func printResult(cmd *cobra.Command, res *question.SubmitResult) error {
	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	_, err := lipgloss.Fprintln(out, components.History(res.QuestionID, res.History, cardWidth))
	return err
}

func init() {
	submitCmd.Flags().StringP("question-id", "q", "", "Existing question ID (new question when empty)")
	submitCmd.Flags().String("by", question.ActorUser, "Author label; \"AI\" marks pipeline-authored text")
	for _, c := range []*cobra.Command{submitCmd, improveCmd} {
		c.Flags().Bool("json", false, "Print the result as JSON")
	}
}
