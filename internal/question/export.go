package question

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// CSVHeader is the column order of the flat export.
var CSVHeader = []string{
	"question_id",
	"version_number",
	"timestamp",
	"created_by",
	"original_text",
	"improved_text",
	"correctness_feedback_is_correct",
	"correctness_feedback_errors",
	"correctness_feedback_explanation",
	"language_feedback_issues_found",
	"language_feedback_feedback",
	"language_feedback_explanation",
	"improvement_improved_question",
	"improvement_justification",
	"metadata_topic",
	"metadata_subtopic",
	"metadata_blooms_level",
	"metadata_difficulty",
}

// listSeparator joins list-valued facet fields into one cell.
const listSeparator = "; "

// WriteCSV writes versions as one row each. Absent facets leave their
// cells empty.
func WriteCSV(w io.Writer, versions []Version) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, v := range versions {
		if err := cw.Write(csvRow(v)); err != nil {
			return fmt.Errorf("write csv row %s/%d: %w", v.QuestionID, v.VersionNumber, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvRow(v Version) []string {
	row := make([]string, 0, len(CSVHeader))
	row = append(row,
		v.QuestionID,
		strconv.Itoa(v.VersionNumber),
		v.Timestamp.UTC().Format(time.RFC3339Nano),
		v.CreatedBy,
		v.OriginalText,
		v.ImprovedText,
	)

	if c := v.Correctness; c != nil {
		row = append(row, strconv.FormatBool(c.IsCorrect), strings.Join(c.Errors, listSeparator), c.Explanation)
	} else {
		row = append(row, "", "", "")
	}

	if l := v.Language; l != nil {
		row = append(row, strconv.FormatBool(l.IssuesFound), strings.Join(l.Feedback, listSeparator), l.Explanation)
	} else {
		row = append(row, "", "", "")
	}

	if i := v.Improvement; i != nil {
		row = append(row, i.ImprovedQuestion, i.Justification)
	} else {
		row = append(row, "", "")
	}

	if m := v.Metadata; m != nil {
		row = append(row, m.Topic, m.Subtopic, m.BloomsLevel, m.Difficulty)
	} else {
		row = append(row, "", "", "", "")
	}
	return row
}

// ExportCSV writes every stored version as CSV.
func (s *Service) ExportCSV(ctx context.Context, w io.Writer) error {
	versions, err := s.store.AllVersions(ctx)
	if err != nil {
		return fmt.Errorf("load versions: %w", err)
	}
	return WriteCSV(w, versions)
}
