package store

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

// Table and column definitions in the shape ent's migrate package uses.
// They are created (and extended) by schema.Migrate on Open.

const (
	questionsTable   = "questions"
	versionsTable    = "versions"
	llmRequestsTable = "llm_requests"
)

var (
	questionsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Unique: true},
		{Name: "created_at", Type: field.TypeTime},
	}
	questionsSchema = &schema.Table{
		Name:       questionsTable,
		Columns:    questionsColumns,
		PrimaryKey: []*schema.Column{questionsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "question_created_at", Columns: []*schema.Column{questionsColumns[1]}},
		},
	}

	versionsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "version_number", Type: field.TypeInt},
		{Name: "timestamp", Type: field.TypeTime},
		{Name: "created_by", Type: field.TypeString},
		{Name: "original_text", Type: field.TypeString, Size: 2147483647, Default: ""},
		{Name: "improved_text", Type: field.TypeString, Size: 2147483647, Default: ""},
		{Name: "correctness_feedback", Type: field.TypeJSON, Nullable: true},
		{Name: "language_feedback", Type: field.TypeJSON, Nullable: true},
		{Name: "improvement_feedback", Type: field.TypeJSON, Nullable: true},
		{Name: "metadata", Type: field.TypeJSON, Nullable: true},
		{Name: "question_id", Type: field.TypeString},
	}
	versionsSchema = &schema.Table{
		Name:       versionsTable,
		Columns:    versionsColumns,
		PrimaryKey: []*schema.Column{versionsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "versions_questions_versions",
				Columns:    []*schema.Column{versionsColumns[10]},
				RefColumns: []*schema.Column{questionsColumns[0]},
				OnDelete:   schema.NoAction,
			},
		},
		Indexes: []*schema.Index{
			{
				Name:    "version_question_id_version_number",
				Unique:  true,
				Columns: []*schema.Column{versionsColumns[10], versionsColumns[1]},
			},
		},
	}

	llmRequestsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "timestamp", Type: field.TypeTime},
		{Name: "provider", Type: field.TypeString},
		{Name: "model", Type: field.TypeString},
		{Name: "purpose", Type: field.TypeString},
		{Name: "question_id", Type: field.TypeString, Default: ""},
		{Name: "input_tokens", Type: field.TypeInt},
		{Name: "output_tokens", Type: field.TypeInt},
		{Name: "latency_ms", Type: field.TypeInt64},
		{Name: "cost_usd", Type: field.TypeFloat64, Default: 0},
		{Name: "success", Type: field.TypeBool},
		{Name: "error_message", Type: field.TypeString, Default: ""},
		{Name: "request_body", Type: field.TypeString, Size: 2147483647, Default: ""},
		{Name: "response_body", Type: field.TypeString, Size: 2147483647, Default: ""},
	}
	llmRequestsSchema = &schema.Table{
		Name:       llmRequestsTable,
		Columns:    llmRequestsColumns,
		PrimaryKey: []*schema.Column{llmRequestsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "llmrequest_purpose", Columns: []*schema.Column{llmRequestsColumns[4]}},
			{Name: "llmrequest_question_id", Columns: []*schema.Column{llmRequestsColumns[5]}},
		},
	}

	tables = []*schema.Table{questionsSchema, versionsSchema, llmRequestsSchema}
)

func init() {
	versionsSchema.ForeignKeys[0].RefTable = questionsSchema
}
