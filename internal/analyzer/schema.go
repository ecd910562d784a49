package analyzer

import "github.com/abhisek/qcbank/internal/llm"

// CorrectnessSchema is the response schema for the correctness review.
var CorrectnessSchema = &llm.Schema{
	Name:        "correctness-review",
	Description: "Factual and logical soundness of an exam question",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"is_correct": map[string]any{
				"type":        "boolean",
				"description": "True if the question is factually and logically sound and answerable",
			},
			"errors": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Each factual, logical or conceptual error found; empty if none",
			},
			"explanation": map[string]any{
				"type":        "string",
				"minLength":   1,
				"description": "Short explanation of the verdict",
			},
		},
		"required":             []any{"is_correct", "errors", "explanation"},
		"additionalProperties": false,
	},
}

// LanguageSchema is the response schema for the language review.
var LanguageSchema = &llm.Schema{
	Name:        "language-review",
	Description: "Grammar, clarity and style of an exam question",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"issues_found": map[string]any{
				"type":        "boolean",
				"description": "True if any grammar, spelling, clarity or style issue was found",
			},
			"feedback": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "One entry per issue, phrased as an actionable fix",
			},
			"explanation": map[string]any{
				"type":        "string",
				"minLength":   1,
				"description": "Short summary of the language quality",
			},
		},
		"required":             []any{"issues_found", "feedback", "explanation"},
		"additionalProperties": false,
	},
}

// ImprovementSchema is the response schema for the suggested rewrite.
var ImprovementSchema = &llm.Schema{
	Name:        "question-improvement",
	Description: "A rewritten version of an exam question",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"improved_question": map[string]any{
				"type":        "string",
				"minLength":   1,
				"description": "The full rewritten question text",
			},
			"justification": map[string]any{
				"type":        "string",
				"minLength":   1,
				"description": "What was changed and why",
			},
		},
		"required":             []any{"improved_question", "justification"},
		"additionalProperties": false,
	},
}

// MetadataSchema is the response schema for taxonomy classification.
var MetadataSchema = &llm.Schema{
	Name:        "question-metadata",
	Description: "Topic, Bloom's level and difficulty classification of an exam question",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"topic": map[string]any{
				"type":        "string",
				"description": "Subject area, e.g. Physics, Chemistry, Mathematics, Biology",
			},
			"subtopic": map[string]any{
				"type":        "string",
				"description": "Narrower area within the topic, e.g. Kinematics",
			},
			"blooms_level": map[string]any{
				"type":        "string",
				"enum":        bloomsLevelsAny(),
				"description": "Cognitive level in Bloom's revised taxonomy",
			},
			"difficulty": map[string]any{
				"type":        "string",
				"enum":        []any{DifficultyEasy, DifficultyMedium, DifficultyHard},
				"description": "Expected difficulty for the target learner",
			},
		},
		"required":             []any{"topic", "subtopic", "blooms_level", "difficulty"},
		"additionalProperties": false,
	},
}

func bloomsLevelsAny() []any {
	out := make([]any, len(BloomsLevels))
	for i, l := range BloomsLevels {
		out[i] = l
	}
	return out
}
