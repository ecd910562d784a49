package cmd

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/qcbank/internal/config"
	"github.com/abhisek/qcbank/internal/llm"
	"github.com/abhisek/qcbank/internal/question"
)

func offlineEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"GEMINI_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "OPENROUTER_API_KEY", "QCBANK_DB"} {
		t.Setenv(k, "")
	}
	t.Setenv("QCBANK_LLM_PROVIDER", llm.ProviderNone)
	t.Setenv("QCBANK_LOG_LEVEL", "error")
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestSubmitHistoryExport(t *testing.T) {
	offlineEnv(t)
	db := filepath.Join(t.TempDir(), "qcbank.db")

	out, err := run(t, "", "submit", "What is 2+2?", "--db", db, "--json", "--question-id", "cli-1", "--by", "User")
	require.NoError(t, err, out)
	var res question.SubmitResult
	require.NoError(t, json.Unmarshal([]byte(out), &res), out)
	assert.Equal(t, "cli-1", res.QuestionID)
	assert.Equal(t, 1, res.Version.VersionNumber)
	require.Len(t, res.History, 1)

	out, err = run(t, "what is  2+2\n", "submit", "--db", db, "--json", "--question-id", "cli-1", "--by", "User")
	require.NoError(t, err, out)
	require.NoError(t, json.Unmarshal([]byte(out), &res), out)
	assert.Equal(t, 2, res.Version.VersionNumber)

	out, err = run(t, "", "history", "cli-1", "--db", db, "--json")
	require.NoError(t, err, out)
	var versions []question.Version
	require.NoError(t, json.Unmarshal([]byte(out), &versions), out)
	require.Len(t, versions, 2)
	assert.Equal(t, "what is  2+2", versions[1].OriginalText)

	csvPath := filepath.Join(t.TempDir(), "out.csv")
	_, err = run(t, "", "export", "--db", db, "-o", csvPath)
	require.NoError(t, err)

	out, err = run(t, "", "export", "--db", db, "-o", "-")
	require.NoError(t, err)
	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 3)

	_, err = run(t, "", "history", "missing", "--db", db, "--json")
	assert.ErrorIs(t, err, question.ErrNotFound)
}

func TestLLMListEmpty(t *testing.T) {
	offlineEnv(t)
	db := filepath.Join(t.TempDir(), "qcbank.db")

	out, err := run(t, "", "llm", "list", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "No LLM events found.")

	out, err = run(t, "", "llm", "stats", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "No LLM usage recorded yet.")
}

func TestAnalyzerSet(t *testing.T) {
	offlineEnv(t)

	tests := []struct {
		name     string
		provider string
		want     string
	}{
		{"none", llm.ProviderNone, "static"},
		{"mock", llm.ProviderMock, llm.ProviderMock},
		{"missing key", llm.ProviderGemini, "static"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.LLM.Provider = tt.provider
			set, kind := analyzerSet(t.Context(), cfg, nil, zerolog.Nop())
			assert.Equal(t, tt.want, kind)
			assert.NoError(t, set.Validate())
		})
	}

	t.Run("discovered key", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "sk-test")
		cfg := config.Default()
		_, kind := analyzerSet(t.Context(), cfg, nil, zerolog.Nop())
		assert.Equal(t, llm.ProviderOpenAI, kind)
	})
}

func TestResolveDBPath(t *testing.T) {
	t.Setenv("QCBANK_DB", "")
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	c := &cobra.Command{}
	c.Flags().String("db", "", "")

	flagPath := filepath.Join(t.TempDir(), "nested", "flag.db")
	require.NoError(t, c.Flags().Set("db", flagPath))
	p, err := resolveDBPath(c, config.Config{DB: "/ignored.db"})
	require.NoError(t, err)
	assert.Equal(t, flagPath, p)
	assert.DirExists(t, filepath.Dir(flagPath))

	c = &cobra.Command{}
	c.Flags().String("db", "", "")
	cfgPath := filepath.Join(t.TempDir(), "cfg.db")
	p, err = resolveDBPath(c, config.Config{DB: cfgPath})
	require.NoError(t, err)
	assert.Equal(t, cfgPath, p)

	p, err = resolveDBPath(c, config.Config{})
	require.NoError(t, err)
	assert.Equal(t, "qcbank.db", filepath.Base(p))
}
