package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const menuDoc = `# Catering Guide

## Wine Pairing Appendix

Pair a light red with roasted mushrooms.

---

## Vegetarian Entrees

Our vegetarian entrees include falafel, hummus and grilled halloumi.
`

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	rankCmd.Flags().VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	}()
	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestVersionCmd(t *testing.T) {
	original := version
	version = "test-1.0.0"
	defer func() { version = original }()

	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "docinsight version test-1.0.0")
}

func TestRankJSON(t *testing.T) {
	dir := t.TempDir()
	menu := writeFile(t, dir, "menu.md", menuDoc)
	finance := writeFile(t, dir, "finance.md", "# Annual Report\n\n## Quarterly Budget\n\nSpending rose.\n")
	skipped := writeFile(t, dir, "tool.exe", "MZ")

	out, stderr, err := execute(t, "rank",
		"--persona", "dietitian",
		"--job", "plan a vegetarian dinner",
		"--analyzer", "none",
		"--top-n", "2",
		"--json",
		menu, finance, skipped,
	)
	require.NoError(t, err)
	assert.Contains(t, stderr, "skipping unsupported file")

	var got rankOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got.Sections, 2)
	for i, s := range got.Sections {
		assert.Equal(t, i+1, s.ImportanceRank)
	}
	assert.NotEmpty(t, got.Subsections)
}

func TestRankTableWithCache(t *testing.T) {
	dir := t.TempDir()
	menu := writeFile(t, dir, "menu.md", menuDoc)
	cache := filepath.Join(dir, "embeddings.db")

	out, _, err := execute(t, "rank",
		"--persona", "dietitian",
		"--job", "plan a vegetarian dinner",
		"--analyzer", "none",
		"--no-progress",
		"--cache", cache,
		menu,
	)
	require.NoError(t, err)
	assert.Contains(t, out, "Vegetarian Entrees")
	_, err = os.Stat(cache)
	assert.NoError(t, err)
}

func TestRankValidation(t *testing.T) {
	dir := t.TempDir()
	menu := writeFile(t, dir, "menu.md", menuDoc)

	_, _, err := execute(t, "rank", "--persona", "dietitian", "--job", "plan", "--top-n", "0", menu)
	assert.ErrorContains(t, err, "--top-n")

	_, _, err = execute(t, "rank", "--persona", " ", "--job", "plan", menu)
	assert.Error(t, err)

	_, _, err = execute(t, "rank", "--persona", "p", "--job", "j", "--analyzer", "none", writeFile(t, dir, "x.exe", "MZ"))
	assert.ErrorContains(t, err, "no supported documents")
}
