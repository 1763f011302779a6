package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/yungbote/docinsight-backend/internal/analysis"
	"github.com/yungbote/docinsight-backend/internal/config"
	"github.com/yungbote/docinsight-backend/internal/domain"
	"github.com/yungbote/docinsight-backend/internal/embedding"
	"github.com/yungbote/docinsight-backend/internal/keywords"
	"github.com/yungbote/docinsight-backend/internal/outline"
	"github.com/yungbote/docinsight-backend/internal/platform/logger"
	"github.com/yungbote/docinsight-backend/internal/ranking"
	"github.com/yungbote/docinsight-backend/internal/snippet"
)

type rankOptions struct {
	persona    string
	job        string
	topN       int
	json       bool
	embedder   string
	ollamaURL  string
	model      string
	cachePath  string
	analyzer   string
	pdftotext  string
	parallel   int
	noProgress bool
}

var rankOpts rankOptions

var rankCmd = &cobra.Command{
	Use:   "rank [files...]",
	Short: "Rank document sections for a persona and job offline",
	Long: `Parses the given documents, extracts keywords from the persona and job,
scores every section and prints the top sections with their best snippet.
No Redis, model key or network access is needed with the default hash embedder.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRank,
}

func init() {
	f := rankCmd.Flags()
	f.StringVar(&rankOpts.persona, "persona", "", "who is reading (required)")
	f.StringVar(&rankOpts.job, "job", "", "what they need to get done (required)")
	f.IntVarP(&rankOpts.topN, "top-n", "n", 5, "number of sections to keep")
	f.BoolVar(&rankOpts.json, "json", false, "output results as JSON")
	f.StringVar(&rankOpts.embedder, "embedder", "hash", "embedding provider: hash or ollama")
	f.StringVar(&rankOpts.ollamaURL, "ollama-url", "", "ollama server URL")
	f.StringVar(&rankOpts.model, "model", "", "embedding model name")
	f.StringVar(&rankOpts.cachePath, "cache", "", "bbolt file caching embeddings between runs")
	f.StringVar(&rankOpts.analyzer, "analyzer", "prose", "keyword analyzer: prose or none")
	f.StringVar(&rankOpts.pdftotext, "pdftotext", "pdftotext", "path to the pdftotext binary")
	f.IntVar(&rankOpts.parallel, "parallel", 4, "documents parsed concurrently")
	f.BoolVar(&rankOpts.noProgress, "no-progress", false, "hide the progress bar")
	_ = rankCmd.MarkFlagRequired("persona")
	_ = rankCmd.MarkFlagRequired("job")
	rootCmd.AddCommand(rankCmd)
}

type rankOutput struct {
	Keywords    []string                    `json:"keywords"`
	Sections    []domain.RankedSection      `json:"extracted_sections"`
	Subsections []domain.SubsectionAnalysis `json:"subsection_analysis"`
}

func runRank(cmd *cobra.Command, args []string) error {
	opts := rankOpts
	intent := domain.Intent{Persona: strings.TrimSpace(opts.persona), JobToBeDone: strings.TrimSpace(opts.job)}
	if !intent.Valid() {
		return errors.New("--persona and --job must not be empty")
	}
	if opts.topN < 1 {
		return fmt.Errorf("--top-n must be at least 1, got %d", opts.topN)
	}
	log := cliLogger()
	ctx := cmd.Context()

	embedCfg := config.EmbeddingConfig{
		Provider: opts.embedder,
		BaseURL:  opts.ollamaURL,
		Model:    opts.model,
	}
	if opts.cachePath != "" {
		embedCfg.Cache = "bolt"
		embedCfg.CachePath = opts.cachePath
	}
	embedder, closer, err := embedding.New(log, embedCfg, nil)
	if err != nil {
		return err
	}
	defer closer.Close()

	registry := outline.NewRegistry(log, outline.NewPDFToText(opts.pdftotext, 0))
	uploads, err := readFiles(cmd.ErrOrStderr(), registry, args)
	if err != nil {
		return err
	}

	var onDone func()
	if !opts.json && !opts.noProgress {
		bar := newProgressBar(cmd, len(uploads), "Parsing documents")
		defer bar.Finish()
		onDone = func() { _ = bar.Add(1) }
	}
	docs := analysis.ParseAll(ctx, log, registry, uploads, opts.parallel, onDone)
	if len(docs) == 0 {
		return errors.New("none of the documents could be parsed")
	}

	var analyzer keywords.Analyzer = keywords.NewProseAnalyzer()
	if strings.EqualFold(opts.analyzer, "none") {
		analyzer = keywords.None{}
	}
	pipeline := &analysis.Pipeline{
		Ranker:   ranking.NewRanker(log, keywords.NewExtractor(log, analyzer), ranking.NewScorer(embedder), opts.topN),
		Snippets: snippet.NewExtractor(log, opts.topN, 0),
	}
	res, err := pipeline.Run(ctx, intent, docs)
	if err != nil {
		return err
	}

	out := rankOutput{Keywords: res.Keywords, Sections: res.Sections, Subsections: res.Subsections}
	if opts.json {
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}
	printRankTable(cmd, out)
	return nil
}

// readFiles loads every supported path, skipping the rest with a warning.
func readFiles(warn io.Writer, registry *outline.Registry, paths []string) ([]analysis.Upload, error) {
	var uploads []analysis.Upload
	for _, p := range paths {
		if !registry.Supports(p) {
			fmt.Fprintf(warn, "%s skipping unsupported file %s\n", color.YellowString("warn:"), p)
			continue
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		uploads = append(uploads, analysis.Upload{Name: filepath.Base(p), Data: data})
	}
	uploads = analysis.Supported(registry, uploads)
	if len(uploads) == 0 {
		return nil, errors.New("no supported documents given")
	}
	return uploads, nil
}

func printRankTable(cmd *cobra.Command, out rankOutput) {
	bold := color.New(color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	if len(out.Keywords) > 0 {
		cmd.Printf("%s %s\n\n", bold("Keywords:"), color.CyanString(strings.Join(out.Keywords, ", ")))
	}
	if len(out.Sections) == 0 {
		cmd.Println("No sections found.")
		return
	}
	snippets := make(map[string]domain.SubsectionAnalysis, len(out.Subsections))
	for _, s := range out.Subsections {
		snippets[s.Document+"\x00"+s.SectionTitle] = s
	}
	for _, s := range out.Sections {
		cmd.Printf("  %s %s %s\n",
			color.GreenString("[%d]", s.ImportanceRank),
			bold(s.SectionTitle),
			dim(fmt.Sprintf("(%s p.%d, score %.3f)", s.Document, s.PageNumber, s.Score)),
		)
		if sub, ok := snippets[s.Document+"\x00"+s.SectionTitle]; ok {
			if sub.RefinedText != "" {
				cmd.Printf("      %s\n", truncateLine(sub.RefinedText, 160))
			}
			if sub.Reason != "" {
				cmd.Printf("      %s\n", color.MagentaString(sub.Reason))
			}
		}
		cmd.Println()
	}
}

func truncateLine(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

func newProgressBar(cmd *cobra.Command, total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("docs"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func cliLogger() *logger.Logger {
	if !verbose {
		return logger.NewNop()
	}
	log, err := logger.New("development")
	if err != nil {
		return logger.NewNop()
	}
	return log
}
