package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/yungbote/docinsight-backend/internal/keywords"
)

var keywordsCmd = &cobra.Command{
	Use:   "keywords [text]",
	Short: "Print the keywords extracted from text",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ex := keywords.NewExtractor(cliLogger(), keywords.NewProseAnalyzer())
		for _, kw := range ex.Extract(cmd.Context(), strings.Join(args, " ")) {
			cmd.Println(kw)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(keywordsCmd)
}
