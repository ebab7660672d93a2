package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ziadkadry99/docchat/internal/documents"
	"github.com/ziadkadry99/docchat/internal/progress"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <glob>...",
	Short: "Index PDF files from disk",
	Long: `Stores and indexes every PDF matched by the given patterns. Patterns support
** for recursive matching, e.g. docchat ingest "manuals/**/*.pdf".`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().String("author", "", "author recorded for every ingested file")
	rootCmd.AddCommand(ingestCmd)
}

// expandPatterns resolves glob patterns to a sorted, de-duplicated list of PDFs.
func expandPatterns(patterns []string) ([]string, error) {
	seen := map[string]bool{}
	var files []string
	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			if !documents.IsPDFName(m) || seen[m] {
				continue
			}
			if info, err := os.Stat(m); err != nil || info.IsDir() {
				continue
			}
			seen[m] = true
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files, nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	author, _ := cmd.Flags().GetString("author")

	files, err := expandPatterns(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Println("No PDF files matched.")
		return nil
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	reporter := progress.NewReporter(os.Stderr)
	reporter.Start(len(files))

	var indexed, failed, chunks int
	for i, path := range files {
		reporter.Update(i+1, filepath.Base(path))
		res, err := a.pipeline.IngestFile(ctx, path, "", author)
		if err != nil {
			failed++
			a.logger.Warn("ingest failed", zap.String("path", path), zap.Error(err))
			continue
		}
		indexed++
		chunks += res.Chunks
	}

	reporter.Finish(fmt.Sprintf("%d indexed, %d failed, %d chunks added (%d in index)", indexed, failed, chunks, a.index.Count()))
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(files))
	}
	return nil
}
