package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/flowershop/admin-api/internal/services"
)

var seedFile string

// categorySeed is the YAML document accepted by "categories seed".
type categorySeed struct {
	Categories []categorySeedEntry `yaml:"categories"`
}

type categorySeedEntry struct {
	CategoryName string `yaml:"categoryName"`
	Description  string `yaml:"description"`
}

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "Manage flower categories",
}

var categoriesSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create categories from a YAML file",
	Long: `Create every category listed in a YAML file. Categories whose name is already
taken are reported and skipped.

File format:
  categories:
    - categoryName: Roses
      description: Cut roses by the stem

Examples:
  flowershopctl categories seed --file seeds/categories.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(seedFile)
		if err != nil {
			return err
		}
		defer f.Close()
		entries, err := parseCategorySeed(f)
		if err != nil {
			return err
		}
		return withRuntime(cmd.Context(), func(ctx context.Context, rt *runtime) error {
			svc, err := rt.categoryService()
			if err != nil {
				return err
			}
			return seedCategories(ctx, svc, entries, cmd.OutOrStdout())
		})
	},
}

func init() {
	rootCmd.AddCommand(categoriesCmd)
	categoriesCmd.AddCommand(categoriesSeedCmd)

	categoriesSeedCmd.Flags().StringVarP(&seedFile, "file", "f", "", "YAML file listing the categories")
	_ = categoriesSeedCmd.MarkFlagRequired("file")
}

// parseCategorySeed decodes and checks a seed document. Names are trimmed and must be
// unique within the file, ignoring case.
func parseCategorySeed(r io.Reader) ([]categorySeedEntry, error) {
	var doc categorySeed
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("seed file is empty")
		}
		return nil, fmt.Errorf("parse seed file: %w", err)
	}

	seen := make(map[string]int, len(doc.Categories))
	entries := make([]categorySeedEntry, 0, len(doc.Categories))
	for i, entry := range doc.Categories {
		entry.CategoryName = strings.TrimSpace(entry.CategoryName)
		entry.Description = strings.TrimSpace(entry.Description)
		if entry.CategoryName == "" {
			return nil, fmt.Errorf("categories[%d]: categoryName is required", i)
		}
		key := strings.ToLower(entry.CategoryName)
		if prev, ok := seen[key]; ok {
			return nil, fmt.Errorf("categories[%d]: %q duplicates categories[%d]", i, entry.CategoryName, prev)
		}
		seen[key] = i
		entries = append(entries, entry)
	}
	return entries, nil
}

func seedCategories(ctx context.Context, svc services.CategoryService, entries []categorySeedEntry, out io.Writer) error {
	var created, skipped int
	for _, entry := range entries {
		category, err := svc.CreateCategory(ctx, services.CategoryCommand{
			CategoryName: entry.CategoryName,
			Description:  entry.Description,
			ActorID:      actorID,
		})
		switch {
		case errors.Is(err, services.ErrCategoryConflict):
			skipped++
			fmt.Fprintf(out, "skip    %s (already exists)\n", entry.CategoryName)
		case err != nil:
			return fmt.Errorf("create %q: %w", entry.CategoryName, err)
		default:
			created++
			fmt.Fprintf(out, "created %s %s\n", category.ID, category.CategoryName)
		}
	}
	fmt.Fprintf(out, "%d created, %d skipped\n", created, skipped)
	return nil
}
