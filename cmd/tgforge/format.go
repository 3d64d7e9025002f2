package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"tgforge/internal/formatter"
	"tgforge/internal/validator"
	"tgforge/pkg/metadata"
)

// ErrVerifyFailed is returned when at least one file fails its hash check.
var ErrVerifyFailed = errors.New("integrity check failed")

type formatFlags struct {
	write  bool
	verify bool
}

func newFormatCmd(a *app) *cobra.Command {
	f := &formatFlags{}

	cmd := &cobra.Command{
		Use:   "format [file|dir...]",
		Short: "Re-align Markdown tables, validate them and sign the result",
		Long: `format re-aligns the tables of Markdown exports by display width, checks
their structure and appends a signed metadata block. Without --write it only
reports which files would change. --verify checks existing signatures instead.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.format(args, f)
		},
	}

	cmd.Flags().BoolVarP(&f.write, "write", "w", false, "write changes to the files")
	cmd.Flags().BoolVar(&f.verify, "verify", false, "verify metadata hashes instead of formatting")

	return cmd
}

func (a *app) format(paths []string, f *formatFlags) error {
	v := validator.NewMarkdownValidator(a.cfg)

	var scanned, changed, failed int

	for _, root := range paths {
		err := walkMarkdown(root, func(path string) {
			scanned++

			if f.verify {
				if !verifyFile(path, v, a.out) {
					failed++
				}

				return
			}

			wasChanged, err := formatFile(path, f.write, v, a.out)
			switch {
			case err != nil:
				fmt.Fprintf(a.out, "❌ Failed to process %s: %v\n", path, err)

				failed++
			case wasChanged && f.write:
				fmt.Fprintf(a.out, "✅ Formatted & Signed: %s\n", path)

				changed++
			case wasChanged:
				fmt.Fprintf(a.out, "📝 Would format & sign: %s\n", path)

				changed++
			}
		})
		if err != nil {
			return err
		}
	}

	fmt.Fprintf(a.out, "📈 Scanned: %d | Changed: %d | Errors: %d\n", scanned, changed, failed)

	if f.verify && failed > 0 {
		return ErrVerifyFailed
	}

	return nil
}

// walkMarkdown calls fn for every .md file under root, skipping hidden
// directories.
func walkMarkdown(root string, fn func(path string)) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}

			return nil
		}

		if strings.EqualFold(filepath.Ext(path), ".md") {
			fn(path)
		}

		return nil
	})
}

// formatFile validates, aligns and signs one file. Validation runs before
// alignment, which pads short rows. A file whose tables are already aligned
// and whose signature still matches is left alone.
func formatFile(path string, write bool, v *validator.MarkdownValidator, w io.Writer) (bool, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}

	original := string(content)
	meta, clean := metadata.Extract(original)
	aligned := formatter.AlignTables(clean)

	res := v.ValidateMarkdown(clean)
	res.PrintErrors(w)
	res.PrintWarnings(w)

	if meta != nil && aligned == clean && meta.Validation == res.IsValid {
		if ok, _ := metadata.Verify(original); ok {
			return false, nil
		}
	}

	if !write {
		return true, nil
	}

	signed := metadata.Sign(aligned, res.IsValid, meta)
	if err := os.WriteFile(path, []byte(signed+"\n"), 0o644); err != nil {
		return false, err
	}

	return true, nil
}

func verifyFile(path string, v *validator.MarkdownValidator, w io.Writer) bool {
	content, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(w, "❌ %s: %v\n", path, err)

		return false
	}

	res := v.ValidateIntegrity(string(content))
	if !res.IsValid {
		fmt.Fprintf(w, "❌ %s\n", path)
		res.PrintErrors(w)

		return false
	}

	fmt.Fprintf(w, "✅ %s\n", path)

	return true
}
