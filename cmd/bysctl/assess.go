package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"before_you_sign/internal/app/di"
	"before_you_sign/internal/feature/assessment/domain/entity"
	assessmenthandler "before_you_sign/internal/feature/assessment/transport/handler"
	"before_you_sign/internal/feature/assessment/usecase"
	"before_you_sign/internal/platform/config"
	"before_you_sign/internal/platform/logging"
)

func assessCmd(configPath *string) *cobra.Command {
	var (
		force   bool
		asJSON  bool
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "assess <file|->",
		Short: "Assess one document and print the result",
		Long: `Assess reads a document from a file (any supported format) or,
with "-", plain text from standard input, and prints the grade,
the comment and the detailed analysis.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			level := "warn"
			if verbose {
				level = cfg.LogLevel
			}
			logging.Setup("bysctl", level)

			in, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			in.Force = force

			app, err := di.NewApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			stderr := cmd.ErrOrStderr()
			a, err := app.Assessments.Assess(cmd.Context(), in, usecase.Notifier{
				Warn:     func(msg string) { fmt.Fprintln(stderr, msg) },
				Progress: func(step usecase.Step) { fmt.Fprintf(stderr, "[%s]\n", step) },
			})
			if err != nil {
				_, msg := assessmenthandler.ErrorStatus(err, in.Filename)
				return fmt.Errorf("%s: %w", msg, err)
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(assessmenthandler.ToResponse(a))
			}
			printAssessment(cmd.OutOrStdout(), a)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Re-assess even if the document was assessed before")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log at the configured level instead of warn")
	return cmd
}

// readInput は引数に応じて標準入力のテキストまたはファイルを読み込みます。
func readInput(stdin io.Reader, arg string) (usecase.Input, error) {
	if arg == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return usecase.Input{}, fmt.Errorf("read stdin: %w", err)
		}
		return usecase.Input{Text: string(data)}, nil
	}

	data, err := os.ReadFile(arg)
	if err != nil {
		return usecase.Input{}, err
	}
	return usecase.Input{Filename: filepath.Base(arg), File: data}, nil
}

func printAssessment(w io.Writer, a *entity.Assessment) {
	fmt.Fprintf(w, "Service:   %s (%s)\n", a.Metadata.ServiceName, a.Metadata.ServiceNature)
	fmt.Fprintf(w, "Document:  %s, %s\n", a.Metadata.DocumentType, a.Metadata.DocumentLanguage)
	fmt.Fprintf(w, "Score:     %s (%s)\n", a.Summary.Score, a.Summary.Score.Description())
	fmt.Fprintf(w, "Comment:   %s\n", a.Summary.Comment)
	if a.Cached {
		fmt.Fprintln(w, "(from an earlier assessment of the same document)")
	}
	if a.RunDir != "" {
		fmt.Fprintf(w, "Log:       %s\n", a.RunDir)
	}
	fmt.Fprintf(w, "\n%s\n", a.Reasoning)
}
