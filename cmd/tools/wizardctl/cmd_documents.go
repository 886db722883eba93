package main

import (
	"fmt"
	"os"
	"path/filepath"

	"divorce-wizard/internal/common/logger"
	"divorce-wizard/internal/documents/generate"
	"divorce-wizard/internal/documents/template"
	"divorce-wizard/internal/models"
	"divorce-wizard/internal/wizard/questions"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

func newQuestionsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "questions", Short: "Inspect the claim question schemas"}

	var schemaOnly bool
	dump := &cobra.Command{
		Use:   "dump [claim]",
		Short: "Print the resolved fields of one claim, or list the claims",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := questions.Load()
			if err != nil {
				return err
			}
			if len(args) == 0 {
				return printJSON(cmd.OutOrStdout(), registry.Claims())
			}
			claim := models.ClaimType(args[0])
			if schemaOnly {
				schema, err := registry.JSONSchema(claim)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), schema)
			}
			compiled, err := registry.Get(claim)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), compiled)
		},
	}
	dump.Flags().BoolVar(&schemaOnly, "schema", false, "print the JSON Schema instead of the field tree")
	cmd.AddCommand(dump)
	return cmd
}

// newRenderCmd renders a document locally from a JSON DocumentData file,
// without touching any datastore.
func newRenderCmd() *cobra.Command {
	var (
		dataPath string
		outDir   string
		strict   bool
		form     bool
		formsDir string
		fontPath string
	)
	cmd := &cobra.Command{
		Use:   "render <claim|power-of-attorney|form>",
		Short: "Render a DOCX (or, with --form, a PDF form) from a data file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(dataPath)
			if err != nil {
				return err
			}
			var data models.DocumentData
			if err := json.Unmarshal(raw, &data); err != nil {
				return fmt.Errorf("parse %s: %w", dataPath, err)
			}

			mode := template.ModeLenient
			if strict {
				mode = template.ModeStrict
			}
			registry, err := questions.Load()
			if err != nil {
				return err
			}
			svc := generate.NewService(generate.Config{FormsDir: formsDir, FontPath: fontPath},
				template.New(mode), registry, nil, logger.NewNoOpLogger())

			var doc *models.GeneratedDocument
			if form {
				doc, err = svc.RenderForm(cmd.Context(), args[0], data)
			} else {
				doc, err = svc.Generate(cmd.Context(), args[0], data)
			}
			if err != nil {
				return err
			}

			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}
			path := filepath.Join(outDir, doc.FileName)
			if err := os.WriteFile(path, doc.Data, 0o644); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVar(&dataPath, "data", "", "JSON file holding basicInfo, formData, selectedClaims and children")
	cmd.Flags().StringVar(&outDir, "out", ".", "output directory")
	cmd.Flags().BoolVar(&strict, "strict", false, "fail on unresolved template tokens")
	cmd.Flags().BoolVar(&form, "form", false, "render a PDF form overlay instead of a DOCX")
	cmd.Flags().StringVar(&formsDir, "forms-dir", "forms", "directory of form page images and layouts")
	cmd.Flags().StringVar(&fontPath, "font", "", "TTF font for form overlays")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}
