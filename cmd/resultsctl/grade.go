package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/noah-isme/sma-results-api/internal/grading"
	"github.com/noah-isme/sma-results-api/internal/models"
)

func gradeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grade [percentage]",
		Short: "Print the grading table or resolve a band",
		Example: `  resultsctl grade
  resultsctl grade 67.5
  resultsctl grade --score 31 --exam-type midterm`,
		Args: cobra.MaximumNArgs(1),
		RunE: runGrade,
	}
	cmd.Flags().Float64("score", -1, "Raw score to grade on the exam type scale")
	cmd.Flags().String("exam-type", string(models.ExamTypeFinal), "midterm (out of 50) or final (out of 100)")
	return cmd
}

func runGrade(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if len(args) == 1 {
		pct, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("percentage must be a number: %w", err)
		}
		return printBands(cmd, []grading.Band{grading.Resolve(pct)})
	}

	if cmd.Flags().Changed("score") {
		score, _ := cmd.Flags().GetFloat64("score")
		rawExam, _ := cmd.Flags().GetString("exam-type")
		examType, ok := models.ParseExamType(rawExam)
		if !ok {
			return fmt.Errorf("unknown exam type %q", rawExam)
		}
		return printBands(cmd, []grading.Band{grading.ResolveScore(examType, score)})
	}

	if outputFormat(cmd) == "json" {
		return printJSON(out, grading.Bands())
	}
	return printBands(cmd, grading.Bands())
}

func printBands(cmd *cobra.Command, bands []grading.Band) error {
	out := cmd.OutOrStdout()
	if outputFormat(cmd) == "json" {
		if len(bands) == 1 {
			return printJSON(out, bands[0])
		}
		return printJSON(out, bands)
	}
	rows := make([][]string, 0, len(bands))
	for _, band := range bands {
		rows = append(rows, []string{band.Grade, band.Remark, fmt.Sprintf("%.0f%%", band.MinPercentage)})
	}
	return renderTable(out, []string{"Grade", "Remark", "From"}, rows)
}
