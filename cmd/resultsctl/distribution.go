package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/noah-isme/sma-results-api/internal/models"
	"github.com/noah-isme/sma-results-api/internal/repository"
	"github.com/noah-isme/sma-results-api/internal/service"
)

func distributionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "distribution",
		Short: "Inspect or warm mark distributions",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Compute the mark distribution of a session",
		RunE:  runDistributionShow,
	}
	show.Flags().String("session", "", "Session id, e.g. 2024-2025 (required)")
	show.Flags().String("term", "", "FIRST, SECOND or THIRD")
	show.Flags().String("class", "", "Class id")
	show.Flags().String("exam-type", "", "midterm or final")
	show.Flags().String("school", "", "School id for school specific templates")
	_ = show.MarkFlagRequired("session")

	warm := &cobra.Command{
		Use:   "warm",
		Short: "Recompute and cache the distribution of a group",
		RunE:  runDistributionWarm,
	}
	warm.Flags().String("session", "", "Session id (required)")
	warm.Flags().String("term", "", "Term (required)")
	warm.Flags().String("exam-type", "", "Exam type (required)")
	_ = warm.MarkFlagRequired("session")
	_ = warm.MarkFlagRequired("term")
	_ = warm.MarkFlagRequired("exam-type")

	cmd.AddCommand(show, warm)
	return cmd
}

func newDistributionService(rt *runtime) *service.MarkDistributionService {
	scores := repository.NewScoreRepository(rt.db)
	templates := repository.NewDistributionTemplateRepository(rt.db)
	return service.NewMarkDistributionService(scores, templates, rt.cache, nil, rt.logger, rt.cfg.Results.DistributionCacheTTL)
}

func runDistributionShow(cmd *cobra.Command, _ []string) error {
	rt, err := newRuntime(cmd, false)
	if err != nil {
		return err
	}
	defer rt.close()

	query := models.DistributionQuery{}
	query.SessionID, _ = cmd.Flags().GetString("session")
	query.Term, _ = cmd.Flags().GetString("term")
	query.ClassID, _ = cmd.Flags().GetString("class")
	query.ExamType, _ = cmd.Flags().GetString("exam-type")
	query.SchoolID, _ = cmd.Flags().GetString("school")

	groups, err := newDistributionService(rt).Get(cmd.Context(), query)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if outputFormat(cmd) == "json" {
		return printJSON(out, groups)
	}
	var rows [][]string
	for _, group := range groups {
		for _, component := range group.Components {
			rows = append(rows, []string{group.Title, group.Source, strconv.Itoa(group.RecordCount), component.Label, fmt.Sprintf("%.2f", component.Weight)})
		}
	}
	return renderTable(out, []string{"Group", "Source", "Records", "Component", "Weight"}, rows)
}

func runDistributionWarm(cmd *cobra.Command, _ []string) error {
	rt, err := newRuntime(cmd, true)
	if err != nil {
		return err
	}
	defer rt.close()

	if !rt.cache.Enabled() {
		return fmt.Errorf("cache is disabled, nothing to warm")
	}

	sessionID, _ := cmd.Flags().GetString("session")
	rawTerm, _ := cmd.Flags().GetString("term")
	rawExam, _ := cmd.Flags().GetString("exam-type")
	term, ok := models.ParseTerm(rawTerm)
	if !ok {
		return fmt.Errorf("unknown term %q", rawTerm)
	}
	examType, ok := models.ParseExamType(rawExam)
	if !ok {
		return fmt.Errorf("unknown exam type %q", rawExam)
	}

	if err := newDistributionService(rt).Warm(cmd.Context(), sessionID, term, examType); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "warmed %s %s %s\n", sessionID, term, examType)
	return nil
}
