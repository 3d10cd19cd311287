package main

import (
	"fmt"
	"os/user"

	"github.com/spf13/cobra"

	"github.com/noah-isme/sma-results-api/internal/models"
	"github.com/noah-isme/sma-results-api/internal/repository"
	"github.com/noah-isme/sma-results-api/internal/service"
)

func lockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lock",
		Short: "List or change result locks",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List result locks",
		RunE:  runLockList,
	}
	list.Flags().String("session", "", "Session id")
	list.Flags().String("class", "", "Class id")
	list.Flags().String("term", "", "Term")
	list.Flags().String("exam-type", "", "Exam type")

	apply := &cobra.Command{
		Use:   "apply <lock|unlock|grant|revoke>",
		Short: "Apply a lock transition as an administrator",
		Args:  cobra.ExactArgs(1),
		RunE:  runLockApply,
	}
	apply.Flags().String("session", "", "Session id (required)")
	apply.Flags().String("class", "", "Class id (required)")
	apply.Flags().String("term", "", "Term (required)")
	apply.Flags().String("exam-type", "", "Exam type (required)")
	apply.Flags().Int64("teacher", 0, "Teacher id for grant and revoke")
	apply.Flags().String("notes", "", "Notes stored on the lock")
	for _, name := range []string{"session", "class", "term", "exam-type"} {
		_ = apply.MarkFlagRequired(name)
	}

	cmd.AddCommand(list, apply)
	return cmd
}

// operatorActor is the admin identity CLI mutations are recorded under.
func operatorActor() *models.Actor {
	name := "resultsctl"
	if u, err := user.Current(); err == nil && u.Username != "" {
		name = "resultsctl:" + u.Username
	}
	return models.NewActor(name, models.RoleAdmin)
}

func newLockService(rt *runtime) *service.ResultLockService {
	return service.NewResultLockService(repository.NewResultLockRepository(rt.db), nil, nil, rt.logger)
}

func runLockList(cmd *cobra.Command, _ []string) error {
	rt, err := newRuntime(cmd, false)
	if err != nil {
		return err
	}
	defer rt.close()

	query := models.ResultLockQuery{}
	query.SessionID, _ = cmd.Flags().GetString("session")
	query.ClassID, _ = cmd.Flags().GetString("class")
	query.Term, _ = cmd.Flags().GetString("term")
	query.ExamType, _ = cmd.Flags().GetString("exam-type")

	locks, err := newLockService(rt).List(cmd.Context(), operatorActor(), query)
	if err != nil {
		return err
	}
	return printLocks(cmd, locks)
}

func runLockApply(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cmd, false)
	if err != nil {
		return err
	}
	defer rt.close()

	req := models.LockMutationRequest{}
	req.SessionID, _ = cmd.Flags().GetString("session")
	req.ClassID, _ = cmd.Flags().GetString("class")
	req.Term, _ = cmd.Flags().GetString("term")
	req.ExamType, _ = cmd.Flags().GetString("exam-type")
	req.TeacherID, _ = cmd.Flags().GetInt64("teacher")
	if notes, _ := cmd.Flags().GetString("notes"); notes != "" {
		req.Notes = &notes
	}

	summary, err := newLockService(rt).Mutate(cmd.Context(), operatorActor(), args[0], req)
	if err != nil {
		return err
	}
	return printLocks(cmd, []models.LockSummary{*summary})
}

func printLocks(cmd *cobra.Command, locks []models.LockSummary) error {
	out := cmd.OutOrStdout()
	if outputFormat(cmd) == "json" {
		return printJSON(out, locks)
	}
	rows := make([][]string, 0, len(locks))
	for _, lock := range locks {
		rows = append(rows, []string{lock.ClassID, lock.SessionID, string(lock.Term), string(lock.ExamType), lock.State, fmt.Sprint(lock.AllowedTeacherIDs)})
	}
	return renderTable(out, []string{"Class", "Session", "Term", "Exam", "State", "Overrides"}, rows)
}
