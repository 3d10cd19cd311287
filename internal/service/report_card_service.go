package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/sma-results-api/internal/grading"
	"github.com/noah-isme/sma-results-api/internal/models"
	appErrors "github.com/noah-isme/sma-results-api/pkg/errors"
)

// StudentDirectory looks students up.
type StudentDirectory interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// AttendanceReader summarises attendance of a student for a term.
type AttendanceReader interface {
	Summary(ctx context.Context, studentID, sessionID string, term models.Term) (*models.AttendanceSummary, error)
}

// TraitReader lists psychomotor and affective ratings.
type TraitReader interface {
	ListRatings(ctx context.Context, studentID, sessionID string, term models.Term) ([]models.TraitRating, error)
}

// SchoolReader provides report card letterhead and calendar metadata.
type SchoolReader interface {
	FindSchool(ctx context.Context, id string) (*models.SchoolInfo, error)
	FindSessionTerm(ctx context.Context, sessionID string, term models.Term) (*models.SessionTermInfo, error)
}

var (
	ca1Aliases  = map[string]struct{}{"ca1": {}, "ca": {}, "firstca": {}, "test1": {}}
	ca2Aliases  = map[string]struct{}{"ca2": {}, "secondca": {}, "test2": {}}
	examAliases = map[string]struct{}{"exam": {}, "examination": {}, "final": {}}

	traitDescriptions = map[int]string{5: "Excellent", 4: "Very Good", 3: "Good", 2: "Fair", 1: "Poor"}
)

// ReportCardService composes report cards from stored scores and collaborator data. It never writes.
type ReportCardService struct {
	scores     ScoreLister
	locks      LockReader
	students   StudentDirectory
	attendance AttendanceReader
	traits     TraitReader
	schools    SchoolReader
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
}

// ReportCardDeps groups the collaborators of the report card service.
type ReportCardDeps struct {
	Scores     ScoreLister
	Locks      LockReader
	Students   StudentDirectory
	Attendance AttendanceReader
	Traits     TraitReader
	Schools    SchoolReader
}

// NewReportCardService constructs the aggregator.
func NewReportCardService(deps ReportCardDeps, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ReportCardService {
	if validate == nil {
		validate = NewValidator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportCardService{
		scores:     deps.Scores,
		locks:      deps.Locks,
		students:   deps.Students,
		attendance: deps.Attendance,
		traits:     deps.Traits,
		schools:    deps.Schools,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
	}
}

type reportInputs struct {
	records    []models.ScoreRecord
	attendance *models.AttendanceSummary
	traits     []models.TraitRating
	school     *models.SchoolInfo
	session    *models.SessionTermInfo

	mu       sync.Mutex
	warnings []string
}

func (in *reportInputs) warn(msg string) {
	in.mu.Lock()
	in.warnings = append(in.warnings, msg)
	in.mu.Unlock()
}

// Build composes the report card of studentID for a session and term.
func (s *ReportCardService) Build(ctx context.Context, actor *models.Actor, studentID string, query models.ReportCardQuery) (*models.ReportCard, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(query); err != nil {
		return nil, validationError("invalid report card query", fieldErrors(err, nil))
	}
	term, examType := parseGroup(query.Term, query.ExamType)
	if examType == "" {
		examType = models.ExamTypeFinal
	}

	if !actor.CanSeeStudent(studentID) {
		return nil, forbidden("student is outside your audience")
	}
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if isNoRows(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, storeError(err, "failed to load student")
	}
	if actor.IsTeacher && !actor.CanAccessClass(student.ClassID) {
		return nil, forbidden("student is outside your classes")
	}

	key := models.LockKey{ClassID: student.ClassID, SessionID: query.SessionID, Term: term, ExamType: examType}
	if actor.IsViewer() {
		locks, err := s.locks.FindMany(ctx, []models.LockKey{key})
		if err != nil {
			return nil, storeError(err, "failed to load result lock")
		}
		if !actor.CanView(locks[key.String()]) {
			return nil, forbidden("results for this term are not published yet")
		}
	}

	inputs, err := s.gather(ctx, student, key)
	if err != nil {
		s.logger.Error("report card inputs failed", zap.String("student_id", studentID), zap.String("key", key.String()), zap.Error(err))
		return nil, err
	}
	for _, w := range inputs.warnings {
		s.logger.Warn("report card inconsistency", zap.String("student_id", studentID), zap.String("key", key.String()), zap.String("warning", w))
	}

	card := composeReportCard(*student, key, inputs)
	s.metrics.RecordReportCard()
	return card, nil
}

// gather loads every collaborator concurrently. Missing rows degrade to defaults with a warning.
func (s *ReportCardService) gather(ctx context.Context, student *models.Student, key models.LockKey) (*reportInputs, error) {
	in := &reportInputs{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		records, err := s.scores.List(gctx, models.ScoreFilter{ClassID: key.ClassID, SessionID: key.SessionID, Term: key.Term, ExamType: key.ExamType})
		if err != nil {
			return storeError(err, "failed to load class scores")
		}
		in.records = records
		return nil
	})
	g.Go(func() error {
		summary, err := s.attendance.Summary(gctx, student.ID, key.SessionID, key.Term)
		switch {
		case isNoRows(err):
			in.warn("attendance summary missing")
		case err != nil:
			return storeError(err, "failed to load attendance")
		default:
			in.attendance = summary
		}
		return nil
	})
	g.Go(func() error {
		traits, err := s.traits.ListRatings(gctx, student.ID, key.SessionID, key.Term)
		switch {
		case isNoRows(err):
			in.warn("trait ratings missing")
		case err != nil:
			return storeError(err, "failed to load trait ratings")
		default:
			in.traits = traits
		}
		return nil
	})
	g.Go(func() error {
		info, err := s.schools.FindSessionTerm(gctx, key.SessionID, key.Term)
		switch {
		case isNoRows(err):
			in.warn("session term metadata missing")
		case err != nil:
			return storeError(err, "failed to load session metadata")
		default:
			in.session = info
		}
		return nil
	})
	if student.SchoolID != nil {
		schoolID := *student.SchoolID
		g.Go(func() error {
			school, err := s.schools.FindSchool(gctx, schoolID)
			switch {
			case isNoRows(err):
				in.warn("school metadata missing")
			case err != nil:
				return storeError(err, "failed to load school")
			default:
				in.school = school
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return in, nil
}

func composeReportCard(student models.Student, key models.LockKey, in *reportInputs) *models.ReportCard {
	card := &models.ReportCard{
		School:   in.school,
		Student:  student,
		ExamType: key.ExamType,
		Subjects: []models.ReportSubjectRow{},
		Traits:   normalizeTraits(in.traits),
	}
	if in.session != nil {
		card.Session = *in.session
	} else {
		card.Session = models.SessionTermInfo{SessionID: key.SessionID, SessionName: key.SessionID, Term: key.Term}
	}
	card.Session.TermLabel = key.Term.Label()

	// latest record per (student, subject); List returns most recent first
	latest := map[string]map[string]models.ScoreRecord{}
	for _, record := range in.records {
		bySubject, ok := latest[record.StudentID]
		if !ok {
			bySubject = map[string]models.ScoreRecord{}
			latest[record.StudentID] = bySubject
		}
		if _, seen := bySubject[record.SubjectKey]; !seen {
			bySubject[record.SubjectKey] = record
		}
	}

	own := latest[student.ID]
	if len(own) == 0 {
		in.warnings = append(in.warnings, "no results recorded for this term")
	}

	subjectKeys := make([]string, 0, len(own))
	for k := range own {
		subjectKeys = append(subjectKeys, k)
	}
	sort.Strings(subjectKeys)

	var total, pctSum float64
	for _, subjectKey := range subjectKeys {
		record := own[subjectKey]
		row := subjectRow(record)

		var classTotal float64
		for _, bySubject := range latest {
			other, ok := bySubject[subjectKey]
			if !ok {
				continue
			}
			row.ClassSize++
			classTotal += other.TotalScore
			if other.TotalScore > record.TotalScore {
				row.Rank++
			}
		}
		row.Rank++
		if row.ClassSize > 0 {
			row.ClassAvg = grading.Round(classTotal/float64(row.ClassSize), 2)
		}

		total += record.TotalScore
		pctSum += gradePercentage(record)
		card.Subjects = append(card.Subjects, row)
	}

	summary := models.ReportSummary{ClassSize: len(latest), AttendanceLabel: "N/A"}
	if n := len(card.Subjects); n > 0 {
		summary.TotalScore = grading.Round(total, 2)
		summary.Average = grading.Round(total/float64(n), 2)
		summary.Grade = grading.Resolve(pctSum / float64(n)).Grade
		summary.Position = 1
		for studentID, bySubject := range latest {
			if studentID != student.ID && averageTotal(bySubject) > summary.Average {
				summary.Position++
			}
		}
		summary.BestSubject, summary.WeakestSubject = bestAndWeakest(card.Subjects)
	}

	if in.attendance != nil && in.attendance.Total > 0 {
		card.Attendance = in.attendance
		pct := grading.Round(float64(in.attendance.Present+in.attendance.Late)/float64(in.attendance.Total)*100, 1)
		summary.AttendancePercent = &pct
		summary.AttendanceLabel = fmt.Sprintf("%.1f%%", pct)
	}

	card.Summary = summary
	card.Warnings = in.warnings
	return card
}

func subjectRow(record models.ScoreRecord) models.ReportSubjectRow {
	band := grading.GradeRecord(record)
	row := models.ReportSubjectRow{
		Subject:    record.Subject,
		Total:      record.TotalScore,
		MaxScore:   record.MaxScore,
		Percentage: record.Percentage,
		Grade:      band.Grade,
		Remark:     band.Remark,
	}
	for _, c := range record.Components {
		switch {
		case matchesAlias(c, ca1Aliases):
			row.CA1 = addScore(row.CA1, c.Score)
		case matchesAlias(c, ca2Aliases):
			row.CA2 = addScore(row.CA2, c.Score)
		case matchesAlias(c, examAliases):
			row.Exam = addScore(row.Exam, c.Score)
		}
	}
	return row
}

func matchesAlias(c models.ScoreComponent, aliases map[string]struct{}) bool {
	if _, ok := aliases[aliasKey(c.ComponentID)]; ok {
		return true
	}
	_, ok := aliases[aliasKey(c.Label)]
	return ok
}

func aliasKey(raw string) string {
	raw = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(raw)), "component-")
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, raw)
}

func addScore(current *float64, score float64) *float64 {
	v := score
	if current != nil {
		v += *current
	}
	v = grading.Round(v, 2)
	return &v
}

// gradePercentage is the record percentage, or the raw score rescaled by its exam type.
func gradePercentage(record models.ScoreRecord) float64 {
	if record.Percentage != nil {
		return *record.Percentage
	}
	return record.TotalScore / record.ExamType.Scale() * 100
}

func averageTotal(bySubject map[string]models.ScoreRecord) float64 {
	if len(bySubject) == 0 {
		return 0
	}
	var sum float64
	for _, record := range bySubject {
		sum += record.TotalScore
	}
	return grading.Round(sum/float64(len(bySubject)), 2)
}

func bestAndWeakest(rows []models.ReportSubjectRow) (string, string) {
	best, weakest := rows[0], rows[0]
	for _, row := range rows[1:] {
		if row.Total > best.Total {
			best = row
		}
		if row.Total < weakest.Total {
			weakest = row
		}
	}
	return best.Subject, weakest.Subject
}

func normalizeTraits(ratings []models.TraitRating) []models.TraitRating {
	out := make([]models.TraitRating, 0, len(ratings))
	for _, r := range ratings {
		r.Rating = int(grading.Clamp(float64(r.Rating), 1, 5))
		if strings.TrimSpace(r.Description) == "" {
			r.Description = traitDescriptions[r.Rating]
		}
		out = append(out, r)
	}
	return out
}
