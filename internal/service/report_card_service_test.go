package service

import (
	"context"
	"database/sql/driver"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-results-api/internal/grading"
	"github.com/noah-isme/sma-results-api/internal/models"
	appErrors "github.com/noah-isme/sma-results-api/pkg/errors"
)

type fakeStudents struct {
	students map[string]models.Student
}

func (f *fakeStudents) FindByID(_ context.Context, id string) (*models.Student, error) {
	s, ok := f.students[id]
	if !ok {
		return nil, errNotFound
	}
	return &s, nil
}

type fakeAttendance struct {
	summary *models.AttendanceSummary
	err     error
}

func (f *fakeAttendance) Summary(_ context.Context, _, _ string, _ models.Term) (*models.AttendanceSummary, error) {
	return f.summary, f.err
}

type fakeTraits struct {
	ratings []models.TraitRating
}

func (f *fakeTraits) ListRatings(_ context.Context, _, _ string, _ models.Term) ([]models.TraitRating, error) {
	return f.ratings, nil
}

type fakeSchools struct {
	school  *models.SchoolInfo
	session *models.SessionTermInfo
}

func (f *fakeSchools) FindSchool(_ context.Context, _ string) (*models.SchoolInfo, error) {
	if f.school == nil {
		return nil, errNotFound
	}
	return f.school, nil
}

func (f *fakeSchools) FindSessionTerm(_ context.Context, _ string, _ models.Term) (*models.SessionTermInfo, error) {
	if f.session == nil {
		return nil, errNotFound
	}
	return f.session, nil
}

func classRecord(id, studentID, subject string, ca1, exam float64) models.ScoreRecord {
	record := models.ScoreRecord{
		ID: id, StudentID: studentID, Subject: subject, SubjectKey: models.SubjectKey(subject),
		ClassID: "5", SessionID: "2024-2025", Term: models.TermFirst, ExamType: models.ExamTypeFinal,
		Components: []models.ScoreComponent{
			{ComponentID: "ca1", Label: "CA 1", Score: ca1, MaxScore: ptrFloat(20)},
			{ComponentID: "component-examination", Label: "Examination", Score: exam, MaxScore: ptrFloat(60)},
		},
	}
	grading.ApplyTotals(&record)
	return record
}

type reportFixture struct {
	scores     *fakeScoreStore
	locks      *fakeLockStore
	attendance *fakeAttendance
	schools    *fakeSchools
	svc        *ReportCardService
}

func newReportFixture() *reportFixture {
	scores := newFakeScoreStore()
	scores.add(
		classRecord("m1", "s1", "Mathematics", 18, 55),
		classRecord("e1", "s1", "English", 10, 30),
		classRecord("m2", "s2", "Mathematics", 20, 60),
		classRecord("e2", "s2", "English", 10, 30),
		classRecord("m3", "s3", "Mathematics", 18, 55),
		classRecord("x1", "s9", "Mathematics", 1, 1),
	)
	scores.records["x1"] = func() models.ScoreRecord { r := scores.records["x1"]; r.ClassID = "6"; return r }()

	schoolID := "sch-1"
	className := "JSS 1A"
	f := &reportFixture{
		scores:     scores,
		locks:      newFakeLockStore(),
		attendance: &fakeAttendance{summary: &models.AttendanceSummary{Present: 40, Late: 5, Absent: 5, Total: 50}},
		schools: &fakeSchools{
			school:  &models.SchoolInfo{ID: schoolID, Name: "Hillside College"},
			session: &models.SessionTermInfo{SessionID: "2024-2025", SessionName: "2024/2025", Term: models.TermFirst},
		},
	}
	f.svc = NewReportCardService(ReportCardDeps{
		Scores:     scores,
		Locks:      f.locks,
		Students:   &fakeStudents{students: map[string]models.Student{"s1": {ID: "s1", FullName: "Ada Obi", ClassID: "5", ClassName: &className, SchoolID: &schoolID}}},
		Attendance: f.attendance,
		Traits: &fakeTraits{ratings: []models.TraitRating{
			{Category: models.TraitAffective, Trait: "Punctuality", Rating: 7},
			{Category: models.TraitPsychomotor, Trait: "Handwriting", Rating: 0, Description: "Needs practice"},
		}},
		Schools: f.schools,
	}, nil, nil, nil)
	return f
}

var firstTermQuery = models.ReportCardQuery{SessionID: "2024-2025", Term: "FIRST"}

func TestReportCardServiceBuild(t *testing.T) {
	f := newReportFixture()

	card, err := f.svc.Build(context.Background(), adminActor(), "s1", firstTermQuery)
	require.NoError(t, err)

	assert.Equal(t, "Hillside College", card.School.Name)
	assert.Equal(t, "First Term", card.Session.TermLabel)
	assert.Equal(t, models.ExamTypeFinal, card.ExamType)
	require.Len(t, card.Subjects, 2)

	english, maths := card.Subjects[0], card.Subjects[1]
	assert.Equal(t, "English", english.Subject)
	assert.Equal(t, 1, english.Rank)
	assert.Equal(t, 2, english.ClassSize)
	assert.Equal(t, "D", english.Grade)

	assert.Equal(t, "Mathematics", maths.Subject)
	assert.Equal(t, 73.0, maths.Total)
	assert.Equal(t, 2, maths.Rank)
	assert.Equal(t, 3, maths.ClassSize)
	assert.Equal(t, 75.33, maths.ClassAvg)
	assert.Equal(t, "A", maths.Grade)
	assert.Equal(t, "Excellent", maths.Remark)
	require.NotNil(t, maths.CA1)
	assert.Equal(t, 18.0, *maths.CA1)
	require.NotNil(t, maths.Exam)
	assert.Equal(t, 55.0, *maths.Exam)
	assert.Nil(t, maths.CA2)

	summary := card.Summary
	assert.Equal(t, 113.0, summary.TotalScore)
	assert.Equal(t, 56.5, summary.Average)
	assert.Equal(t, 3, summary.Position)
	assert.Equal(t, 3, summary.ClassSize)
	assert.Equal(t, "B", summary.Grade)
	assert.Equal(t, "Mathematics", summary.BestSubject)
	assert.Equal(t, "English", summary.WeakestSubject)
	require.NotNil(t, summary.AttendancePercent)
	assert.Equal(t, 90.0, *summary.AttendancePercent)
	assert.Equal(t, "90.0%", summary.AttendanceLabel)

	require.Len(t, card.Traits, 2)
	assert.Equal(t, 5, card.Traits[0].Rating)
	assert.Equal(t, "Excellent", card.Traits[0].Description)
	assert.Equal(t, 1, card.Traits[1].Rating)
	assert.Equal(t, "Needs practice", card.Traits[1].Description)
	assert.Empty(t, card.Warnings)
}

func TestReportCardServiceSoftDefaults(t *testing.T) {
	f := newReportFixture()
	f.attendance.summary = nil
	f.attendance.err = errNotFound
	f.schools.session = nil

	card, err := f.svc.Build(context.Background(), adminActor(), "s1", firstTermQuery)
	require.NoError(t, err)
	assert.Nil(t, card.Summary.AttendancePercent)
	assert.Equal(t, "N/A", card.Summary.AttendanceLabel)
	assert.Equal(t, "2024-2025", card.Session.SessionID)
	assert.Len(t, card.Warnings, 2)
}

func TestReportCardServiceCollaboratorUnavailable(t *testing.T) {
	f := newReportFixture()
	f.attendance.err = fmt.Errorf("attendance: %w", driver.ErrBadConn)

	_, err := f.svc.Build(context.Background(), adminActor(), "s1", firstTermQuery)
	assert.ErrorIs(t, err, appErrors.ErrStoreUnavailable)
}

func TestReportCardServiceAccess(t *testing.T) {
	f := newReportFixture()
	ctx := context.Background()

	_, err := f.svc.Build(ctx, adminActor(), "missing", firstTermQuery)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = f.svc.Build(ctx, teacherActor(1, "6"), "s1", firstTermQuery)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = f.svc.Build(ctx, parentActor("s2"), "s1", firstTermQuery)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = f.svc.Build(ctx, parentActor("s1"), "s1", firstTermQuery)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	key := models.LockKey{ClassID: "5", SessionID: "2024-2025", Term: models.TermFirst, ExamType: models.ExamTypeFinal}
	_, err = f.locks.Mutate(ctx, key, func(l *models.ResultLock) error {
		return l.Apply(models.LockMutation{Action: models.LockActionLock, ActorID: "admin-1"})
	})
	require.NoError(t, err)

	card, err := f.svc.Build(ctx, parentActor("s1"), "s1", firstTermQuery)
	require.NoError(t, err)
	assert.Len(t, card.Subjects, 2)

	_, err = f.svc.Build(ctx, adminActor(), "s1", models.ReportCardQuery{SessionID: "2024-2025"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}
