package models

// SchoolInfo is the letterhead of a report card.
type SchoolInfo struct {
	ID      string  `db:"id" json:"id"`
	Name    string  `db:"name" json:"name"`
	Address *string `db:"address" json:"address,omitempty"`
	Motto   *string `db:"motto" json:"motto,omitempty"`
	LogoURL *string `db:"logo_url" json:"logo_url,omitempty"`
}

// SessionTermInfo carries the calendar facts printed on a report card.
type SessionTermInfo struct {
	SessionID     string  `db:"session_id" json:"session_id"`
	SessionName   string  `db:"session_name" json:"session_name"`
	Term          Term    `db:"term" json:"term"`
	TermLabel     string  `db:"-" json:"term_label"`
	TermStartsOn  *string `db:"starts_on" json:"starts_on,omitempty"`
	TermEndsOn    *string `db:"ends_on" json:"ends_on,omitempty"`
	NextTermBegin *string `db:"next_term_begins" json:"next_term_begins,omitempty"`
}

// ReportSubjectRow is one subject line of a report card.
type ReportSubjectRow struct {
	Subject    string   `json:"subject"`
	CA1        *float64 `json:"ca1,omitempty"`
	CA2        *float64 `json:"ca2,omitempty"`
	Exam       *float64 `json:"exam,omitempty"`
	Total      float64  `json:"total"`
	MaxScore   *float64 `json:"max_score,omitempty"`
	Percentage *float64 `json:"percentage,omitempty"`
	Grade      string   `json:"grade"`
	Remark     string   `json:"remark"`
	Rank       int      `json:"rank"`
	ClassSize  int      `json:"class_size"`
	ClassAvg   float64  `json:"class_average"`
}

// ReportSummary aggregates a student's term.
type ReportSummary struct {
	TotalScore        float64  `json:"total_score"`
	Average           float64  `json:"average"`
	Position          int      `json:"position"`
	ClassSize         int      `json:"class_size"`
	Grade             string   `json:"grade"`
	AttendancePercent *float64 `json:"attendance_percent"`
	AttendanceLabel   string   `json:"attendance_label"`
	BestSubject       string   `json:"best_subject,omitempty"`
	WeakestSubject    string   `json:"weakest_subject,omitempty"`
}

// AttendanceSummary counts a student's attendance for a term.
type AttendanceSummary struct {
	Present int `db:"present" json:"present"`
	Late    int `db:"late" json:"late"`
	Absent  int `db:"absent" json:"absent"`
	Total   int `db:"total" json:"total"`
}

// Trait categories.
const (
	TraitPsychomotor = "psychomotor"
	TraitAffective   = "affective"
)

// TraitRating is a 1 to 5 rating of a behavioural trait.
type TraitRating struct {
	Category    string `db:"category" json:"category"`
	Trait       string `db:"trait" json:"trait"`
	Rating      int    `db:"rating" json:"rating"`
	Description string `db:"description" json:"description"`
}

// Student is the directory entry of a learner.
type Student struct {
	ID              string  `db:"id" json:"id"`
	FullName        string  `db:"full_name" json:"full_name"`
	AdmissionNumber *string `db:"admission_number" json:"admission_number,omitempty"`
	ClassID         string  `db:"class_id" json:"class_id"`
	ClassName       *string `db:"class_name" json:"class_name,omitempty"`
	SchoolID        *string `db:"school_id" json:"school_id,omitempty"`
	Gender          *string `db:"gender" json:"gender,omitempty"`
}

// ReportCard is computed per request and never stored.
type ReportCard struct {
	School     *SchoolInfo        `json:"school,omitempty"`
	Session    SessionTermInfo    `json:"session"`
	Student    Student            `json:"student"`
	ExamType   ExamType           `json:"exam_type"`
	Subjects   []ReportSubjectRow `json:"subjects"`
	Summary    ReportSummary      `json:"summary"`
	Attendance *AttendanceSummary `json:"attendance,omitempty"`
	Traits     []TraitRating      `json:"traits"`
	Warnings   []string           `json:"warnings,omitempty"`
}

// ReportCardQuery identifies the report card to build.
type ReportCardQuery struct {
	SessionID string `form:"session_id" validate:"required"`
	Term      string `form:"term" validate:"required,term"`
	ExamType  string `form:"exam_type" validate:"omitempty,examtype"`
}

// AcademicSession is a school year such as 2024-2025.
type AcademicSession struct {
	ID        string  `db:"id" json:"id"`
	Name      string  `db:"name" json:"name"`
	IsCurrent bool    `db:"is_current" json:"is_current"`
	StartsOn  *string `db:"starts_on" json:"starts_on,omitempty"`
	EndsOn    *string `db:"ends_on" json:"ends_on,omitempty"`
}

// TeacherAssignment links a teacher to a class and subject.
type TeacherAssignment struct {
	TeacherID   int64  `db:"teacher_id" json:"teacher_id"`
	ClassID     string `db:"class_id" json:"class_id"`
	SubjectName string `db:"subject_name" json:"subject_name"`
}
