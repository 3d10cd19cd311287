package models

import "strings"

// Term is one of the three academic periods of a session.
type Term string

const (
	TermFirst  Term = "FIRST"
	TermSecond Term = "SECOND"
	TermThird  Term = "THIRD"
)

// Terms lists terms in calendar order.
var Terms = []Term{TermFirst, TermSecond, TermThird}

// ParseTerm accepts FIRST, first, "First Term", 1 and similar spellings.
func ParseTerm(raw string) (Term, bool) {
	value := strings.ToUpper(strings.TrimSpace(raw))
	value = strings.TrimSuffix(value, " TERM")
	value = strings.TrimSuffix(value, "_TERM")
	switch value {
	case "FIRST", "1", "1ST":
		return TermFirst, true
	case "SECOND", "2", "2ND":
		return TermSecond, true
	case "THIRD", "3", "3RD":
		return TermThird, true
	default:
		return "", false
	}
}

// Label returns the human label, e.g. "First Term".
func (t Term) Label() string {
	switch t {
	case TermFirst:
		return "First Term"
	case TermSecond:
		return "Second Term"
	case TermThird:
		return "Third Term"
	default:
		return "All Terms"
	}
}

// ExamType distinguishes continuous assessment (midterm) from end of term (final) results.
type ExamType string

const (
	ExamTypeMidterm ExamType = "midterm"
	ExamTypeFinal   ExamType = "final"
)

// ParseExamType is case-insensitive and tolerates mid-term/mid_term spellings.
func ParseExamType(raw string) (ExamType, bool) {
	value := strings.ToLower(strings.TrimSpace(raw))
	value = strings.NewReplacer("-", "", "_", "", " ", "").Replace(value)
	switch value {
	case "midterm":
		return ExamTypeMidterm, true
	case "final", "exam", "terminal":
		return ExamTypeFinal, true
	default:
		return "", false
	}
}

// Title returns the assessment title suffix used by distribution groups.
func (e ExamType) Title() string {
	if e == ExamTypeMidterm {
		return "Midterm Assessment"
	}
	return "Final Examination"
}

// Scale is the raw score ceiling teachers grade against.
func (e ExamType) Scale() float64 {
	if e == ExamTypeMidterm {
		return 50
	}
	return 100
}
