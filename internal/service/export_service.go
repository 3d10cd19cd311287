package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-results-api/internal/grading"
	"github.com/noah-isme/sma-results-api/internal/models"
	"github.com/noah-isme/sma-results-api/pkg/export"
)

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(doc export.Document) ([]byte, error)
}

type scoreReader interface {
	List(ctx context.Context, actor *models.Actor, query models.ScoreQuery) ([]models.ScoreRecord, error)
}

type reportCardBuilder interface {
	Build(ctx context.Context, actor *models.Actor, studentID string, query models.ReportCardQuery) (*models.ReportCard, error)
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportService renders score sheets and report cards as files. Access rules are those of the underlying reads.
type ExportService struct {
	scores  scoreReader
	reports reportCardBuilder
	csv     csvRenderer
	pdf     pdfRenderer
	logger  *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(scores scoreReader, reports reportCardBuilder, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{scores: scores, reports: reports, csv: csv, pdf: pdf, logger: logger}
}

var scoreSheetHeaders = []string{"student_id", "subject", "class_id", "session_id", "term", "exam_type", "components", "total_score", "max_score", "percentage"}

// ScoreSheet renders the scores matching query as CSV.
func (s *ExportService) ScoreSheet(ctx context.Context, actor *models.Actor, query models.ScoreQuery) (*ExportFile, error) {
	records, err := s.scores.List(ctx, actor, query)
	if err != nil {
		return nil, err
	}

	dataset := export.Dataset{Headers: scoreSheetHeaders, Rows: make([]map[string]string, 0, len(records))}
	for _, r := range records {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"student_id":  r.StudentID,
			"subject":     r.Subject,
			"class_id":    r.ClassID,
			"session_id":  r.SessionID,
			"term":        string(r.Term),
			"exam_type":   string(r.ExamType),
			"components":  componentSummary(r.Components),
			"total_score": formatNumber(&r.TotalScore),
			"max_score":   formatNumber(r.MaxScore),
			"percentage":  formatNumber(r.Percentage),
		})
	}

	body, err := s.csv.Render(dataset)
	if err != nil {
		s.logger.Error("failed to render score sheet", zap.Error(err))
		return nil, internalError(err, "failed to render score sheet")
	}
	return &ExportFile{Filename: exportName("scores", query.SessionID, query.Term, query.ClassID) + ".csv", ContentType: "text/csv", Body: body}, nil
}

// ReportCardPDF renders the report card of studentID.
func (s *ExportService) ReportCardPDF(ctx context.Context, actor *models.Actor, studentID string, query models.ReportCardQuery) (*ExportFile, error) {
	card, err := s.reports.Build(ctx, actor, studentID, query)
	if err != nil {
		return nil, err
	}

	body, err := s.pdf.Render(reportCardDocument(card))
	if err != nil {
		s.logger.Error("failed to render report card", zap.String("student_id", studentID), zap.Error(err))
		return nil, internalError(err, "failed to render report card")
	}
	return &ExportFile{Filename: exportName("report-card", studentID, query.SessionID, string(card.Session.Term)) + ".pdf", ContentType: "application/pdf", Body: body}, nil
}

func reportCardDocument(card *models.ReportCard) export.Document {
	title := "Report Card"
	if card.School != nil {
		title = card.School.Name
	}
	doc := export.Document{
		Title:    title,
		Subtitle: fmt.Sprintf("%s %s - %s", card.Session.SessionName, card.Session.TermLabel, card.ExamType.Title()),
		Fields: []export.Field{
			{Label: "Student", Value: card.Student.FullName},
			{Label: "Class", Value: deref(card.Student.ClassName, card.Student.ClassID)},
			{Label: "Admission No.", Value: deref(card.Student.AdmissionNumber, "-")},
			{Label: "Total", Value: formatNumber(&card.Summary.TotalScore)},
			{Label: "Average", Value: formatNumber(&card.Summary.Average)},
			{Label: "Position", Value: fmt.Sprintf("%d of %d", card.Summary.Position, card.Summary.ClassSize)},
			{Label: "Grade", Value: card.Summary.Grade},
			{Label: "Attendance", Value: card.Summary.AttendanceLabel},
			{Label: "Best Subject", Value: card.Summary.BestSubject},
			{Label: "Weakest Subject", Value: card.Summary.WeakestSubject},
		},
	}

	subjects := export.Dataset{Headers: []string{"Subject", "CA1", "CA2", "Exam", "Total", "Grade", "Remark", "Rank", "Class Avg"}}
	for _, row := range card.Subjects {
		subjects.Rows = append(subjects.Rows, map[string]string{
			"Subject":   row.Subject,
			"CA1":       formatNumber(row.CA1),
			"CA2":       formatNumber(row.CA2),
			"Exam":      formatNumber(row.Exam),
			"Total":     formatNumber(&row.Total),
			"Grade":     row.Grade,
			"Remark":    row.Remark,
			"Rank":      fmt.Sprintf("%d/%d", row.Rank, row.ClassSize),
			"Class Avg": formatNumber(&row.ClassAvg),
		})
	}
	doc.Sections = append(doc.Sections, export.Section{Title: "Subjects", Data: subjects})

	if len(card.Traits) > 0 {
		traits := export.Dataset{Headers: []string{"Category", "Trait", "Rating", "Description"}}
		for _, t := range card.Traits {
			traits.Rows = append(traits.Rows, map[string]string{
				"Category":    t.Category,
				"Trait":       t.Trait,
				"Rating":      strconv.Itoa(t.Rating),
				"Description": t.Description,
			})
		}
		doc.Sections = append(doc.Sections, export.Section{Title: "Traits", Data: traits})
	}
	if card.Session.NextTermBegin != nil {
		doc.Footer = "Next term begins " + *card.Session.NextTermBegin
	}
	return doc
}

func componentSummary(components []models.ScoreComponent) string {
	parts := make([]string, len(components))
	for i, c := range components {
		part := c.ComponentID + "=" + formatNumber(&c.Score)
		if c.MaxScore != nil {
			part += "/" + formatNumber(c.MaxScore)
		}
		parts[i] = part
	}
	return strings.Join(parts, "; ")
}

func formatNumber(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(grading.Round(*v, 2), 'f', -1, 64)
}

func deref(v *string, fallback string) string {
	if v == nil || *v == "" {
		return fallback
	}
	return *v
}

func exportName(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		kept = append(kept, strings.Map(func(r rune) rune {
			switch {
			case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
				return r
			default:
				return '_'
			}
		}, p))
	}
	return strings.Join(kept, "_")
}
