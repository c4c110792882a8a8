package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/AurelMV/cbt-admin-api/internal/models"
	appErrors "github.com/AurelMV/cbt-admin-api/pkg/errors"
	"github.com/AurelMV/cbt-admin-api/pkg/export"
)

// ReportFormat selects the rendered output type.
type ReportFormat string

const (
	ReportFormatCSV ReportFormat = "csv"
	ReportFormatPDF ReportFormat = "pdf"
)

type exportCycleReader interface {
	FindByID(ctx context.Context, id string) (*models.Cycle, error)
	SessionDates(ctx context.Context, cycleID string) ([]time.Time, error)
}

type exportStudentLister interface {
	ListByCycle(ctx context.Context, cycleID string) ([]models.Student, error)
}

type exportMarksReader interface {
	MarksByCycle(ctx context.Context, cycleID string) (map[string]map[string]bool, error)
}

type statsEvaluator interface {
	Evaluate(sessionDates []time.Time, minPct int, attendance map[string]bool) models.AttendanceStats
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

type reportFileStorage interface {
	Save(filename string, data []byte) (string, error)
}

// ExportResult carries a rendered report ready for streaming.
type ExportResult struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ExportService renders attendance sheets as CSV or PDF files.
type ExportService struct {
	cycles    exportCycleReader
	students  exportStudentLister
	marks     exportMarksReader
	evaluator statsEvaluator
	storage   reportFileStorage
	csv       csvRenderer
	pdf       pdfRenderer
	logger    *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(cycles exportCycleReader, students exportStudentLister, marks exportMarksReader, evaluator statsEvaluator, storage reportFileStorage, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		cycles:    cycles,
		students:  students,
		marks:     marks,
		evaluator: evaluator,
		storage:   storage,
		csv:       csv,
		pdf:       pdf,
		logger:    logger,
	}
}

// AttendanceSheet renders the attendance matrix of a cycle in the requested format.
func (s *ExportService) AttendanceSheet(ctx context.Context, cycleID string, format ReportFormat) (*ExportResult, error) {
	cycle, err := s.cycles.FindByID(ctx, cycleID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "cycle not found")
	}
	dates, err := s.cycles.SessionDates(ctx, cycleID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session dates")
	}
	students, err := s.students.ListByCycle(ctx, cycleID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	marks, err := s.marks.MarksByCycle(ctx, cycleID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance marks")
	}

	dataset := s.buildDataset(cycle, dates, students, marks)
	title := fmt.Sprintf("Asistencia - %s", cycle.Name)

	var payload []byte
	switch format {
	case ReportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case ReportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported format %q", format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}

	filename := s.buildFilename(cycle, format)
	if s.storage != nil {
		if _, err := s.storage.Save(filename, payload); err != nil {
			s.logger.Warn("failed to archive rendered report", zap.String("filename", filename), zap.Error(err))
		}
	}

	contentType := "text/csv"
	if format == ReportFormatPDF {
		contentType = "application/pdf"
	}
	return &ExportResult{Filename: filename, ContentType: contentType, Payload: payload}, nil
}

func (s *ExportService) buildDataset(cycle *models.Cycle, dates []time.Time, students []models.Student, marks map[string]map[string]bool) export.Dataset {
	headers := []string{"Documento", "Estudiante", "Grupo"}
	for _, d := range dates {
		headers = append(headers, models.DateKey(d))
	}
	headers = append(headers, "Asistencias", "Sesiones", "Porcentaje", "Estado")

	rows := make([]map[string]string, 0, len(students))
	for _, st := range students {
		attendance := marks[st.ID]
		stats := s.evaluator.Evaluate(dates, cycle.MinPct, attendance)

		row := map[string]string{
			"Documento":  st.Document,
			"Estudiante": st.FullName,
			"Grupo":      st.GroupLabel,
		}
		for _, d := range dates {
			key := models.DateKey(d)
			present, marked := attendance[key]
			switch {
			case marked && present:
				row[key] = "P"
			case marked:
				row[key] = "F"
			default:
				row[key] = "-"
			}
		}
		row["Asistencias"] = fmt.Sprintf("%d", stats.Attended)
		row["Sesiones"] = fmt.Sprintf("%d", stats.Total)
		row["Porcentaje"] = fmt.Sprintf("%d%%", stats.Pct)
		row["Estado"] = string(st.Status)
		rows = append(rows, row)
	}

	return export.Dataset{Headers: headers, Rows: rows}
}

func (s *ExportService) buildFilename(cycle *models.Cycle, format ReportFormat) string {
	name := strings.ToLower(strings.ReplaceAll(cycle.Name, " ", "_"))
	return fmt.Sprintf("asistencia_%s_%s.%s", name, time.Now().UTC().Format("20060102_150405"), format)
}
