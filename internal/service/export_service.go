package service

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/stemsi/mtq-judge/internal/model"
)

// SubmissionReader reads a judge's audit trail.
type SubmissionReader interface {
	ListByJudge(ctx context.Context, judgeID int, f model.SubmissionFilter) ([]model.SubmissionRecord, int, error)
	ListAllByJudge(ctx context.Context, judgeID int) ([]model.SubmissionRecord, error)
}

const (
	summarySheet = "Ringkasan"
	detailSheet  = "Rincian"
)

var (
	summaryHeader = []string{"Waktu", "Babak", "Peserta", "Total", "Pesan"}
	detailHeader  = []string{"Waktu", "Babak", "Peserta", "Soal", "Bacaan", "Sifat", "Makharij", "Kesalahan Kecil", "Total Soal", "Catatan"}
)

// ExportService lists and exports the submissions a judge made.
type ExportService struct {
	repo SubmissionReader
}

// NewExportService creates a new ExportService.
func NewExportService(repo SubmissionReader) *ExportService {
	return &ExportService{repo: repo}
}

// List returns one page of the judge's submissions.
func (s *ExportService) List(ctx context.Context, judgeID int, f model.SubmissionFilter) ([]model.SubmissionRecord, int, error) {
	f.Normalize()
	return s.repo.ListByJudge(ctx, judgeID, f)
}

// Export writes every submission of the judge as an xlsx workbook to w.
func (s *ExportService) Export(ctx context.Context, judgeID int, w io.Writer) error {
	records, err := s.repo.ListAllByJudge(ctx, judgeID)
	if err != nil {
		return fmt.Errorf("list submissions: %w", err)
	}

	f, err := BuildSubmissionWorkbook(records)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// BuildSubmissionWorkbook lays out one summary row per submission and one
// detail row per question.
func BuildSubmissionWorkbook(records []model.SubmissionRecord) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(detailSheet); err != nil {
		return nil, fmt.Errorf("new sheet: %w", err)
	}

	bold, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})

	summary := make([][]any, 0, len(records))
	detail := make([][]any, 0, len(records)*5)
	for _, rec := range records {
		at := rec.SubmittedAt.Format("2006-01-02 15:04:05")
		summary = append(summary, []any{at, rec.RoundID, rec.CandidateID, rec.Total, rec.Message})
		for _, q := range rec.Questions {
			detail = append(detail, []any{
				at, rec.RoundID, rec.CandidateID, q.QuestionNumber,
				q.Recitation, q.Siffat, q.Makharij, q.MinorError, q.Total, q.Comment,
			})
		}
	}

	if err := writeSheet(f, summarySheet, summaryHeader, summary, bold); err != nil {
		return nil, err
	}
	if err := writeSheet(f, detailSheet, detailHeader, detail, bold); err != nil {
		return nil, err
	}
	return f, nil
}

func writeSheet(f *excelize.File, sheet string, header []string, rows [][]any, style int) error {
	for col, h := range header {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellStr(sheet, cell, h); err != nil {
			return fmt.Errorf("set cell %s: %w", cell, err)
		}
	}
	end, _ := excelize.CoordinatesToCellName(len(header), 1)
	_ = f.SetCellStyle(sheet, "A1", end, style)
	_ = f.AutoFilter(sheet, "A1:"+end, nil)

	for r, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("set row %d: %w", r+2, err)
		}
	}

	first, _ := excelize.ColumnNumberToName(1)
	last, _ := excelize.ColumnNumberToName(len(header))
	return f.SetColWidth(sheet, first, last, 16)
}
