package service

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/wb-go/wbf/ginext"
	"github.com/xuri/excelize/v2"

	"checkinDesk/internal/dto"
	"checkinDesk/internal/model"
)

const (
	xlsxMIME       = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	exportFilename = "attendees_with_qr.xlsx"
	templateName   = "attendee_template.xlsx"
	exportSheet    = "Attendees"
	templateSheet  = "Template"

	qrImagePx  = 100.0
	qrRowPt    = 78.0
	qrSourcePx = 256.0
)

type exportColumn struct {
	header string
	width  float64
	value  func(a *model.Attendee) any
}

var exportColumns = []exportColumn{
	{"Name", 20, func(a *model.Attendee) any { return a.Name }},
	{"Email", 30, func(a *model.Attendee) any { return str(a.Email) }},
	{"Phone", 15, func(a *model.Attendee) any { return str(a.Phone) }},
	{"ID", 15, func(a *model.Attendee) any { return str(a.AttendeeID) }},
	{"Full Name", 20, func(a *model.Attendee) any { return str(a.FullName) }},
	{"열2", 15, func(a *model.Attendee) any { return str(a.Column2) }},
	{"Organization", 25, func(a *model.Attendee) any { return str(a.Organization) }},
	{"Position in Organization", 25, func(a *model.Attendee) any { return str(a.PositionInOrganization) }},
	{"Preferred Title", 20, func(a *model.Attendee) any { return str(a.PreferredTitle) }},
	{"Region of Work", 20, func(a *model.Attendee) any { return str(a.RegionOfWork) }},
	{"번호", 15, func(a *model.Attendee) any { return str(a.PhoneKorean) }},
	{"한글", 20, func(a *model.Attendee) any { return str(a.KoreanText) }},
	{"직분", 20, func(a *model.Attendee) any { return str(a.PositionKorean) }},
	{"영어", 20, func(a *model.Attendee) any { return str(a.EnglishText) }},
	{"Status", 15, func(a *model.Attendee) any {
		if a.CheckedIn {
			return "Checked In"
		}
		return "Pending"
	}},
	{"Checked In At", 20, func(a *model.Attendee) any {
		if a.CheckedInAt == nil {
			return ""
		}
		return a.CheckedInAt.UTC().Format(isoMillis)
	}},
	{"QR Code", 20, func(*model.Attendee) any { return "" }},
}

var (
	templateHeaders = []any{
		"ID", "번호", "한글", "직분", "영어", "영어직분", "Full Name", "열2",
		"Organization", "Preferred Title (Optional)", "Position in Organization", "Region of Work",
	}
	templateSample = []any{
		"1", "001", "김철수", "과장", "John Doe", "Manager", "John Doe", "Additional",
		"ABC Corp", "Mr.", "Manager", "Seoul",
	}
)

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func (s *service) DownloadExcel(ctx *ginext.Context) {
	attendees, err := s.repo.AllAttendees(ctx.Request.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("failed to load attendees for export")
		dto.ErrorWithStatus(ctx, http.StatusInternalServerError, "Failed to generate Excel file")
		return
	}

	body, err := s.buildExport(attendees)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to build export workbook")
		dto.ErrorWithStatus(ctx, http.StatusInternalServerError, "Failed to generate Excel file")
		return
	}

	ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportFilename))
	ctx.Header("Cache-Control", "no-cache")
	ctx.Data(http.StatusOK, xlsxMIME, body)
}

// buildExport writes one row per attendee with its QR image anchored in
// the last column. Attendees whose QR image cannot be decoded keep an
// empty cell.
func (s *service) buildExport(attendees []model.Attendee) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return nil, err
	}

	header := make([]any, len(exportColumns))
	for i, c := range exportColumns {
		header[i] = c.header
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(exportSheet, col, col, c.width); err != nil {
			return nil, err
		}
	}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return nil, err
	}

	qrCol, err := excelize.ColumnNumberToName(len(exportColumns))
	if err != nil {
		return nil, err
	}
	scale := qrImagePx / qrSourcePx

	for i := range attendees {
		a := &attendees[i]
		row := i + 2
		values := make([]any, len(exportColumns))
		for j, c := range exportColumns {
			values[j] = c.value(a)
		}
		if err := f.SetSheetRow(exportSheet, fmt.Sprintf("A%d", row), &values); err != nil {
			return nil, err
		}

		png, ok := decodePNGDataURL(a.QRCode)
		if !ok {
			continue
		}
		err := f.AddPictureFromBytes(exportSheet, fmt.Sprintf("%s%d", qrCol, row), &excelize.Picture{
			Extension: ".png",
			File:      png,
			Format:    &excelize.GraphicOptions{ScaleX: scale, ScaleY: scale},
		})
		if err != nil {
			s.log.Warn().Err(err).Str("attendee", a.Name).Msg("failed to embed qr image")
			continue
		}
		if err := f.SetRowHeight(exportSheet, row, qrRowPt); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodePNGDataURL(dataURL string) ([]byte, bool) {
	if !strings.HasPrefix(dataURL, "data:image") {
		return nil, false
	}
	_, encoded, found := strings.Cut(dataURL, ",")
	if !found || encoded == "" {
		return nil, false
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, false
	}
	return raw, true
}

func (s *service) DownloadTemplate(ctx *ginext.Context) {
	body, err := buildTemplate()
	if err != nil {
		s.log.Error().Err(err).Msg("failed to build import template")
		dto.InternalServerError(ctx)
		return
	}
	ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", templateName))
	ctx.Data(http.StatusOK, xlsxMIME, body)
}

func buildTemplate() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), templateSheet); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(templateSheet, "A1", &templateHeaders); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(templateSheet, "A2", &templateSample); err != nil {
		return nil, err
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
