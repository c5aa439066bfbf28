package service

import (
	"math"
	"sort"
	"time"

	"github.com/wb-go/wbf/ginext"

	"checkinDesk/internal/cache"
	"checkinDesk/internal/dto"
	"checkinDesk/internal/model"
	"checkinDesk/internal/repo"
)

const (
	noOrganization = "No Organization"
	noRegion       = "No Region Specified"
	isoMillis      = "2006-01-02T15:04:05.000Z"
	dayLayout      = "2006-01-02"
)

// positionSources are the attendee columns merged into the positions report.
var positionSources = []struct {
	column string
	prefix string
}{
	{"position_in_organization", "Organization: "},
	{"position_korean", "Korean: "},
	{"position_english", "English: "},
}

func (s *service) Attendees(ctx *ginext.Context) {
	page := queryInt(ctx, "page", 1, maxPage)
	limit := queryInt(ctx, "limit", 10, maxPageSize)

	list, total, err := s.repo.ListAttendees(ctx.Request.Context(), repo.AttendeeQuery{
		Search: ctx.Query("search"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list attendees")
		dto.InternalServerError(ctx)
		return
	}
	if list == nil {
		list = []model.Attendee{}
	}

	dto.SuccessResponse(ctx, dto.AttendeesResponse{
		Attendees: list,
		Columns:   columnNames(list),
		Total:     total,
		Page:      page,
		Pages:     int(math.Ceil(float64(total) / float64(limit))),
	})
}

// columnNames reports the source headers of the first attendee on the page.
func columnNames(list []model.Attendee) dto.ColumnNames {
	cols := dto.ColumnNames{Name: "Name", Email: "Email", Phone: "Phone"}
	if len(list) == 0 {
		return cols
	}
	first := list[0]
	if first.NameCol != nil && *first.NameCol != "" {
		cols.Name = *first.NameCol
	}
	if first.EmailCol != nil && *first.EmailCol != "" {
		cols.Email = *first.EmailCol
	}
	if first.PhoneCol != nil && *first.PhoneCol != "" {
		cols.Phone = *first.PhoneCol
	}
	return cols
}

func (s *service) Stats(ctx *ginext.Context) {
	rctx := ctx.Request.Context()
	if st, ok := s.stats.Get(rctx); ok {
		dto.SuccessResponse(ctx, st)
		return
	}

	total, checkedIn, err := s.repo.CountAttendees(rctx)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to count attendees")
		dto.InternalServerError(ctx)
		return
	}
	st := cache.Stats{Total: total, CheckedIn: checkedIn, Pending: total - checkedIn}
	s.stats.Set(rctx, st)
	dto.SuccessResponse(ctx, st)
}

func (s *service) OrganizationsReport(ctx *ginext.Context) {
	s.groupReport(ctx, "organization", noOrganization)
}

func (s *service) RegionsReport(ctx *ginext.Context) {
	s.groupReport(ctx, "region_of_work", noRegion)
}

func (s *service) groupReport(ctx *ginext.Context, column, blankLabel string) {
	groups, blank, err := s.repo.GroupCounts(ctx.Request.Context(), column)
	if err != nil {
		s.log.Error().Err(err).Str("column", column).Msg("failed to build report")
		dto.InternalServerError(ctx)
		return
	}

	items := make([]dto.GroupItem, 0, len(groups)+1)
	for _, g := range groups {
		items = append(items, dto.GroupItem{Name: g.Name, Count: g.Count})
	}
	if blank > 0 {
		items = append(items, dto.GroupItem{Name: blankLabel, Count: blank})
	}
	sortByCount(items)
	dto.SuccessResponse(ctx, dto.ReportResponse{Data: items, Success: true})
}

func (s *service) PositionsReport(ctx *ginext.Context) {
	items := make([]dto.GroupItem, 0)
	for _, src := range positionSources {
		groups, _, err := s.repo.GroupCounts(ctx.Request.Context(), src.column)
		if err != nil {
			s.log.Error().Err(err).Str("column", src.column).Msg("failed to build positions report")
			dto.InternalServerError(ctx)
			return
		}
		for _, g := range groups {
			items = append(items, dto.GroupItem{Name: src.prefix + g.Name, Count: g.Count})
		}
	}
	sortByCount(items)
	dto.SuccessResponse(ctx, dto.ReportResponse{Data: items, Success: true})
}

func sortByCount(items []dto.GroupItem) {
	sort.SliceStable(items, func(i, j int) bool { return items[i].Count > items[j].Count })
}

func (s *service) CheckinTrend(ctx *ginext.Context) {
	times, err := s.repo.CheckinTimes(ctx.Request.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("failed to load check-in times")
		dto.InternalServerError(ctx)
		return
	}
	dto.SuccessResponse(ctx, buildTrend(times, s.opts.EventStart, s.opts.EventEnd))
}

// buildTrend buckets check-ins inside [start, end] by UTC day, with an
// entry for every day of the window.
func buildTrend(times []time.Time, start, end time.Time) dto.TrendResponse {
	start, end = start.UTC(), end.UTC()
	perDay := make(map[string]int)
	total := 0
	for _, t := range times {
		t = t.UTC()
		if t.Before(start) || t.After(end) {
			continue
		}
		perDay[t.Format(dayLayout)]++
		total++
	}

	data := make([]dto.TrendPoint, 0)
	first := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	for day := first; !day.After(end); day = day.AddDate(0, 0, 1) {
		key := day.Format(dayLayout)
		data = append(data, dto.TrendPoint{Date: key, Count: perDay[key]})
	}

	return dto.TrendResponse{
		Data:          data,
		Success:       true,
		TotalCheckins: total,
		DateRange:     dto.DateRange{Start: start.Format(isoMillis), End: end.Format(isoMillis)},
	}
}

// GenderReport stays empty: attendees carry no gender attribute.
func (s *service) GenderReport(ctx *ginext.Context) {
	dto.SuccessResponse(ctx, dto.ReportResponse{Data: []dto.GroupItem{}, Success: true})
}
