package parser

import "github.com/aluiziolira/mp-attendance/models"

// MemberPage is one page of a single member's attendance history.
type MemberPage struct {
	Records []models.AttendanceRecord
	Skipped int
}

// ParseMemberAttendance reads the date/status table of a member's
// attendance page. Rows missing either cell are dropped.
func ParseMemberAttendance(markup string) MemberPage {
	var (
		page MemberPage
		ts   tableScanner
	)

	stream := newTokenStream(markup)
	for {
		tok, ok := stream.Next()
		if !ok {
			return page
		}
		event, cells := ts.feed(tok)
		if event != tableRow {
			continue
		}
		date, status := cell(cells, 0), cell(cells, 1)
		if date == "" || status == "" {
			page.Skipped++
			continue
		}
		page.Records = append(page.Records, models.AttendanceRecord{
			Date:   date,
			Status: models.ParseStatus(status),
		})
	}
}
