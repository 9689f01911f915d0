package stats

import (
	"sort"

	"github.com/aluiziolira/mp-attendance/models"
)

// DayPoint is the chamber-wide attendance for one sitting day.
type DayPoint struct {
	Date         string
	Present      int
	Absent       int
	AbsenteeRate float64
}

// DailyTrend returns one point per distinct date, ordered by date.
func DailyTrend(entries []models.MemberAttendance) []DayPoint {
	byDate := make(map[string]*DayPoint)
	for _, e := range entries {
		for _, r := range e.Records {
			p, ok := byDate[r.Date]
			if !ok {
				p = &DayPoint{Date: r.Date}
				byDate[r.Date] = p
			}
			switch r.Status {
			case models.StatusPresent:
				p.Present++
			case models.StatusAbsent:
				p.Absent++
			}
		}
	}

	points := make([]DayPoint, 0, len(byDate))
	for _, p := range byDate {
		p.AbsenteeRate = Rate(p.Absent, p.Present+p.Absent)
		points = append(points, *p)
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Date < points[j].Date
	})
	return points
}
