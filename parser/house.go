package parser

import (
	"regexp"
	"strings"

	"github.com/aluiziolira/mp-attendance/models"
)

// UnknownDate labels rows from a table with no matching date section.
const UnknownDate = "unknown"

var sectionDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)

// HousePage is the result of scanning the roster-wide attendance view.
type HousePage struct {
	Records []models.HouseRecord
	Skipped int
}

// houseSection pairs a date label with the table at the same ordinal.
type houseSection struct {
	Label string
	Rows  [][]string
}

type houseState int

const (
	houseIdle houseState = iota
	houseInSectionButton
)

// ParseHouseAttendance extracts {date, name, status} rows from a page of
// collapsible date sections, each holding one table.
//
// Tables are not nested inside their section, so the page is parsed in two
// phases: first section labels and tables are collected as independent
// ordered lists, then table i is paired with label i.
func ParseHouseAttendance(markup string) HousePage {
	labels, tables := scanHouse(markup)
	return buildHousePage(pairSections(labels, tables))
}

func scanHouse(markup string) ([]string, [][][]string) {
	var (
		state  houseState
		label  strings.Builder
		labels []string
		tables [][][]string
		ts     tableScanner
	)

	stream := newTokenStream(markup)
	for {
		tok, ok := stream.Next()
		if !ok {
			break
		}

		switch {
		case tok.Kind == OpenTag && tok.Tag == "button" && tok.HasClass("accordion-button"):
			state = houseInSectionButton
			label.Reset()
			continue
		case tok.Kind == CloseTag && tok.Tag == "button" && state == houseInSectionButton:
			state = houseIdle
			if date := sectionDate.FindString(strings.TrimSpace(label.String())); date != "" {
				labels = append(labels, date)
			}
			continue
		case tok.Kind == Text && state == houseInSectionButton:
			label.WriteString(tok.Text)
			continue
		}

		event, cells := ts.feed(tok)
		switch event {
		case tableOpened:
			tables = append(tables, nil)
		case tableRow:
			if len(tables) > 0 {
				tables[len(tables)-1] = append(tables[len(tables)-1], cells)
			}
		}
	}
	return labels, tables
}

func pairSections(labels []string, tables [][][]string) []houseSection {
	sections := make([]houseSection, 0, len(tables))
	for i, rows := range tables {
		label := UnknownDate
		if i < len(labels) {
			label = labels[i]
		}
		sections = append(sections, houseSection{Label: label, Rows: rows})
	}
	return sections
}

func buildHousePage(sections []houseSection) HousePage {
	var page HousePage
	for _, section := range sections {
		for _, cells := range section.Rows {
			name, status := cell(cells, 0), cell(cells, 1)
			if name == "" || status == "" {
				page.Skipped++
				continue
			}
			page.Records = append(page.Records, models.HouseRecord{
				Date:   section.Label,
				Name:   name,
				Status: models.ParseStatus(status),
			})
		}
	}
	return page
}
