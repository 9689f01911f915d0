package parser

import (
	"strings"

	"github.com/aluiziolira/mp-attendance/models"
)

const (
	profileMarker = "/mp-profile/"
	partyLabel    = "Political Party"
	districtLabel = "District"
)

// DirectoryPage is the result of scanning one roster listing page.
type DirectoryPage struct {
	Members []models.Member
	// Skipped counts profile blocks dropped for missing fields.
	Skipped int
}

type directoryState int

const (
	dirIdle directoryState = iota
	dirInProfileLink
)

type pendingLabel int

const (
	labelNone pendingLabel = iota
	labelParty
	labelDistrict
)

type directoryParser struct {
	state   directoryState
	pending pendingLabel
	draft   *models.Member
	name    strings.Builder
	out     DirectoryPage

	// lastEmitted suppresses trailing links back to a completed card.
	lastEmitted string
}

// ParseDirectory extracts member identities from a roster listing page.
//
// The listing renders label and value as sibling text nodes, so a label
// text arms a pending field and the next non-empty text run fills it. A
// member is emitted once id, name, party and district are all known; a
// draft still incomplete when the next profile link opens is dropped.
func ParseDirectory(markup string) DirectoryPage {
	p := &directoryParser{}
	stream := newTokenStream(markup)
	for {
		tok, ok := stream.Next()
		if !ok {
			break
		}
		p.step(tok)
	}
	if p.draft != nil {
		p.out.Skipped++
	}
	return p.out
}

func (p *directoryParser) step(tok Token) {
	switch tok.Kind {
	case OpenTag:
		if tok.Tag != "a" {
			return
		}
		id := profileID(tok.Attr("href"))
		if id == "" || id == p.lastEmitted {
			return
		}
		p.state = dirInProfileLink
		p.name.Reset()
		// Cards often link the same profile twice (photo and name).
		if p.draft != nil && p.draft.ID == id {
			return
		}
		if p.draft != nil {
			p.out.Skipped++
		}
		p.draft = &models.Member{ID: id}
		p.pending = labelNone

	case CloseTag:
		if tok.Tag == "a" && p.state == dirInProfileLink {
			p.state = dirIdle
			if p.draft == nil || p.draft.Name != "" {
				return
			}
			if name := firstLine(p.name.String()); name != "" {
				p.draft.Name = name
				p.emitIfComplete()
			}
		}

	case Text:
		if p.state == dirInProfileLink {
			p.name.WriteString(tok.Text)
		}
		p.text(strings.TrimSpace(tok.Text))
	}
}

func (p *directoryParser) text(stripped string) {
	switch stripped {
	case "":
		return
	case partyLabel:
		p.pending = labelParty
		return
	case districtLabel:
		p.pending = labelDistrict
		return
	}

	field := p.pending
	if field == labelNone {
		return
	}
	p.pending = labelNone
	if p.draft == nil {
		return
	}

	switch field {
	case labelParty:
		p.draft.Party = NormalizeText(stripped)
	case labelDistrict:
		p.draft.District = NormalizeText(stripped)
	}
	p.emitIfComplete()
}

func (p *directoryParser) emitIfComplete() {
	if ValidateMember(p.draft) != nil {
		return
	}
	p.out.Members = append(p.out.Members, *p.draft)
	p.lastEmitted = p.draft.ID
	p.draft = nil
}

// profileID returns the member id encoded in a profile href, or "".
func profileID(href string) string {
	idx := strings.LastIndex(href, profileMarker)
	if idx < 0 {
		return ""
	}
	id := href[idx+len(profileMarker):]
	if cut := strings.IndexAny(id, "?#/"); cut >= 0 {
		id = id[:cut]
	}
	return strings.TrimSpace(id)
}
