package pipeline

import (
	"github.com/aluiziolira/mp-attendance/models"
	"github.com/aluiziolira/mp-attendance/parser"
	"github.com/antzucaro/matchr"
)

// ResolveHouseRecords links roster-wide rows to members by name. An exact
// normalized match wins; otherwise the most similar roster name is used when
// its Jaro-Winkler score reaches threshold. Unmatched rows keep an empty
// MemberID and report the best score seen.
func ResolveHouseRecords(records []models.HouseRecord, roster []models.Member, threshold float64) []models.ResolvedHouseRecord {
	keys := make([]string, len(roster))
	exact := make(map[string]string, len(roster))
	for i, m := range roster {
		keys[i] = parser.NormalizeName(m.Name)
		if _, ok := exact[keys[i]]; !ok && keys[i] != "" {
			exact[keys[i]] = m.ID
		}
	}

	out := make([]models.ResolvedHouseRecord, 0, len(records))
	for _, r := range records {
		resolved := models.ResolvedHouseRecord{HouseRecord: r}
		name := parser.NormalizeName(r.Name)

		if id, ok := exact[name]; ok {
			resolved.MemberID = id
			resolved.Score = 1
			out = append(out, resolved)
			continue
		}

		bestID, best := "", 0.0
		for i, key := range keys {
			if key == "" || name == "" {
				continue
			}
			score := matchr.JaroWinkler(name, key, false)
			if score > best || (score == best && bestID != "" && roster[i].ID < bestID) {
				bestID, best = roster[i].ID, score
			}
		}
		resolved.Score = best
		if best >= threshold && bestID != "" {
			resolved.MemberID = bestID
		}
		out = append(out, resolved)
	}
	return out
}
