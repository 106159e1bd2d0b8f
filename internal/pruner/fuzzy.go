package pruner

import (
	"encoding/csv"
	"io"

	"github.com/agnivade/levenshtein"

	"github.com/chanlink/chanlink/internal/normalize"
	"github.com/chanlink/chanlink/internal/xmltv"
)

// Fuzzy country pruning is the coarse alternative to id-based
// filtering: a guide is cut down to a keep-list of channel names, with
// edit-distance matching absorbing the small spelling drifts between
// providers. Used when no curated playlist exists yet for a country.

// DefaultFuzzyThreshold is the similarity a fuzzy name match must reach.
const DefaultFuzzyThreshold = 0.86

// Fuzzy keep actions, in decreasing strength.
const (
	ActionKeptID      = "KEPT_ID"
	ActionKeptNumeric = "KEPT_NUMERIC"
	ActionKeptName    = "KEPT_NAME"
	ActionKeptFuzzy   = "KEPT_FUZZY"
	ActionDropped     = "DROPPED"
)

// FuzzyDecision records why one guide channel was kept or dropped.
type FuzzyDecision struct {
	ChannelID   string
	Action      string
	MatchedName string  // keep-list name that matched, when any
	Score       float64 // similarity of a fuzzy match
}

// FilterEPGByNames prunes doc to the channels matching keepNames or
// keepIDs. Channels with an all-digit id are kept outright; those
// carry provider-assigned numeric ids that never appear in keep-lists.
func FilterEPGByNames(doc *xmltv.Document, keepNames []string, keepIDs map[string]struct{}, threshold float64) (*xmltv.Document, []FuzzyDecision) {
	if threshold <= 0 {
		threshold = DefaultFuzzyThreshold
	}
	normKeep := make([]string, 0, len(keepNames))
	keepSet := make(map[string]string, len(keepNames))
	for _, name := range keepNames {
		key := normalize.Name(name)
		if key == "" {
			continue
		}
		if _, dup := keepSet[key]; dup {
			continue
		}
		keepSet[key] = name
		normKeep = append(normKeep, key)
	}

	out := &xmltv.Document{RootAttrs: doc.RootAttrs}
	decisions := make([]FuzzyDecision, 0, len(doc.Channels))
	kept := map[string]struct{}{}
	for _, ch := range doc.Channels {
		d := decideFuzzy(ch, normKeep, keepSet, keepIDs, threshold)
		decisions = append(decisions, d)
		if d.Action != ActionDropped {
			kept[ch.ID] = struct{}{}
			out.Channels = append(out.Channels, ch)
		}
	}
	for _, pg := range doc.Programmes {
		if _, want := kept[pg.Channel]; want {
			out.Programmes = append(out.Programmes, pg)
		}
	}
	return out, decisions
}

// WriteFuzzyDecisionsCSV emits one row per guide channel with the keep
// or drop verdict. The score column is filled for fuzzy matches only.
func WriteFuzzyDecisionsCSV(w io.Writer, decisions []FuzzyDecision) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"channel_id", "action", "matched_name", "score"}); err != nil {
		return err
	}
	for _, d := range decisions {
		score := ""
		if d.Action == ActionKeptFuzzy {
			score = formatConf(d.Score)
		}
		if err := cw.Write([]string{d.ChannelID, d.Action, d.MatchedName, score}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func decideFuzzy(ch xmltv.Channel, normKeep []string, keepSet map[string]string, keepIDs map[string]struct{}, threshold float64) FuzzyDecision {
	d := FuzzyDecision{ChannelID: ch.ID, Action: ActionDropped}
	if _, ok := keepIDs[ch.ID]; ok {
		d.Action = ActionKeptID
		return d
	}
	if isAllDigits(ch.ID) {
		d.Action = ActionKeptNumeric
		return d
	}
	bestScore, bestName := 0.0, ""
	for _, dn := range ch.DisplayNames {
		key := normalize.Name(dn)
		if key == "" {
			continue
		}
		if orig, ok := keepSet[key]; ok {
			d.Action = ActionKeptName
			d.MatchedName = orig
			return d
		}
		for _, keep := range normKeep {
			if score := similarity(key, keep); score > bestScore {
				bestScore, bestName = score, keepSet[keep]
			}
		}
	}
	if bestScore >= threshold {
		d.Action = ActionKeptFuzzy
		d.MatchedName = bestName
		d.Score = normalize.Round3(bestScore)
	}
	return d
}

// similarity is an edit-distance ratio in [0,1].
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	la, lb := len([]rune(a)), len([]rune(b))
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}

func isAllDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return s != ""
}
