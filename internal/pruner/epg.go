package pruner

import (
	"github.com/chanlink/chanlink/internal/xmltv"
)

// FilterEPG merges docs into one guide document containing only the
// channels in keep and their programmes. Channels are de-duplicated by
// id, first seen wins. Programmes are copied as-is for every surviving
// channel: overlapping sources may legitimately carry distinct entries
// for the same channel and start time, so nothing beyond the channel
// reference is used to discard them.
func FilterEPG(docs []*xmltv.Document, keep map[string]struct{}) *xmltv.Document {
	out := &xmltv.Document{}
	if len(docs) > 0 {
		out.RootAttrs = docs[0].RootAttrs
	}

	seenCh := map[string]struct{}{}
	for _, doc := range docs {
		for _, ch := range doc.Channels {
			if _, want := keep[ch.ID]; !want {
				continue
			}
			if _, dup := seenCh[ch.ID]; dup {
				continue
			}
			seenCh[ch.ID] = struct{}{}
			out.Channels = append(out.Channels, ch)
		}
	}

	for _, doc := range docs {
		for _, pg := range doc.Programmes {
			if _, want := seenCh[pg.Channel]; !want {
				continue
			}
			out.Programmes = append(out.Programmes, pg)
		}
	}
	return out
}
