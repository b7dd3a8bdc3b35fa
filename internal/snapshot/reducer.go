package snapshot

import "github.com/raysh454/eddy/internal/model"

// EffectivePrefix prefixes the ids of reduced elements and snapshots so they
// never alias the ids of the layers they were folded from.
const EffectivePrefix = "effective-"

// Reduce replays layers 0..CurrentSnapshotID and folds them into the
// effective snapshot. It is pure: the result depends only on h, and ids are
// derived from the source layers rather than generated.
//
// Elements merge by selector (union with override, a later layer never
// deletes a property it does not mention). Scripts match by id and are
// replaced whole.
func Reduce(h model.HistoryState) model.Snapshot {
	out := model.EmptySnapshot()
	last := h.CurrentSnapshotID
	if last > len(h.SnapshotArray)-1 {
		last = len(h.SnapshotArray) - 1
	}
	if last < 0 {
		return out
	}

	elemIdx := make(map[string]int)
	scriptIdx := make(map[string]int)
	for i := 0; i <= last; i++ {
		layer := h.SnapshotArray[i]
		for _, e := range layer.Elements {
			if idx, ok := elemIdx[e.Selector]; ok {
				out.Elements[idx].CSSPropertyMap.Merge(e.CSSPropertyMap)
				out.Elements[idx].Timestamp = e.Timestamp
				continue
			}
			elemIdx[e.Selector] = len(out.Elements)
			re := e.Clone()
			re.ID = EffectivePrefix + e.ID
			out.Elements = append(out.Elements, re)
		}
		for _, s := range layer.Scripts {
			if idx, ok := scriptIdx[s.ID]; ok {
				out.Scripts[idx] = s.Clone()
				continue
			}
			scriptIdx[s.ID] = len(out.Scripts)
			out.Scripts = append(out.Scripts, s.Clone())
		}
	}

	top := h.SnapshotArray[last]
	out.ID = EffectivePrefix + top.ID
	out.UserQuery = top.UserQuery
	out.Timestamp = top.Timestamp
	return out
}
