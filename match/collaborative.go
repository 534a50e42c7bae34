package match

import "sort"

// candidate is an admissible user carried through one ranking.
type candidate struct {
	id      ID
	vector  *VectorRecord
	profile *UserProfile
}

// neighbors picks the candidates whose own preference vectors are closest to
// the requester's. Only admissible candidates are eligible. A candidate whose
// preference vector is a placeholder, or of another length, scores 0.
func (e *Engine) neighbors(prefVec []float32, pool []candidate) []ID {
	if IsPlaceholder(prefVec) || e.cfg.NeighborCount <= 0 {
		return nil
	}

	type scoredNeighbor struct {
		id  ID
		sim float64
	}
	sims := make([]scoredNeighbor, 0, len(pool))
	for _, c := range pool {
		sim, _ := Cosine(prefVec, c.vector.PreferenceVector)
		sims = append(sims, scoredNeighbor{id: c.id, sim: sim})
	}

	sort.Slice(sims, func(i, j int) bool {
		if sims[i].sim != sims[j].sim {
			return sims[i].sim > sims[j].sim
		}
		return sims[i].id < sims[j].id
	})

	n := min(e.cfg.NeighborCount, len(sims))
	out := make([]ID, n)
	for i := 0; i < n; i++ {
		out[i] = sims[i].id
	}
	return out
}

// behaviorScores credits every user that a neighbour liked, commented on or
// messaged. Users nobody in the neighbourhood interacted with are absent from
// the map and score 0.
func (e *Engine) behaviorScores(logs []BehaviorRecord, neighbors []ID) map[ID]float64 {
	scores := make(map[ID]float64)
	if len(neighbors) == 0 {
		return scores
	}

	inHood := make(map[ID]struct{}, len(neighbors))
	for _, id := range neighbors {
		inHood[id] = struct{}{}
	}

	for _, b := range logs {
		if _, ok := inHood[b.ID]; !ok {
			continue
		}
		for target, n := range b.Liked {
			scores[target] += e.cfg.LikeWeight * float64(n)
		}
		for target, n := range b.Commented {
			scores[target] += e.cfg.CommentWeight * float64(n)
		}
		for target, n := range b.Messaged {
			scores[target] += e.cfg.MessageWeight * float64(n)
		}
	}
	return scores
}
