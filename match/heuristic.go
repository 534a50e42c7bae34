package match

// heuristicFields are compared in this order for every admissible candidate.
var heuristicFields = []Field{FieldCity, FieldHobby, FieldHeight, FieldWeight, FieldAge}

func isRangeField(f Field) bool {
	return f == FieldHeight || f == FieldWeight || f == FieldAge
}

// Matches compares a preference value with a profile value by shape: two sets
// match when they intersect, a set and a scalar when the scalar is a member,
// and two scalars when their text is equal. Absent on either side never
// matches.
func Matches(pref, profile Value) bool {
	if pref.IsAbsent() || profile.IsAbsent() {
		return false
	}
	if pref.Kind() == Scalar && profile.Kind() == Scalar {
		return pref.Text() == profile.Text()
	}
	for _, it := range pref.Items() {
		if profile.contains(it) {
			return true
		}
	}
	return false
}

// InRange reports whether the numeric profile value falls inside the
// preference's "min-max" range. A malformed range or a non-numeric profile
// value is never in range.
func InRange(pref, profile Value) bool {
	if pref.Kind() != Scalar {
		return false
	}
	r, ok := ParseRange(pref.Text())
	if !ok {
		return false
	}
	x, ok := profile.Float()
	if !ok {
		return false
	}
	return r.Contains(x)
}

// heuristicScore is the structured-attribute bonus of cand for a requester
// with preference pref.
func (e *Engine) heuristicScore(pref *UserPreference, cand *UserProfile) float64 {
	if pref == nil || cand == nil {
		return 0
	}

	var score float64
	for _, f := range heuristicFields {
		pv, cv := pref.field(f), cand.field(f)
		if pv.IsAbsent() || cv.IsAbsent() {
			continue
		}
		var matched bool
		if isRangeField(f) {
			matched = InRange(pv, cv)
		} else {
			matched = Matches(pv, cv)
		}
		if !matched {
			continue
		}
		if pref.isPriority(f) {
			score += e.cfg.PriorityBonus
		} else {
			score += e.cfg.MatchBonus
		}
	}
	return score
}

// dislikePenalty is subtracted once when any of cand's hobbies is one the
// requester dislikes. Only the preference-only ranking applies it.
func (e *Engine) dislikePenalty(pref *UserPreference, cand *UserProfile) float64 {
	if pref == nil || cand == nil || !Matches(pref.Dislike, cand.Hobbies) {
		return 0
	}
	return e.cfg.DislikePenalty
}
