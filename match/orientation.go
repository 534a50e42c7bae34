package match

import "strings"

// MatchOrientation reports whether a candidate of candidateGender is admissible
// for a requester with the given gender and stated orientation. Any blank
// input admits the candidate. Unknown orientations admit everyone.
func MatchOrientation(requesterGender string, orientation Orientation, candidateGender string) bool {
	mine := strings.TrimSpace(requesterGender)
	theirs := strings.TrimSpace(candidateGender)
	o := Orientation(strings.TrimSpace(string(orientation)))
	if mine == "" || o == "" || theirs == "" {
		return true
	}
	switch o {
	case Heterosexual:
		return mine != theirs
	case Homosexual:
		return mine == theirs
	default:
		return true
	}
}
