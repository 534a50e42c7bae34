package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchOrientation(t *testing.T) {
	tests := []struct {
		name        string
		mine        string
		orientation Orientation
		theirs      string
		want        bool
	}{
		{"heterosexual opposite gender", "M", Heterosexual, "F", true},
		{"heterosexual same gender", "M", Heterosexual, "M", false},
		{"homosexual same gender", "F", Homosexual, "F", true},
		{"homosexual opposite gender", "F", Homosexual, "M", false},
		{"bisexual admits all", "M", Bisexual, "M", true},
		{"unknown orientation admits all", "M", Orientation("PANSEXUAL"), "M", true},
		{"blank requester gender", "", Heterosexual, "M", true},
		{"blank orientation", "M", "", "M", true},
		{"blank candidate gender", "M", Heterosexual, "", true},
		{"whitespace counts as blank", "  ", Homosexual, "M", true},
		{"orientation is trimmed", "M", Orientation(" HETEROSEXUAL "), "M", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, MatchOrientation(tc.mine, tc.orientation, tc.theirs))
		})
	}
}

func TestMatchOrientationIsTotal(t *testing.T) {
	genders := []string{"", "M", "F", "X", " "}
	orientations := []Orientation{"", Heterosexual, Homosexual, Bisexual, "??"}
	for _, g1 := range genders {
		for _, o := range orientations {
			for _, g2 := range genders {
				assert.NotPanics(t, func() { MatchOrientation(g1, o, g2) })
			}
		}
	}
}
