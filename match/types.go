package match

import (
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// ID identifies a user across all four collections.
type ID string

// UnmarshalJSON accepts both string and numeric identifiers.
func (id *ID) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*id = ID(textOf(raw))
	return nil
}

// Orientation is the stated sexual orientation of a requester.
type Orientation string

const (
	Heterosexual Orientation = "HETEROSEXUAL"
	Homosexual   Orientation = "HOMOSEXUAL"
	Bisexual     Orientation = "BISEXUAL"
)

// Field names an attribute the heuristic scorer compares.
type Field string

const (
	FieldCity    Field = "city"
	FieldHobby   Field = "hobby"
	FieldHeight  Field = "height"
	FieldWeight  Field = "weight"
	FieldAge     Field = "age"
	FieldDislike Field = "dislike"
)

// UserProfile is the structured description a user gives of themselves.
type UserProfile struct {
	ID         ID     `json:"id"`
	Gender     string `json:"gender,omitempty"`
	Age        Value  `json:"age"`
	Height     Value  `json:"height"`
	Weight     Value  `json:"weight"`
	City       Value  `json:"city"`
	Education  string `json:"education,omitempty"`
	Occupation string `json:"occupation,omitempty"`
	Hobbies    Value  `json:"hobbies"`
}

func (p *UserProfile) field(f Field) Value {
	switch f {
	case FieldCity:
		return p.City
	case FieldHobby:
		return p.Hobbies
	case FieldHeight:
		return p.Height
	case FieldWeight:
		return p.Weight
	case FieldAge:
		return p.Age
	default:
		return Value{}
	}
}

// UserPreference is the refined preference record of one user. Height, Weight
// and Age hold "min-max" ranges; City, Hobby and Dislike are sets.
type UserPreference struct {
	ID            ID          `json:"-"`
	Height        Value       `json:"height"`
	Weight        Value       `json:"weight"`
	Age           Value       `json:"age"`
	City          Value       `json:"city"`
	Hobby         Value       `json:"hobby"`
	Dislike       Value       `json:"dislike"`
	TopPriorities []string    `json:"topPriorities"`
	Orientation   Orientation `json:"sexualOrientation"`
}

func (p *UserPreference) UnmarshalJSON(data []byte) error {
	var raw struct {
		Height        Value  `json:"height"`
		Weight        Value  `json:"weight"`
		Age           Value  `json:"age"`
		City          Value  `json:"city"`
		Hobby         Value  `json:"hobby"`
		Dislike       Value  `json:"dislike"`
		TopPriorities Value  `json:"topPriorities"`
		Orientation   string `json:"sexualOrientation"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = UserPreference{
		ID:            p.ID,
		Height:        raw.Height,
		Weight:        raw.Weight,
		Age:           raw.Age,
		City:          raw.City.Split(),
		Hobby:         raw.Hobby.Split(),
		Dislike:       raw.Dislike.Split(),
		TopPriorities: raw.TopPriorities.Split().Items(),
		Orientation:   Orientation(strings.TrimSpace(raw.Orientation)),
	}
	return nil
}

func (p *UserPreference) field(f Field) Value {
	switch f {
	case FieldCity:
		return p.City
	case FieldHobby:
		return p.Hobby
	case FieldHeight:
		return p.Height
	case FieldWeight:
		return p.Weight
	case FieldAge:
		return p.Age
	case FieldDislike:
		return p.Dislike
	default:
		return Value{}
	}
}

func (p *UserPreference) isPriority(f Field) bool {
	for _, tp := range p.TopPriorities {
		if Field(tp) == f {
			return true
		}
	}
	return false
}

// VectorRecord holds the two embeddings of a user.
type VectorRecord struct {
	ID               ID        `json:"id"`
	ProfileVector    []float32 `json:"profile_vector"`
	PreferenceVector []float32 `json:"preference_vector"`
}

// UnmarshalJSON also reads the legacy field names "embedding", "user_vector"
// and "pref_vector", preferring the first one that is not a placeholder.
func (v *VectorRecord) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID               ID        `json:"id"`
		ProfileVector    []float32 `json:"profile_vector"`
		Embedding        []float32 `json:"embedding"`
		UserVector       []float32 `json:"user_vector"`
		PreferenceVector []float32 `json:"preference_vector"`
		PrefVector       []float32 `json:"pref_vector"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v.ID = raw.ID
	v.ProfileVector = firstUsable(raw.ProfileVector, raw.Embedding, raw.UserVector)
	v.PreferenceVector = firstUsable(raw.PreferenceVector, raw.PrefVector)
	return nil
}

func firstUsable(vs ...[]float32) []float32 {
	for _, v := range vs {
		if !IsPlaceholder(v) {
			return v
		}
	}
	for _, v := range vs {
		if v != nil {
			return v
		}
	}
	return nil
}

// IsPlaceholder reports whether v carries no signal: empty or all zeros.
func IsPlaceholder(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// BehaviorRecord is the outgoing interaction log of one user. Each map goes
// from the target user to the number of interactions.
type BehaviorRecord struct {
	ID        ID         `json:"id"`
	Liked     map[ID]int `json:"likedUsers"`
	Commented map[ID]int `json:"commentedUsers"`
	Messaged  map[ID]int `json:"messageCounts"`
}

// UnmarshalJSON accepts likedUsers as either a list or an ID->count mapping.
// Any other shape decodes as no interactions.
func (b *BehaviorRecord) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID        ID              `json:"id"`
		Liked     json.RawMessage `json:"likedUsers"`
		Commented json.RawMessage `json:"commentedUsers"`
		Messaged  json.RawMessage `json:"messageCounts"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	b.ID = raw.ID
	b.Liked = decodeCounts(raw.Liked)
	b.Commented = decodeCounts(raw.Commented)
	b.Messaged = decodeCounts(raw.Messaged)
	return nil
}

func decodeCounts(data json.RawMessage) map[ID]int {
	out := map[ID]int{}
	if len(data) == 0 {
		return out
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return out
	}
	switch t := raw.(type) {
	case []any:
		for _, e := range t {
			if id := textOf(e); id != "" {
				out[ID(id)]++
			}
		}
	case map[string]any:
		for k, c := range t {
			if n, ok := countOf(c); ok && strings.TrimSpace(k) != "" {
				out[ID(strings.TrimSpace(k))] += n
			}
		}
	}
	return out
}

// maxCount bounds a single decoded interaction count.
const maxCount = math.MaxInt32

func countOf(raw any) (int, bool) {
	switch t := raw.(type) {
	case float64:
		return int(math.Round(max(min(t, maxCount), -maxCount))), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		return max(min(n, maxCount), -maxCount), err == nil
	default:
		return 0, false
	}
}
