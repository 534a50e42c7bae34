package match

import (
	"math"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueDecoding(t *testing.T) {
	tests := []struct {
		name string
		in   string
		kind Kind
		want []string
	}{
		{"string", `" Beijing "`, Scalar, []string{"Beijing"}},
		{"number", `172.5`, Scalar, []string{"172.5"}},
		{"integer number", `25`, Scalar, []string{"25"}},
		{"list", `["music", " ", 3]`, Set, []string{"music", "3"}},
		{"empty list", `[]`, Absent, nil},
		{"blank", `"   "`, Absent, nil},
		{"null", `null`, Absent, nil},
		{"object", `{"a":1}`, Absent, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var v Value
			require.NoError(t, json.Unmarshal([]byte(tc.in), &v))
			assert.Equal(t, tc.kind, v.Kind())
			assert.Equal(t, tc.want, v.Items())
		})
	}
}

func TestValueSplit(t *testing.T) {
	v := ScalarOf("Beijing，Shanghai, Shenzhen,,").Split()
	assert.Equal(t, Set, v.Kind())
	assert.Equal(t, []string{"Beijing", "Shanghai", "Shenzhen"}, v.Items())

	set := SetOf("a,b")
	assert.Equal(t, []string{"a,b"}, set.Split().Items())
	assert.True(t, Value{}.Split().IsAbsent())
}

func TestParseRange(t *testing.T) {
	r, ok := ParseRange(" 20 - 30 ")
	require.True(t, ok)
	assert.Equal(t, Range{Min: 20, Max: 30}, r)
	assert.True(t, r.Contains(20))
	assert.False(t, r.Contains(30.5))

	for _, bad := range []string{"", "20", "-30", "a-b", "20-x"} {
		_, ok := ParseRange(bad)
		assert.False(t, ok, bad)
	}
}

func TestUserPreferenceDecoding(t *testing.T) {
	raw := `{
		"height": "160-180",
		"age": "20-30",
		"city": "Beijing，Shanghai",
		"hobby": ["music", "hiking"],
		"dislike": "smoking",
		"topPriorities": "city, hobby",
		"sexualOrientation": " HETEROSEXUAL "
	}`
	p := UserPreference{ID: "u1"}
	require.NoError(t, json.Unmarshal([]byte(raw), &p))

	assert.Equal(t, ID("u1"), p.ID)
	assert.Equal(t, "160-180", p.Height.Text())
	assert.True(t, p.Weight.IsAbsent())
	assert.Equal(t, []string{"Beijing", "Shanghai"}, p.City.Items())
	assert.Equal(t, []string{"music", "hiking"}, p.Hobby.Items())
	assert.Equal(t, Set, p.Dislike.Kind())
	assert.Equal(t, []string{"city", "hobby"}, p.TopPriorities)
	assert.Equal(t, Heterosexual, p.Orientation)
	assert.True(t, p.isPriority(FieldCity))
	assert.False(t, p.isPriority(FieldAge))
}

func TestUserProfileDecoding(t *testing.T) {
	var p UserProfile
	require.NoError(t, json.Unmarshal([]byte(`{"id": 42, "gender": "F", "age": 27, "hobbies": ["chess"], "city": ""}`), &p))
	assert.Equal(t, ID("42"), p.ID)
	assert.Equal(t, "27", p.Age.Text())
	assert.True(t, p.City.IsAbsent())
	assert.Equal(t, []string{"chess"}, p.Hobbies.Items())
}

func TestVectorRecordAliases(t *testing.T) {
	t.Run("canonical names", func(t *testing.T) {
		var v VectorRecord
		require.NoError(t, json.Unmarshal([]byte(`{"id":"a","profile_vector":[1,2],"preference_vector":[3,4]}`), &v))
		assert.Equal(t, []float32{1, 2}, v.ProfileVector)
		assert.Equal(t, []float32{3, 4}, v.PreferenceVector)
	})

	t.Run("legacy names", func(t *testing.T) {
		var v VectorRecord
		require.NoError(t, json.Unmarshal([]byte(`{"id":"a","embedding":[1,0],"pref_vector":[0,1]}`), &v))
		assert.Equal(t, []float32{1, 0}, v.ProfileVector)
		assert.Equal(t, []float32{0, 1}, v.PreferenceVector)
	})

	t.Run("placeholder loses to a real alias", func(t *testing.T) {
		var v VectorRecord
		require.NoError(t, json.Unmarshal([]byte(`{"id":"a","profile_vector":[0,0],"user_vector":[0.5,0.5],"preference_vector":[0,0]}`), &v))
		assert.Equal(t, []float32{0.5, 0.5}, v.ProfileVector)
		assert.True(t, IsPlaceholder(v.PreferenceVector))
	})
}

func TestBehaviorRecordDecoding(t *testing.T) {
	t.Run("liked list", func(t *testing.T) {
		var b BehaviorRecord
		require.NoError(t, json.Unmarshal([]byte(`{"id":"a","likedUsers":["x","y","x"],"commentedUsers":0,"messageCounts":0}`), &b))
		assert.Equal(t, map[ID]int{"x": 2, "y": 1}, b.Liked)
		assert.Empty(t, b.Commented)
		assert.Empty(t, b.Messaged)
	})

	t.Run("count maps", func(t *testing.T) {
		var b BehaviorRecord
		require.NoError(t, json.Unmarshal([]byte(`{"id":7,"likedUsers":{"x":2},"commentedUsers":{"y":"3"},"messageCounts":{"z":1.6,"w":"lots"}}`), &b))
		assert.Equal(t, ID("7"), b.ID)
		assert.Equal(t, map[ID]int{"x": 2}, b.Liked)
		assert.Equal(t, map[ID]int{"y": 3}, b.Commented)
		assert.Equal(t, map[ID]int{"z": 2}, b.Messaged)
	})

	t.Run("huge counts are clamped", func(t *testing.T) {
		var b BehaviorRecord
		require.NoError(t, json.Unmarshal([]byte(`{"id":"a","likedUsers":{"x":1e300,"y":-1e300},"messageCounts":{"z":"99999999999"}}`), &b))
		assert.Equal(t, map[ID]int{"x": math.MaxInt32, "y": -math.MaxInt32}, b.Liked)
		assert.Equal(t, map[ID]int{"z": math.MaxInt32}, b.Messaged)
	})
}

func TestSnapshotLastRecordWins(t *testing.T) {
	snap := NewSnapshot(
		[]UserProfile{{ID: "a", Gender: "F"}, {ID: "a", Gender: "M"}},
		nil,
		[]VectorRecord{{ID: "a", ProfileVector: []float32{1}}, {ID: "b"}, {ID: "a", ProfileVector: []float32{2}}},
		nil,
	)
	p, ok := snap.Profile("a")
	require.True(t, ok)
	assert.Equal(t, "M", p.Gender)
	assert.Equal(t, 1, snap.Population())
	require.Len(t, snap.Vectors(), 2)
	v, _ := snap.Vector("a")
	assert.Equal(t, []float32{2}, v.ProfileVector)
}
