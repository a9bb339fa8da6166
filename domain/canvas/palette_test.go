package canvas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashString(t *testing.T) {
	assert.Equal(t, 0, hashString(""))
	assert.Equal(t, 97, hashString("a"))
	assert.Equal(t, 97*31+98, hashString("ab"))
	// astral characters hash as their surrogate pair
	assert.Equal(t, 0xd83d*31+0xde00, hashString("😀"))
	assert.Equal(t, 1876065868, hashString("Ann😀conn-1"))
	assert.Equal(t, Palette[4], AssignColor("Ann😀", "conn-1", nil))

	// long inputs wrap around 32 bits and stay non-negative
	for _, s := range []string{"zzzzzzzzzzzzzzzzzzzzzzzz", "Alice3f2b8c1a-9d4e", "😀😀😀😀"} {
		assert.GreaterOrEqual(t, hashString(s), 0, s)
	}
}

func TestAssignColor_PrefersHashColor(t *testing.T) {
	want := Palette[hashString("Alice"+"conn-1")%len(Palette)]
	got := AssignColor("Alice", "conn-1", nil)
	assert.Equal(t, want, got)
}

func TestAssignColor_FirstFreeWhenHashTaken(t *testing.T) {
	preferred := AssignColor("Bob", "conn-2", nil)
	used := map[string]bool{preferred: true, Palette[0]: true}

	got := AssignColor("Bob", "conn-2", used)
	require.NotEqual(t, preferred, got)

	for _, c := range Palette {
		if !used[c] {
			assert.Equal(t, c, got)
			break
		}
	}
}

func TestAssignColor_AllTaken(t *testing.T) {
	used := make(map[string]bool)
	for _, c := range Palette {
		used[c] = true
	}
	preferred := AssignColor("Carol", "conn-3", nil)
	assert.Equal(t, preferred, AssignColor("Carol", "conn-3", used))
}

func TestAssignColor_DistinctUntilPaletteExhausted(t *testing.T) {
	used := make(map[string]bool)
	for i := 0; i < len(Palette); i++ {
		c := AssignColor("user", string(rune('a'+i)), used)
		require.False(t, used[c], "color %s assigned twice", c)
		used[c] = true
	}
	assert.Len(t, used, len(Palette))
}

func TestAction_CloneAndTranslate(t *testing.T) {
	a := Action{ID: "a1", Points: []Point{{X: 1, Y: 2}, {X: 3, Y: 4}}}
	c := a.Clone()
	c.Translate(10, -1)

	assert.Equal(t, []Point{{X: 1, Y: 2}, {X: 3, Y: 4}}, a.Points, "original must not change")
	assert.Equal(t, []Point{{X: 11, Y: 1}, {X: 13, Y: 3}}, c.Points)
}

func TestTool_Produces(t *testing.T) {
	assert.True(t, ToolBrush.Produces())
	assert.True(t, ToolDiamond.Produces())
	assert.False(t, ToolSelect.Produces())
	assert.False(t, Tool("lasso").Produces())
}
