package topology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddNode(t *testing.T) {
	g := New()
	g.AddNode("a")
	g.AddNode("a") // idempotent
	g.AddNode("b")
	assert.Equal(t, 2, g.Len())
}

func TestAddEdge(t *testing.T) {
	g := New()
	g.AddNode("a")
	g.AddNode("b")

	require.NoError(t, g.AddEdge("a", "b"))
	require.NoError(t, g.AddEdge("a", "b"), "parallel connections are allowed")

	n, err := g.Neighbours("b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, n)

	assert.ErrorContains(t, g.AddEdge("a", "a"), "self-referential")
	assert.ErrorContains(t, g.AddEdge("x", "a"), "source node not found: x")
	assert.ErrorContains(t, g.AddEdge("a", "x"), "destination node not found: x")

	_, err = g.Neighbours("x")
	assert.Error(t, err)
}

func TestIslands(t *testing.T) {
	g := New()
	for _, id := range []string{"grid", "load", "pv", "battery", "lamp"} {
		g.AddNode(id)
	}
	require.NoError(t, g.AddEdge("grid", "load"))
	require.NoError(t, g.AddEdge("pv", "load"))
	require.NoError(t, g.AddEdge("battery", "lamp"))

	assert.Equal(t, [][]string{
		{"battery", "lamp"},
		{"grid", "load", "pv"},
	}, g.Islands())
	assert.Empty(t, New().Islands())
}

func TestFindCycle(t *testing.T) {
	testCases := []struct {
		name  string
		edges [][2]string
		want  []string
	}{
		{name: "chain", edges: [][2]string{{"a", "b"}, {"b", "c"}}},
		{name: "diamond", edges: [][2]string{{"a", "b"}, {"a", "c"}, {"b", "d"}, {"c", "d"}}},
		{name: "loop", edges: [][2]string{{"a", "b"}, {"b", "c"}, {"c", "a"}}, want: []string{"a", "b", "c", "a"}},
		{name: "loop behind a tail", edges: [][2]string{{"a", "b"}, {"b", "c"}, {"c", "b"}}, want: []string{"b", "c", "b"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			g := New()
			for _, e := range tc.edges {
				g.AddNode(e[0])
				g.AddNode(e[1])
			}
			for _, e := range tc.edges {
				require.NoError(t, g.AddEdge(e[0], e[1]))
			}
			assert.Equal(t, tc.want, g.FindCycle())
		})
	}
}
