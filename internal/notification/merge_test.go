package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ids(items []Notification) []string {
	out := make([]string, len(items))
	for i, n := range items {
		out[i] = n.ID
	}
	return out
}

func TestMerge_PersonalCopyShadowsGlobal(t *testing.T) {
	global := []Notification{
		{ID: "g2", CreatedAt: 30, Text: "two", IsGlobal: true},
		{ID: "g1", CreatedAt: 10, Text: "one", IsGlobal: true},
	}
	personal := []Notification{
		{ID: "g1", CreatedAt: 10, Text: "one", IsGlobal: true, Read: true},
		{ID: "p1", CreatedAt: 20, Text: "mine"},
	}

	got := Merge(personal, global)
	assert.Equal(t, []string{"g2", "p1", "g1"}, ids(got))
	assert.True(t, got[2].Read)
	assert.False(t, got[0].Read)
}

func TestMerge_CollapsesPersonalDuplicates(t *testing.T) {
	personal := []Notification{
		{ID: "a", CreatedAt: 1},
		{ID: "a", CreatedAt: 1, Read: true},
	}
	got := Merge(personal, nil)
	assert.Len(t, got, 1)
	assert.True(t, got[0].Read)
}

func TestMerge_TieBreakIsDeterministic(t *testing.T) {
	got := Merge([]Notification{{ID: "a", CreatedAt: 5}, {ID: "c", CreatedAt: 5}}, []Notification{{ID: "b", CreatedAt: 5}})
	assert.Equal(t, []string{"c", "b", "a"}, ids(got))
}

func TestMerge_Empty(t *testing.T) {
	got := Merge(nil, nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestUnreadCount(t *testing.T) {
	assert.Equal(t, 2, UnreadCount([]Notification{{ID: "a"}, {ID: "b", Read: true}, {ID: "c"}}))
}
