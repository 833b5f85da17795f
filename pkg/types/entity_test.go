package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetaTouchNeverMovesBackward(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m := Meta{ID: "a", LastModified: t0}

	later := m.Touch(t0.Add(time.Minute))
	assert.Equal(t, t0.Add(time.Minute), later.LastModified)

	earlier := m.Touch(t0.Add(-time.Minute))
	assert.Equal(t, t0, earlier.LastModified, "touch must not move LastModified backward")
	assert.Equal(t, t0, m.LastModified, "touch returns a copy")
}

func TestWithMetaReturnsCopy(t *testing.T) {
	orig := Item{Meta: Meta{ID: "a", SortOrder: 3}, Title: "dentist"}
	moved := orig.WithMeta(Meta{ID: "a", SortOrder: 0, Ref: "items/a"})

	assert.Equal(t, 3, orig.Order())
	assert.Equal(t, 0, moved.Order())
	assert.Equal(t, RemoteRef("items/a"), moved.Ref)
	assert.Equal(t, "dentist", moved.Title)
}

func TestEntityTypesSatisfyContracts(t *testing.T) {
	var _ Entity[Item] = Item{}
	var _ Entity[Category] = Category{}
	var _ Entity[Habit] = Habit{}
	var _ Entity[HabitCompletion] = HabitCompletion{}
	var _ Entity[RoutineTemplate] = RoutineTemplate{}
	var _ Entity[RoutineProgress] = RoutineProgress{}

	var _ Recurring = Item{}
	var _ Recurring = Habit{}
	var _ Recurring = RoutineTemplate{}
}

func TestIsKnownKind(t *testing.T) {
	for _, k := range StandardKinds {
		assert.True(t, IsKnownKind(k), k)
	}
	assert.False(t, IsKnownKind("widgets"))
	assert.True(t, RemoteRef("").IsZero())
}
