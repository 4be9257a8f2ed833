package storage

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mitsukabu/screener/internal/models"
)

func TestParseStatus(t *testing.T) {
	for _, valid := range []string{"none", "watching", "considering", "holding"} {
		status, err := ParseStatus(valid)
		require.NoError(t, err)
		assert.Equal(t, Status(valid), status)
	}

	_, err := ParseStatus("bought")
	assert.ErrorIs(t, err, models.ErrInvalidStatus)

	_, err = ParseStatus("")
	assert.ErrorIs(t, err, models.ErrInvalidStatus)
}

func TestAnnotations_StatusDefaultsToNone(t *testing.T) {
	a := NewAnnotations(NewMemoryMedium())
	assert.Equal(t, StatusNone, a.Status("7203"))
}

func TestAnnotations_SetStatusExclusive(t *testing.T) {
	a := NewAnnotations(NewMemoryMedium())

	require.NoError(t, a.SetStatus("7203", StatusWatching))
	assert.Equal(t, StatusWatching, a.Status("7203"))
	assert.True(t, a.Favorites.Contains("7203"))
	assert.False(t, a.Considering.Contains("7203"))
	assert.False(t, a.Holdings.Contains("7203"))

	// Moving to another status removes every other membership.
	require.NoError(t, a.SetStatus("7203", StatusHolding))
	assert.Equal(t, StatusHolding, a.Status("7203"))
	assert.False(t, a.Favorites.Contains("7203"))
	assert.False(t, a.Considering.Contains("7203"))
	assert.True(t, a.Holdings.Contains("7203"))

	require.NoError(t, a.SetStatus("7203", StatusConsidering))
	assert.Equal(t, StatusConsidering, a.Status("7203"))
	assert.True(t, a.Considering.Contains("7203"))
	assert.False(t, a.Holdings.Contains("7203"))

	require.NoError(t, a.SetStatus("7203", StatusNone))
	assert.Equal(t, StatusNone, a.Status("7203"))
	assert.False(t, a.Favorites.Contains("7203"))
	assert.False(t, a.Considering.Contains("7203"))
	assert.False(t, a.Holdings.Contains("7203"))
}

func TestAnnotations_SetStatusIdempotent(t *testing.T) {
	a := NewAnnotations(NewMemoryMedium())

	require.NoError(t, a.SetStatus("7203", StatusWatching))
	require.NoError(t, a.SetStatus("7203", StatusWatching))
	assert.Equal(t, StatusWatching, a.Status("7203"))
	assert.Equal(t, 1, a.Favorites.Count())
}

func TestAnnotations_StatusDoesNotTouchNotes(t *testing.T) {
	a := NewAnnotations(NewMemoryMedium())

	require.NoError(t, a.Notes.Set("7203", "watch after earnings"))
	require.NoError(t, a.SetStatus("7203", StatusHolding))
	require.NoError(t, a.SetStatus("7203", StatusNone))

	assert.Equal(t, "watch after earnings", a.Notes.Get("7203"))
}

func TestAnnotations_IndependentCodes(t *testing.T) {
	a := NewAnnotations(NewMemoryMedium())

	require.NoError(t, a.SetStatus("7203", StatusWatching))
	require.NoError(t, a.SetStatus("9984", StatusHolding))

	assert.Equal(t, StatusWatching, a.Status("7203"))
	assert.Equal(t, StatusHolding, a.Status("9984"))
	assert.Equal(t, StatusNone, a.Status("6758"))
}

func TestAnnotations_StatusesReadsOnce(t *testing.T) {
	a := NewAnnotations(NewMemoryMedium())

	require.NoError(t, a.SetStatus("7203", StatusWatching))
	require.NoError(t, a.SetStatus("9984", StatusConsidering))
	require.NoError(t, a.SetStatus("6758", StatusHolding))

	statuses := a.Statuses()
	assert.Equal(t, map[string]Status{
		"7203": StatusWatching,
		"9984": StatusConsidering,
		"6758": StatusHolding,
	}, statuses)
	_, ok := statuses["8306"]
	assert.False(t, ok)
}

func TestAnnotations_ConcurrentSetStatusStaysExclusive(t *testing.T) {
	a := NewAnnotations(NewMemoryMedium())

	statuses := []Status{StatusWatching, StatusConsidering, StatusHolding}
	var wg sync.WaitGroup
	wg.Add(30)
	for i := 0; i < 30; i++ {
		go func(status Status) {
			defer wg.Done()
			assert.NoError(t, a.SetStatus("7203", status))
		}(statuses[i%len(statuses)])
	}
	wg.Wait()

	memberships := 0
	for _, set := range []*CodeSet{a.Favorites, a.Considering, a.Holdings} {
		if set.Contains("7203") {
			memberships++
		}
	}
	assert.Equal(t, 1, memberships)
}
