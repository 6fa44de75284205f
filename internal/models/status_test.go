package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusLabels(t *testing.T) {
	assert.Equal(t, "Processing", StatusPending.Label())
	assert.Equal(t, "On the way", StatusInProgress.Label())
	assert.Equal(t, "Delivered", StatusDelivered.Label())
	assert.Equal(t, "Canceled", StatusCanceled.Label())
	assert.Equal(t, "Processing", Status("lost").Label())
}

func TestStatusFromLabel(t *testing.T) {
	cases := []struct {
		label string
		want  Status
		known bool
	}{
		{"Processing", StatusPending, true},
		{"  on the WAY ", StatusInProgress, true},
		{"delivered", StatusDelivered, true},
		{"CANCELED", StatusCanceled, true},
		{"Shipped", UnknownLabelPolicy, false},
		{"", UnknownLabelPolicy, false},
	}
	for _, c := range cases {
		got, known := StatusFromLabel(c.label)
		assert.Equal(t, c.want, got, c.label)
		assert.Equal(t, c.known, known, c.label)
	}
}

func TestStatusRoundTrip(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusInProgress, StatusDelivered, StatusCanceled} {
		got, ok := StatusFromLabel(s.Label())
		assert.True(t, ok)
		assert.Equal(t, s, got)
	}
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusPending, StatusInProgress))
	assert.True(t, CanTransition(StatusInProgress, StatusDelivered))
	assert.True(t, CanTransition(StatusDelivered, StatusDelivered))
	assert.False(t, CanTransition(StatusDelivered, StatusPending))
	assert.False(t, CanTransition(StatusCanceled, StatusInProgress))
}
