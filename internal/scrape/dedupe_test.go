package scrape

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDedupeKeepsFirstOccurrence(t *testing.T) {
	rows := rowsWithURLs(
		"amazon|https://www.amazon.in/dp/B01",
		"amazon|https://www.amazon.in/dp/B02",
		"amazon|https://www.amazon.in/dp/B01",
		"flipkart|https://www.flipkart.com/x/p/itm1",
	)
	rows[0].ListPosition = 1
	rows[2].ListPosition = 9

	out := Dedupe(rows)
	require.Len(t, out, 3)
	assert.Equal(t, 1, out[0].ListPosition)
}

func TestDedupeSameURLDifferentPlatforms(t *testing.T) {
	rows := rowsWithURLs(
		"amazon|https://example.com/p",
		"flipkart|https://example.com/p",
	)
	assert.Len(t, Dedupe(rows), 2)
}

func TestDedupeIsIdempotent(t *testing.T) {
	rows := rowsWithURLs(
		"amazon|https://www.amazon.in/dp/B01",
		"amazon|https://www.amazon.in/dp/B01",
		"amazon|https://www.amazon.in/dp/B02",
	)
	once := Dedupe(rows)
	twice := Dedupe(once)
	assert.Equal(t, once, twice)
}

func TestDedupePassesRowsWithoutURL(t *testing.T) {
	rows := rowsWithURLs("amazon|", "amazon|")
	assert.Len(t, Dedupe(rows), 2)
}

func TestDedupeDoesNotMutateInput(t *testing.T) {
	rows := rowsWithURLs(
		"amazon|https://www.amazon.in/dp/B01",
		"amazon|https://www.amazon.in/dp/B01",
	)
	_ = Dedupe(rows)
	assert.Len(t, rows, 2)
}
