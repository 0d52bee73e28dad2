package structure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldValue(t *testing.T, rec interface {
	Get(string) (*string, bool)
}, name string) string {
	t.Helper()
	v, ok := rec.Get(name)
	require.True(t, ok, "field %q missing", name)
	require.NotNil(t, v, "field %q is null", name)
	return *v
}

func TestClassifyCommaTable(t *testing.T) {
	records := Classify("Name,Price\nApple,1\nBanana,2")

	require.Len(t, records, 2)
	assert.Equal(t, []string{"Name", "Price"}, records[0].Keys())
	assert.Equal(t, "Apple", fieldValue(t, records[0], "Name"))
	assert.Equal(t, "1", fieldValue(t, records[0], "Price"))
	assert.Equal(t, "Banana", fieldValue(t, records[1], "Name"))
	assert.Equal(t, "2", fieldValue(t, records[1], "Price"))
}

func TestClassifyDelimiterPriority(t *testing.T) {
	// The line contains both a pipe and a comma; pipe wins.
	records := Classify("Name|Price, USD\nApple|1,50")

	require.Len(t, records, 1)
	assert.Equal(t, "Apple", fieldValue(t, records[0], "Name"))
	assert.Equal(t, "1,50", fieldValue(t, records[0], "Price, USD"))
}

func TestClassifyTabBeatsPipe(t *testing.T) {
	records := Classify("a\tb|c\nx\ty")

	require.Len(t, records, 1)
	assert.Equal(t, []string{"a", "b|c"}, records[0].Keys())
}

func TestClassifyRaggedRowsPadWithEmpty(t *testing.T) {
	records := Classify("Name,Qty,Price\nApple,3\nBanana,2,5,extra")

	require.Len(t, records, 2)
	v, ok := records[0].Get("Price")
	require.True(t, ok)
	require.NotNil(t, v)
	assert.Equal(t, "", *v)

	// Extra cells beyond the header are dropped.
	assert.Len(t, records[1].Keys(), 3)
	assert.Equal(t, "5", fieldValue(t, records[1], "Price"))
}

func TestClassifyTableDropsEmptyCellsAndRows(t *testing.T) {
	records := Classify("| Name | Price |\n| Apple | 1 |\n| | |")

	require.Len(t, records, 1)
	assert.Equal(t, "Apple", fieldValue(t, records[0], "Name"))
	assert.Equal(t, "1", fieldValue(t, records[0], "Price"))
}

func TestClassifySingleDelimitedRowFallsToList(t *testing.T) {
	// One surviving row cannot form a table; every line is kept as a list
	// item instead.
	records := Classify("Name,Price")

	require.Len(t, records, 1)
	assert.Equal(t, "1", fieldValue(t, records[0], "position"))
	assert.Equal(t, "Name,Price", fieldValue(t, records[0], "item"))
}

func TestClassifyDelimiterEquivalence(t *testing.T) {
	comma := Classify("Name,Price\nApple,1\nBanana,2")
	pipe := Classify("Name|Price\nApple|1\nBanana|2")

	require.Equal(t, len(comma), len(pipe))
	for i := range comma {
		require.Equal(t, comma[i].Keys(), pipe[i].Keys())
		for _, k := range comma[i].Keys() {
			a, _ := comma[i].Get(k)
			b, _ := pipe[i].Get(k)
			require.NotNil(t, a)
			require.NotNil(t, b)
			assert.Equal(t, *a, *b)
		}
	}
}

func TestClassifyKeyValue(t *testing.T) {
	records := Classify("Store: Acme\nTotal: 25.50\nDate: 2024-01-15")

	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, []string{"Store", "Total", "Date"}, rec.Keys())
	assert.Equal(t, "Acme", fieldValue(t, rec, "Store"))
	assert.Equal(t, "25.50", fieldValue(t, rec, "Total"))
	assert.Equal(t, "2024-01-15", fieldValue(t, rec, "Date"))
}

func TestClassifyKeyValueIgnoresColonlessLines(t *testing.T) {
	records := Classify("Store: Acme\nThanks for shopping\nTotal: 25.50")

	require.Len(t, records, 1)
	assert.Equal(t, []string{"Store", "Total"}, records[0].Keys())
}

func TestClassifyKeyValueNeedsStrictMajority(t *testing.T) {
	// Exactly half the lines have a colon; not a majority, so the list rule
	// applies.
	records := Classify("Store: Acme\nThanks for shopping")

	require.Len(t, records, 2)
	assert.Equal(t, "Store: Acme", fieldValue(t, records[0], "item"))
}

func TestClassifyKeyValueEmptyKeysYieldNoRecords(t *testing.T) {
	records := Classify(": lost\n: noise")

	assert.Empty(t, records)
}

func TestClassifyList(t *testing.T) {
	records := Classify("1. Milk\n2. Eggs")

	require.Len(t, records, 2)
	assert.Equal(t, "1", fieldValue(t, records[0], "position"))
	assert.Equal(t, "Milk", fieldValue(t, records[0], "item"))
	assert.Equal(t, "2", fieldValue(t, records[1], "position"))
	assert.Equal(t, "Eggs", fieldValue(t, records[1], "item"))
}

func TestClassifyListMarkerVariants(t *testing.T) {
	records := Classify("- bread\n* butter\n• jam\n3) cheese\nplain")

	require.Len(t, records, 5)
	want := []string{"bread", "butter", "jam", "cheese", "plain"}
	for i, w := range want {
		assert.Equal(t, w, fieldValue(t, records[i], "item"))
	}
}

func TestClassifyEmptyInput(t *testing.T) {
	assert.Empty(t, Classify(""))
	assert.Empty(t, Classify("  \n\t\n"))
}
