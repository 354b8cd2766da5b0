package diag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestParseReport(t *testing.T) {
	doc := gjson.Parse(`{
		"test_results": [
			{
				"test": "diagnostic",
				"results": [
					{"status": "Pass", "gpu_id": 0, "info": "GPU 0 calculated approximately 41234.5 gigaflops"},
					{"status": "Fail", "info": ["first line", "second line", ""]}
				]
			},
			{"test": "pcie", "results": []}
		]
	}`)

	tests := ParseReport(doc)
	require.Len(t, tests, 2)
	assert.Equal(t, "diagnostic", tests[0].Name)
	require.Len(t, tests[0].Entries, 2)

	require.NotNil(t, tests[0].Entries[0].GPUID)
	assert.Equal(t, 0, *tests[0].Entries[0].GPUID)

	// Info lists join with "; ", blanks dropped; no gpu_id stays nil.
	assert.Equal(t, "first line; second line", tests[0].Entries[1].Info)
	assert.Nil(t, tests[0].Entries[1].GPUID)

	assert.Equal(t, "pcie", tests[1].Name)
	assert.Empty(t, tests[1].Entries)
}

func TestParseReportEmpty(t *testing.T) {
	assert.Empty(t, ParseReport(gjson.Parse(`{}`)))
}
