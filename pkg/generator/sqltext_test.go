package generator

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lab271/dmvoor/pkg/sampler"
	"github.com/lab271/dmvoor/pkg/workload"
)

func newTestSynthesizer(seed int64) *sqlSynthesizer {
	return newSQLSynthesizer(sampler.New(rand.New(rand.NewSource(seed))))
}

// containsAny reports whether the text carries at least one marker.
func containsAny(text string, markers []string) bool {
	for _, marker := range markers {
		if strings.Contains(text, marker) {
			return true
		}
	}

	return false
}

func TestSQLSynthesizer_OLTPShapes(t *testing.T) {
	markers := []string{
		"SELECT * FROM", "INSERT INTO", "UPDATE ", "DELETE FROM",
		")INSERT [dbo].[", "insert bulk [dbo].[", " INTO #",
	}

	synth := newTestSynthesizer(1)
	matched := make(map[string]bool)

	for i := 0; i < 50; i++ {
		text := synth.ForClass(workload.ClassOLTP)
		require.NotEmpty(t, text)
		require.True(t, containsAny(text, markers), "unexpected oltp shape: %s", text)

		for _, marker := range markers {
			if strings.Contains(text, marker) {
				matched[marker] = true
			}
		}
	}

	assert.GreaterOrEqual(t, len(matched), 3, "oltp statements should mix forms")
}

func TestSQLSynthesizer_OLAPShapes(t *testing.T) {
	markers := []string{
		"GROUP BY", "nvarchar(max))SELECT", "ROW_NUMBER() OVER", "@TempTableID",
	}

	synth := newTestSynthesizer(2)
	matched := make(map[string]bool)

	for i := 0; i < 50; i++ {
		text := synth.ForClass(workload.ClassOLAP)
		require.True(t, containsAny(text, markers), "unexpected olap shape: %s", text)

		for _, marker := range markers {
			if strings.Contains(text, marker) {
				matched[marker] = true
			}
		}
	}

	assert.GreaterOrEqual(t, len(matched), 2, "olap statements should mix forms")
}

func TestSQLSynthesizer_ProblematicShapes(t *testing.T) {
	markers := []string{
		"LIKE '%", "YEAR(", "ORDER BY CreatedDate DESC", "CROSS JOIN",
	}

	synth := newTestSynthesizer(3)

	for i := 0; i < 50; i++ {
		text := synth.ForClass(workload.ClassProblematic)
		require.True(t, containsAny(text, markers), "unexpected problematic shape: %s", text)
	}
}

func TestSQLSynthesizer_Deterministic(t *testing.T) {
	classes := []workload.Class{
		workload.ClassOLTP, workload.ClassOLAP, workload.ClassProblematic,
	}

	first := newTestSynthesizer(42)
	second := newTestSynthesizer(42)

	for i := 0; i < 30; i++ {
		class := classes[i%len(classes)]
		assert.Equal(t, first.ForClass(class), second.ForClass(class))
	}
}
