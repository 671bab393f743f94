package sbs

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFramer_SingleChunk(t *testing.T) {
	f := &Framer{}
	lines := f.Push([]byte("MSG,3,1,1,ABC123,1\nMSG,4,1,1,DEF456,1\n"))
	require.Len(t, lines, 2)
	assert.Equal(t, "MSG,3,1,1,ABC123,1", lines[0])
	assert.Equal(t, "MSG,4,1,1,DEF456,1", lines[1])
}

func TestFramer_PartialLineCarriedOver(t *testing.T) {
	f := &Framer{}

	lines := f.Push([]byte("MSG,3,1,1,AB"))
	assert.Empty(t, lines)

	lines = f.Push([]byte("C123,1\nMSG,4"))
	require.Len(t, lines, 1)
	assert.Equal(t, "MSG,3,1,1,ABC123,1", lines[0])

	lines = f.Push([]byte(",1,1,DEF456,1\n"))
	require.Len(t, lines, 1)
	assert.Equal(t, "MSG,4,1,1,DEF456,1", lines[0])
}

func TestFramer_CRLFAndBlankLines(t *testing.T) {
	f := &Framer{}
	lines := f.Push([]byte("MSG,1\r\n\r\nMSG,2\r\n"))
	require.Len(t, lines, 2)
	assert.Equal(t, "MSG,1", lines[0])
	assert.Equal(t, "MSG,2", lines[1])
}

func TestFramer_EmptyChunk(t *testing.T) {
	f := &Framer{}
	assert.Empty(t, f.Push(nil))
	assert.Empty(t, f.Push([]byte{}))
}

// Splitting the same input at every possible byte boundary must yield the
// same lines as feeding it whole, regardless of how the network fragments
// reads.
func TestFramer_SplitAtEveryBoundary(t *testing.T) {
	input := "MSG,3,1,1,ABC123,1,,,,,,35000,450,270,42.1,-71.2,0,,,,,,\r\nMSG,1,1,1,4840D6,1,,,,,KLM1023,,,,,,,,,,,,\nSTA,,1,1\n"

	whole := (&Framer{}).Push([]byte(input))
	require.NotEmpty(t, whole)

	for cut := 1; cut < len(input); cut++ {
		t.Run(fmt.Sprintf("cut_at_%d", cut), func(t *testing.T) {
			f := &Framer{}
			var lines []string
			lines = append(lines, f.Push([]byte(input[:cut]))...)
			lines = append(lines, f.Push([]byte(input[cut:]))...)
			assert.Equal(t, whole, lines)
		})
	}
}

func TestFramer_OneByteAtATime(t *testing.T) {
	input := "MSG,3,1,1,ABC123,1\nMSG,4,1,1,DEF456,1\n"
	f := &Framer{}
	var lines []string
	for i := 0; i < len(input); i++ {
		lines = append(lines, f.Push([]byte{input[i]})...)
	}
	require.Len(t, lines, 2)
	assert.Equal(t, "MSG,3,1,1,ABC123,1", lines[0])
	assert.Equal(t, "MSG,4,1,1,DEF456,1", lines[1])
}

func TestFramer_ResetDiscardsPartial(t *testing.T) {
	f := &Framer{}
	assert.Empty(t, f.Push([]byte("MSG,3,1,1,AB")))

	f.Reset()

	// The fragment must not leak into the next connection's first line.
	lines := f.Push([]byte("MSG,4,1,1,DEF456,1\n"))
	require.Len(t, lines, 1)
	assert.Equal(t, "MSG,4,1,1,DEF456,1", lines[0])
}
