package parser

import (
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paper-rag/internal/models"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"newlines and spaces", "Hello\n\n  world", "Hello world"},
		{"empty", "", ""},
		{"only whitespace", " \n\t\r\n ", ""},
		{"tabs and carriage returns", "a\t\tb\r\nc", "a b c"},
		{"leading and trailing", "  padded text \n", "padded text"},
		{"already clean", "one two three", "one two three"},
		{"unicode spaces", "a\u2002\u00a0b\vc", "a b c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanText(tt.in))
		})
	}
}

func TestCleanText_NoWhitespaceRuns(t *testing.T) {
	inputs := []string{
		"Line one\nLine two\n\n\nLine three",
		"\t\tindented\n\tblock\n",
		"word  \n  word",
		strings.Repeat("x \n ", 50),
	}

	for _, in := range inputs {
		out := CleanText(in)
		assert.NotContains(t, out, "\n")
		assert.Equal(t, strings.TrimSpace(out), out)

		prevSpace := false
		for _, r := range out {
			isSpace := unicode.IsSpace(r)
			assert.False(t, prevSpace && isSpace, "whitespace run in %q", out)
			prevSpace = isSpace
		}
	}
}

func TestChunkText_WindowOffsets(t *testing.T) {
	text := makeText(1700)

	chunks, err := ChunkText(text, 800, 200)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	assert.Equal(t, text[0:800], chunks[0])
	assert.Equal(t, text[600:1400], chunks[1])
	assert.Equal(t, text[1200:1700], chunks[2])
	assert.Len(t, chunks[2], 500)
}

func TestChunkText_ShortPageDropped(t *testing.T) {
	chunks, err := ChunkText(makeText(90), 800, 200)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestChunkText_SinglePageFitsOneChunk(t *testing.T) {
	for _, n := range []int{100, 450, 750, 800} {
		text := makeText(n)
		chunks, err := ChunkText(text, 800, 200)
		require.NoError(t, err)
		require.Len(t, chunks, 1, "length %d", n)
		assert.Equal(t, text, chunks[0])
	}
}

func TestChunkText_TrailingFragmentDropped(t *testing.T) {
	tests := []struct {
		name          string
		length        int
		size, overlap int
		want          []int
	}{
		{"fragment after full window", 350, 300, 0, []int{300}},
		{"fragment after overlapping window", 330, 300, 50, []int{300}},
		{"fragment exactly at floor is kept", 400, 300, 0, []int{300, 100}},
		{"last window reaches the end", 1250, 800, 200, []int{800, 650}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks, err := ChunkText(makeText(tt.length), tt.size, tt.overlap)
			require.NoError(t, err)

			var got []int
			for _, c := range chunks {
				got = append(got, len(c))
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestChunkText_Overlap(t *testing.T) {
	sizes := []struct{ size, overlap int }{
		{800, 200},
		{300, 0},
		{250, 249},
		{120, 60},
	}

	for _, s := range sizes {
		chunks, err := ChunkText(makeText(2500), s.size, s.overlap)
		require.NoError(t, err)
		require.NotEmpty(t, chunks)

		for i := 0; i+1 < len(chunks); i++ {
			cur, next := chunks[i], chunks[i+1]
			require.Len(t, cur, s.size)
			assert.Equal(t, cur[len(cur)-s.overlap:], next[:s.overlap],
				"size=%d overlap=%d chunk=%d", s.size, s.overlap, i)
		}
	}
}

func TestChunkText_CountsCharactersNotBytes(t *testing.T) {
	text := strings.Repeat("é", 150)

	chunks, err := ChunkText(text, 100, 0)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, 100, len([]rune(chunks[0])))
}

func TestChunkText_NormalizesFirst(t *testing.T) {
	raw := strings.Repeat("word\n\n   ", 60)

	chunks, err := ChunkText(raw, 800, 200)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, CleanText(raw), chunks[0])
	assert.NotContains(t, chunks[0], "\n")
}

func TestChunkText_InvalidWindow(t *testing.T) {
	tests := []struct {
		name          string
		size, overlap int
	}{
		{"overlap equals size", 200, 200},
		{"overlap larger than size", 200, 300},
		{"negative overlap", 200, -1},
		{"zero size", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ChunkText(makeText(1000), tt.size, tt.overlap)
			require.Error(t, err)
			assert.ErrorIs(t, err, models.ErrInvalidInput)
		})
	}
}

func TestChunkPages_PreservesOrderAndMetadata(t *testing.T) {
	pages := []models.Page{
		{Source: "a.pdf", Page: 1, Text: makeText(1700)},
		{Source: "a.pdf", Page: 2, Text: makeText(40)},
		{Source: "b.pdf", Page: 7, Text: makeText(300)},
	}

	chunks, err := ChunkPages(pages, 800, 200)
	require.NoError(t, err)
	require.Len(t, chunks, 4)

	for i := 0; i < 3; i++ {
		assert.Equal(t, "a.pdf", chunks[i].Source)
		assert.Equal(t, 1, chunks[i].Page)
	}
	assert.Equal(t, "b.pdf", chunks[3].Source)
	assert.Equal(t, 7, chunks[3].Page)

	for _, c := range chunks {
		assert.GreaterOrEqual(t, len([]rune(c.Text)), models.MinChunkLength)
	}
}

// makeText builds n characters of single-spaced text that CleanText leaves untouched
func makeText(n int) string {
	b := make([]byte, n)
	for i := range b {
		if i%7 == 6 {
			b[i] = ' '
		} else {
			b[i] = byte('a' + i%26)
		}
	}
	if n > 0 && b[n-1] == ' ' {
		b[n-1] = 'z'
	}
	return string(b)
}
