package programLogParser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogCursor_Next(t *testing.T) {
	t.Run("yields lines in order then reports exhaustion", func(t *testing.T) {
		cursor := NewLogCursor([]string{"first", "second", "third"})

		for _, expected := range []string{"first", "second", "third"} {
			line, ok := cursor.Next()
			assert.True(t, ok)
			assert.Equal(t, expected, line)
		}

		line, ok := cursor.Next()
		assert.False(t, ok)
		assert.Equal(t, "", line)
	})

	t.Run("stays exhausted on repeated calls", func(t *testing.T) {
		cursor := NewLogCursor([]string{"only"})

		_, ok := cursor.Next()
		assert.True(t, ok)

		for i := 0; i < 3; i++ {
			_, ok := cursor.Next()
			assert.False(t, ok)
		}
	})

	t.Run("empty input is exhausted immediately", func(t *testing.T) {
		cursor := NewLogCursor(nil)

		_, ok := cursor.Next()
		assert.False(t, ok)
	})
}
