package scrape

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewParser(t *testing.T) {
	p, err := NewParser(SourceCareerBoard, staticFetcher{})
	require.NoError(t, err)
	assert.Equal(t, SourceCareerBoard, p.Name())

	_, err = NewParser("ghostboard", staticFetcher{})
	assert.ErrorIs(t, err, ErrUnknownSource)
}

func TestSources(t *testing.T) {
	assert.Contains(t, Sources(), SourceCareerBoard)
}
