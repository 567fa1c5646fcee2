package pgvector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Store behavior against a live PostgreSQL instance is covered by
// integration environments; these tests pin the pure helpers.

func TestQueryWords(t *testing.T) {
	assert.Equal(t, []string{"bangkok", "floating", "market"},
		queryWords("Bangkok  floating market?"))
	assert.Equal(t, []string{"día", "mercado"}, queryWords("¿día 2 mercado?"))
	assert.Empty(t, queryWords("a , !"))
	assert.Empty(t, queryWords(""))
}

func TestNewVectorStoreValidation(t *testing.T) {
	_, err := NewVectorStore(Config{DSN: "", Dimension: 384})
	assert.Error(t, err)
	_, err = NewVectorStore(Config{DSN: "postgres://localhost/docent", Dimension: 0})
	assert.Error(t, err)
}
