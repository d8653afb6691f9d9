package store

import (
	"sync"
	"testing"

	"github.com/rzzdr/cds-pricing-engine/pkg/models"
	"github.com/rzzdr/cds-pricing-engine/pkg/utils/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryTradeStore(t *testing.T) {
	s := NewInMemoryTradeStore()

	require.NoError(t, s.Save(models.CdsTrade{ID: "b", LegalEntity: "ACME"}))
	require.NoError(t, s.Save(models.CdsTrade{ID: "a", LegalEntity: "INITECH"}))
	require.NoError(t, s.Save(models.CdsTrade{ID: "b", LegalEntity: "GLOBEX"}))

	assert.Equal(t, 2, s.Len())

	got, err := s.Get("b")
	require.NoError(t, err)
	assert.Equal(t, "GLOBEX", got.LegalEntity)

	all := s.All()
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].ID)
	assert.Equal(t, "b", all[1].ID)

	require.NoError(t, s.Delete("a"))
	_, err = s.Get("a")
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
	assert.True(t, errors.IsType(s.Delete("a"), errors.ErrorTypeNotFound))
}

func TestInMemoryTradeStoreRejectsEmptyID(t *testing.T) {
	err := NewInMemoryTradeStore().Save(models.CdsTrade{})
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidArgument))
}

func TestInMemoryTradeStoreConcurrentAccess(t *testing.T) {
	s := NewInMemoryTradeStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.Save(models.CdsTrade{ID: string(rune('A' + i%26))})
			_ = s.All()
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 26, s.Len())
}
