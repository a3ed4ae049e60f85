package fulfillment

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryMarkers reproduit la sémantique LWT de processed_events : un insert
// conditionnel sous mutex, un seul gagnant par clé
type memoryMarkers struct {
	mu   sync.Mutex
	keys map[string]time.Time
}

func newMemoryMarkers() *memoryMarkers {
	return &memoryMarkers{keys: map[string]time.Time{}}
}

func (m *memoryMarkers) insert(key string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.keys[key]; ok {
		return false, nil
	}
	m.keys[key] = at
	return true, nil
}

func (m *memoryMarkers) exists(key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.keys[key]
	return ok, nil
}

func swapMarkers(t *testing.T, s markerStore) {
	t.Helper()
	prev := markers
	markers = s
	t.Cleanup(func() { markers = prev })
}

func TestClaimFirstCallerWins(t *testing.T) {
	swapMarkers(t, newMemoryMarkers())

	applied, err := Claim("evt_1")
	require.NoError(t, err)
	assert.True(t, applied)

	// Toute répétition de la même clé perd, sans erreur
	for i := 0; i < 3; i++ {
		applied, err = Claim("evt_1")
		require.NoError(t, err)
		assert.False(t, applied)
	}

	// Une autre clé reste réclamable
	applied, err = Claim("evt_2")
	require.NoError(t, err)
	assert.True(t, applied)

	processed, err := IsProcessed("evt_1")
	require.NoError(t, err)
	assert.True(t, processed)

	processed, err = IsProcessed("evt_jamais_vu")
	require.NoError(t, err)
	assert.False(t, processed)
}

func TestClaimConcurrentExclusivity(t *testing.T) {
	// Livraisons simultanées du même événement : exactement un gagnant
	swapMarkers(t, newMemoryMarkers())

	const callers = 32
	var wg sync.WaitGroup
	results := make(chan bool, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			applied, err := Claim("evt_concurrent")
			assert.NoError(t, err)
			results <- applied
		}()
	}
	wg.Wait()
	close(results)

	winners := 0
	for applied := range results {
		if applied {
			winners++
		}
	}
	assert.Equal(t, 1, winners)
}
