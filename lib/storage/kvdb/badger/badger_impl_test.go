package badger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alkanes/alkanescore/lib/storage/kvdb"
)

func TestBadgerRoundTrip(t *testing.T) {
	db, err := kvdb.CreateKVInstance(&kvdb.KVParameter{
		KVEngineType: kvdb.KVEngineTypeBadger,
		InMemory:     true,
	})
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Get([]byte("absent"))
	assert.Equal(t, kvdb.ErrNotFound, err)

	batch := db.NewBatch()
	require.NoError(t, batch.Put([]byte("a"), []byte("1")))
	require.NoError(t, batch.Put([]byte("b"), []byte("2")))
	require.NoError(t, batch.Write())

	v, err := db.Get([]byte("b"))
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), v)

	require.NoError(t, db.Delete([]byte("a")))
	ok, err := db.Has([]byte("a"))
	require.NoError(t, err)
	assert.False(t, ok)
}
