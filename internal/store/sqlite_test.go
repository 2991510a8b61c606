package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLitePersistence_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "db", "scripts.sqlite")

	p, err := NewSQLitePersistence(ctx, path, "")
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, DefaultKey, p.Key())
	assert.Equal(t, path, p.Path())

	data, err := p.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, data)

	require.NoError(t, p.Save(ctx, []byte(`{"a":{"b":"c"}}`)))
	require.NoError(t, p.Save(ctx, []byte(`{"x":{"y":"z"}}`)))

	data, err = p.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"x":{"y":"z"}}`, string(data))

	info, err := p.Stat(ctx)
	require.NoError(t, err)
	assert.True(t, info.Exists)
	assert.Equal(t, int64(len(`{"x":{"y":"z"}}`)), info.Size)
}

func TestSQLitePersistence_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "scripts.sqlite")

	p1, err := NewSQLitePersistence(ctx, path, "custom")
	require.NoError(t, err)
	require.NoError(t, p1.Save(ctx, []byte(`{"k":{"n":"v"}}`)))
	require.NoError(t, p1.Close())

	p2, err := NewSQLitePersistence(ctx, path, "custom")
	require.NoError(t, err)
	defer p2.Close()

	data, err := p2.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"k":{"n":"v"}}`, string(data))

	// A different key is a different slot
	p3, err := NewSQLitePersistence(ctx, path, "other")
	require.NoError(t, err)
	defer p3.Close()

	data, err = p3.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestSQLitePersistence_Closed(t *testing.T) {
	ctx := context.Background()
	p, err := NewSQLitePersistence(ctx, filepath.Join(t.TempDir(), "scripts.sqlite"), "")
	require.NoError(t, err)
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	_, err = p.Load(ctx)
	assert.ErrorIs(t, err, ErrPersistenceClosed)
}

func TestStoreWithSQLitePersistence(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "scripts.sqlite")

	p, err := NewSQLitePersistence(ctx, path, "")
	require.NoError(t, err)

	s := NewStore(p, nil)
	_, err = s.Load(ctx)
	require.NoError(t, err)
	require.NoError(t, s.Put("example.com", "greet", "alert('hi')"))
	require.NoError(t, s.Flush(ctx))
	require.NoError(t, s.Close())

	p2, err := NewSQLitePersistence(ctx, path, "")
	require.NoError(t, err)
	s2 := NewStore(p2, nil)
	defer s2.Close()

	loaded, err := s2.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alert('hi')", loaded["example.com"]["greet"])
}
