// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Macq (https://www.macq.eu/).
// Copyright 2023-present Macq.

package queue

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayloadStoreRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewPayloadStore(fs, "/home/payloads")

	link, err := store.Put("abc", []byte(`{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, "/home/payloads/abc.json", link)

	data, err := store.Get("abc")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(data))
}

func TestPayloadStorePutOverwrites(t *testing.T) {
	store := NewPayloadStore(afero.NewMemMapFs(), "/home/payloads")

	_, err := store.Put("abc", []byte(`old`))
	require.NoError(t, err)
	_, err = store.Put("abc", []byte(`new`))
	require.NoError(t, err)

	data, err := store.Get("abc")
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestPayloadStoreGetMissing(t *testing.T) {
	store := NewPayloadStore(afero.NewMemMapFs(), "/home/payloads")

	_, err := store.Get("nope")
	assert.ErrorIs(t, err, ErrPayloadMissing)
}

func TestPayloadStoreEraseIsIdempotent(t *testing.T) {
	store := NewPayloadStore(afero.NewMemMapFs(), "/home/payloads")

	_, err := store.Put("abc", []byte(`{}`))
	require.NoError(t, err)

	require.NoError(t, store.Erase("abc"))
	require.NoError(t, store.Erase("abc"))

	_, err = store.Get("abc")
	assert.ErrorIs(t, err, ErrPayloadMissing)
}
