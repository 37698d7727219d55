package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	ID      string `db:"id"`
	Name    string `db:"name"`
	Skipped string `db:"-"`
	NoTag   string
	hidden  string `db:"hidden"`
}

func TestStructTagValues(t *testing.T) {
	assert.Equal(t, []string{"id", "name"}, StructTagValues(sample{}))
	assert.Equal(t, []string{"id", "name"}, StructTagValues(&sample{}))
	assert.Panics(t, func() { StructTagValues("nope") })
}

func TestStructToMap(t *testing.T) {
	s := &sample{ID: "1", Name: "Asha", Skipped: "x", NoTag: "y", hidden: "z"}

	assert.Equal(t, map[string]any{"id": "1", "name": "Asha"}, StructToMap(s))
	assert.Equal(t, map[string]any{"name": "Asha"}, StructToMap(s, "id"))
}

func TestNanoID(t *testing.T) {
	id := NanoID()
	assert.Len(t, id, NanoidSize)
	assert.True(t, IsNanoID(id))
	assert.False(t, IsNanoID("short"))
	assert.False(t, IsNanoID("0123456789abcdefghijklmnopqrstu-"))
	assert.Len(t, NanoIDSize(10), 10)
}

func TestTrimmedOrNil(t *testing.T) {
	assert.Nil(t, TrimmedOrNil(nil))
	assert.Nil(t, TrimmedOrNil(StringPtr("   ")))
	assert.Equal(t, "City Hospital", PtrString(TrimmedOrNil(StringPtr(" City Hospital "))))
}

func TestStartOfDay(t *testing.T) {
	in := time.Date(2026, 3, 14, 17, 45, 12, 99, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), StartOfDay(in))
}
