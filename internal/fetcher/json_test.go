package fetcher

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSONArray(t *testing.T) {
	in := `[{"crash_record_id":"a","injuries_total":"2"},{"crash_record_id":"b"}]`
	out, errs := DecodeJSONArray[map[string]any](context.Background(), strings.NewReader(in))
	got := drain(t, out, errs)

	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0]["crash_record_id"])
	assert.Equal(t, "2", got[0]["injuries_total"])
}

func TestDecodeJSONArray_Empty(t *testing.T) {
	out, errs := DecodeJSONArray[map[string]any](context.Background(), strings.NewReader(""))
	assert.Empty(t, drain(t, out, errs))
}

func TestDecodeJSONArray_NotAnArray(t *testing.T) {
	out, errs := DecodeJSONArray[map[string]any](context.Background(), strings.NewReader(`{"a":1}`))
	for range out {
	}
	assert.Error(t, <-errs)
}
