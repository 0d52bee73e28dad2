package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordMarshalPreservesOrder(t *testing.T) {
	rec := NewRecord()
	rec.Set("Name", "Apple")
	rec.Set("Price", "1.50")
	rec.SetNull("Notes")

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Equal(t, `{"Name":"Apple","Price":"1.50","Notes":null}`, string(data))
}

func TestRecordSetUpdatesInPlace(t *testing.T) {
	rec := NewRecord()
	rec.Set("a", "1")
	rec.Set("b", "2")
	rec.Set("a", "3")

	assert.Equal(t, []string{"a", "b"}, rec.Keys())
	v, ok := rec.Get("a")
	require.True(t, ok)
	require.NotNil(t, v)
	assert.Equal(t, "3", *v)
}

func TestRecordRoundTrip(t *testing.T) {
	var rec Record
	require.NoError(t, json.Unmarshal([]byte(`{"z":"last","a":"first","n":null,"count":3}`), &rec))

	assert.Equal(t, []string{"z", "a", "n", "count"}, rec.Keys())

	n, ok := rec.Get("n")
	require.True(t, ok)
	assert.Nil(t, n)

	count, _ := rec.Get("count")
	require.NotNil(t, count)
	assert.Equal(t, "3", *count)

	out, err := json.Marshal(&rec)
	require.NoError(t, err)
	assert.Equal(t, `{"z":"last","a":"first","n":null,"count":"3"}`, string(out))
}

func TestRecordUnmarshalRejectsNonObject(t *testing.T) {
	var rec Record
	assert.Error(t, json.Unmarshal([]byte(`["not","an","object"]`), &rec))
}

func TestOCRResultShapes(t *testing.T) {
	success := Extracted(nil)
	assert.True(t, success.Success)
	require.NotNil(t, success.Data)
	assert.Empty(t, success.Data)
	assert.Empty(t, success.Error)

	failure := Failed("something broke")
	assert.False(t, failure.Success)
	assert.Nil(t, failure.Data)
	assert.Equal(t, "something broke", failure.Error)
}

func TestImageDataRecognitionBytes(t *testing.T) {
	img := ImageData{MimeType: "image/png", Data: "b3JpZ2luYWw="}
	raw, err := img.RecognitionBytes()
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), raw)

	img.Preprocessed = "data:image/png;base64,Y2xlYW5lZA=="
	raw, err = img.RecognitionBytes()
	require.NoError(t, err)
	assert.Equal(t, []byte("cleaned"), raw)
}

func TestImageDataFormat(t *testing.T) {
	assert.Equal(t, "png", ImageData{MimeType: "image/png"}.Format())
	assert.Equal(t, "jpeg", ImageData{MimeType: "image/jpeg"}.Format())
	assert.Equal(t, "png", ImageData{}.Format())
}

func TestImageDataRejectsBadPayload(t *testing.T) {
	_, err := ImageData{Data: "!!!not base64!!!"}.OriginalBytes()
	assert.Error(t, err)

	_, err = ImageData{Data: ""}.OriginalBytes()
	assert.Error(t, err)
}
