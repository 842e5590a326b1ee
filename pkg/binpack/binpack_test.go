package binpack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScalarRoundTrip(t *testing.T) {
	t.Run("U8", func(t *testing.T) {
		w := NewWriter(0)
		w.PackU8(0xAB)
		r := NewReader(w.Bytes())
		v, err := r.UnpackU8()
		require.NoError(t, err)
		assert.Equal(t, uint8(0xAB), v)
		assert.True(t, r.Done())
	})

	t.Run("U16", func(t *testing.T) {
		w := NewWriter(0)
		w.PackU16(0xBEEF)
		r := NewReader(w.Bytes())
		v, err := r.UnpackU16()
		require.NoError(t, err)
		assert.Equal(t, uint16(0xBEEF), v)
	})

	t.Run("U32", func(t *testing.T) {
		w := NewWriter(0)
		w.PackU32(0xDEADBEEF)
		r := NewReader(w.Bytes())
		v, err := r.UnpackU32()
		require.NoError(t, err)
		assert.Equal(t, uint32(0xDEADBEEF), v)
	})

	t.Run("U64", func(t *testing.T) {
		w := NewWriter(0)
		w.PackU64(0x0102030405060708)
		r := NewReader(w.Bytes())
		v, err := r.UnpackU64()
		require.NoError(t, err)
		assert.Equal(t, uint64(0x0102030405060708), v)
	})

	t.Run("I64Negative", func(t *testing.T) {
		w := NewWriter(0)
		w.PackI64(-42)
		r := NewReader(w.Bytes())
		v, err := r.UnpackI64()
		require.NoError(t, err)
		assert.Equal(t, int64(-42), v)
	})

	t.Run("BoolTrueAndFalse", func(t *testing.T) {
		w := NewWriter(0)
		w.PackBool(true)
		w.PackBool(false)
		r := NewReader(w.Bytes())
		v1, err := r.UnpackBool()
		require.NoError(t, err)
		v2, err := r.UnpackBool()
		require.NoError(t, err)
		assert.True(t, v1)
		assert.False(t, v2)
	})
}

func TestLittleEndianByteOrder(t *testing.T) {
	w := NewWriter(0)
	w.PackU32(0x01020304)
	assert.Equal(t, []byte{0x04, 0x03, 0x02, 0x01}, w.Bytes())
}

func TestFixedBytesRoundTrip(t *testing.T) {
	secret := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	w := NewWriter(0)
	w.PackFixedBytes(secret)

	r := NewReader(w.Bytes())
	got, err := r.UnpackFixedBytes(len(secret))
	require.NoError(t, err)
	assert.Equal(t, secret, got)
	assert.True(t, r.Done())
}

func TestShortBytesRoundTrip(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		w := NewWriter(0)
		w.PackShortBytes(nil)
		r := NewReader(w.Bytes())
		got, err := r.UnpackShortBytes()
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("NonEmpty", func(t *testing.T) {
		name := []byte("some-directory-name")
		w := NewWriter(0)
		w.PackShortBytes(name)
		r := NewReader(w.Bytes())
		got, err := r.UnpackShortBytes()
		require.NoError(t, err)
		assert.Equal(t, name, got)
	})

	t.Run("PanicsOver255Bytes", func(t *testing.T) {
		w := NewWriter(0)
		assert.Panics(t, func() {
			w.PackShortBytes(make([]byte, 256))
		})
	})
}

func TestBytesRoundTrip(t *testing.T) {
	blob := make([]byte, 1000)
	for i := range blob {
		blob[i] = byte(i)
	}
	w := NewWriter(0)
	w.PackBytes(blob)
	r := NewReader(w.Bytes())
	got, err := r.UnpackBytes()
	require.NoError(t, err)
	assert.Equal(t, blob, got)
}

func TestU64ListRoundTrip(t *testing.T) {
	vs := []uint64{1, 2, 3, 1 << 40}
	w := NewWriter(0)
	w.PackU64List(vs)
	r := NewReader(w.Bytes())
	got, err := r.UnpackU64List()
	require.NoError(t, err)
	assert.Equal(t, vs, got)
}

func TestU32ListRoundTrip(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		w := NewWriter(0)
		w.PackU32List(nil)
		r := NewReader(w.Bytes())
		got, err := r.UnpackU32List()
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("NonEmpty", func(t *testing.T) {
		vs := []uint32{7, 8, 9}
		w := NewWriter(0)
		w.PackU32List(vs)
		r := NewReader(w.Bytes())
		got, err := r.UnpackU32List()
		require.NoError(t, err)
		assert.Equal(t, vs, got)
	})
}

func TestReaderErrorsOnShortBuffer(t *testing.T) {
	r := NewReader([]byte{0x01})
	_, err := r.UnpackU64()
	assert.ErrorIs(t, err, ErrBadEncoding)
}

func TestReaderErrorsOnTruncatedLengthPrefixedPayload(t *testing.T) {
	// declares a 10-byte short string but only supplies 2
	r := NewReader([]byte{10, 'a', 'b'})
	_, err := r.UnpackShortBytes()
	assert.ErrorIs(t, err, ErrBadEncoding)
}

func TestTruncateRollsBackLastAppend(t *testing.T) {
	w := NewWriter(0)
	w.PackU32(1)
	mark := w.Len()
	w.PackU64(2)
	w.Truncate(mark)
	assert.Equal(t, mark, w.Len())

	r := NewReader(w.Bytes())
	v, err := r.UnpackU32()
	require.NoError(t, err)
	assert.Equal(t, uint32(1), v)
	assert.True(t, r.Done())
}

func TestSequentialPackUnpackOfMixedFields(t *testing.T) {
	w := NewWriter(0)
	w.PackU8(1)
	w.PackU16(2)
	w.PackU32(3)
	w.PackU64(4)
	w.PackShortBytes([]byte("abc"))
	w.PackBytes([]byte("defg"))
	w.PackU64List([]uint64{5, 6})

	r := NewReader(w.Bytes())

	u8, err := r.UnpackU8()
	require.NoError(t, err)
	u16, err := r.UnpackU16()
	require.NoError(t, err)
	u32, err := r.UnpackU32()
	require.NoError(t, err)
	u64, err := r.UnpackU64()
	require.NoError(t, err)
	short, err := r.UnpackShortBytes()
	require.NoError(t, err)
	long, err := r.UnpackBytes()
	require.NoError(t, err)
	list, err := r.UnpackU64List()
	require.NoError(t, err)

	assert.Equal(t, uint8(1), u8)
	assert.Equal(t, uint16(2), u16)
	assert.Equal(t, uint32(3), u32)
	assert.Equal(t, uint64(4), u64)
	assert.Equal(t, []byte("abc"), short)
	assert.Equal(t, []byte("defg"), long)
	assert.Equal(t, []uint64{5, 6}, list)
	assert.True(t, r.Done())
}
