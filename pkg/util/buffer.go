package util

type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 | ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

// PutBE writes num big-endian into all of b, truncating high bytes.
func PutBE[T Integer](b []byte, num T) []byte {
	for i, n := 0, len(b); i < n; i++ {
		b[i] = byte(num >> ((n - i - 1) << 3))
	}
	return b
}

// AppendBE appends the low size bytes of num big-endian.
func AppendBE[T Integer](b []byte, num T, size int) []byte {
	for i := size - 1; i >= 0; i-- {
		b = append(b, byte(num>>(i<<3)))
	}
	return b
}

func ReadBE[T Integer](b []byte) (num T) {
	num = 0
	for i, n := 0, len(b); i < n; i++ {
		num += T(b[i]) << ((n - i - 1) << 3)
	}
	return
}
