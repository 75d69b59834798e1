package filevault

import (
	"crypto/subtle"

	"github.com/infodancer/filevault/errors"
)

// pkcs7Pad returns a new slice holding data followed by PKCS#7 padding.
// A full block of padding is appended when len(data) is already aligned.
func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	out := make([]byte, len(data)+n)
	copy(out, data)
	for i := len(data); i < len(out); i++ {
		out[i] = byte(n)
	}
	return out
}

// pkcs7Unpad strips PKCS#7 padding. The padding bytes are compared in
// constant time over a full block.
func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errors.ErrPadding
	}

	n := int(data[len(data)-1])
	good := subtle.ConstantTimeLessOrEq(1, n) & subtle.ConstantTimeLessOrEq(n, blockSize)

	tail := data[len(data)-blockSize:]
	for i := 0; i < blockSize; i++ {
		// Byte i of the final block is padding when i+n >= blockSize.
		inPad := subtle.ConstantTimeLessOrEq(blockSize, i+n)
		match := subtle.ConstantTimeByteEq(tail[i], byte(n))
		good &= subtle.ConstantTimeSelect(inPad, match, 1)
	}

	if good != 1 {
		return nil, errors.ErrPadding
	}
	return data[:len(data)-n], nil
}
