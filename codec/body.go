// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package codec

import (
	"errors"
	"io"
	"strconv"
)

// DefaultMaxBodySize bounds request bodies when no limit is configured.
const DefaultMaxBodySize int64 = 10 << 20

// ReadBody reads exactly n bytes from r. A limit of zero or less disables
// the size guard. No more than n bytes are ever consumed from r.
func ReadBody(r io.Reader, n, limit int64) ([]byte, error) {
	if n < 0 {
		return nil, InvalidContentLengthError{Value: strconv.FormatInt(n, 10)}
	}
	if n == 0 {
		return []byte{}, nil
	}
	if limit > 0 && n > limit {
		return nil, BodyTooLargeError{Length: n, Max: limit}
	}

	b := make([]byte, n)
	k, err := io.ReadFull(r, b)
	if err == nil {
		return b, nil
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, IncompleteBodyError{Expected: n, Actual: int64(k)}
	}
	return nil, err
}

func parseContentLength(v string) (int64, error) {
	n, err := strconv.ParseUint(v, 10, 63)
	if err != nil {
		return 0, InvalidContentLengthError{Value: v, Cause: err}
	}
	return int64(n), nil
}
