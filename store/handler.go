// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package store

import (
	"context"
	"net/http"

	"github.com/z5labs/cgibridge/dispatch"
	"github.com/z5labs/cgibridge/message"
)

// Handler returns a Dispatcher backed by s. The path of the request
// target is the key. GET reads the value and POST replaces it with the
// request body, responding with the previous value.
func Handler(s *Store) dispatch.Dispatcher {
	return dispatch.DispatcherFunc(func(ctx context.Context, req *message.Request) (*message.Response, error) {
		key := req.Path()

		var resp *message.Response
		err := s.With(ctx, func(tx Tx) error {
			switch req.Method {
			case message.MethodGet:
				v, ok := tx.Get(key)
				if !ok {
					resp = message.Text(http.StatusNotFound, "Not Found")
					return nil
				}
				resp = &message.Response{
					StatusCode: http.StatusOK,
					Header:     message.Header{{Name: "Content-Type", Value: "application/octet-stream"}},
					Body:       message.Bytes(v),
				}
			case message.MethodPost:
				prev, _ := tx.Put(key, req.Body)
				resp = &message.Response{
					StatusCode: http.StatusOK,
					Header:     message.Header{{Name: "Content-Type", Value: "application/octet-stream"}},
					Body:       message.Bytes(prev),
				}
			default:
				return dispatch.UnsupportedMethodError{Method: req.Method}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		return resp, nil
	})
}
