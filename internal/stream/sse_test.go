// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package stream

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReader_Frames(t *testing.T) {
	body := ": keep-alive\n\n" +
		"event: request.created\n" +
		"id: 7\n" +
		"data: {\"public_id\":\"a\",\n" +
		"data: \"status\":\"CREATED\"}\n" +
		"\n" +
		"retry: 5000\r\n" +
		"event:request.updated\r\n" +
		"data:{}\r\n" +
		"\r\n" +
		"event: request.created\n" +
		"data: truncated"

	r := NewReader(strings.NewReader(body))

	f, err := r.Next()
	require.NoError(t, err)
	require.Equal(t, Frame{ID: "7", Event: "request.created", Data: "{\"public_id\":\"a\",\n\"status\":\"CREATED\"}"}, f)

	f, err = r.Next()
	require.NoError(t, err)
	require.Equal(t, Frame{Event: "request.updated", Data: "{}"}, f)

	_, err = r.Next()
	require.ErrorIs(t, err, io.EOF, "an unterminated trailing frame is discarded")
}

func TestReader_OversizedFrameIsSkipped(t *testing.T) {
	body := "event: request.created\n" +
		"data: " + strings.Repeat("x", maxFrameBytes+1) + "\n" +
		"id: 1\n" +
		"\n" +
		"event: request.updated\n" +
		"data: {}\n" +
		"\n"
	r := NewReader(strings.NewReader(body))

	_, err := r.Next()
	require.ErrorIs(t, err, ErrFrameTooLarge)

	f, err := r.Next()
	require.NoError(t, err)
	require.Equal(t, Frame{Event: "request.updated", Data: "{}"}, f)

	_, err = r.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestReader_OversizedAcrossDataLines(t *testing.T) {
	half := strings.Repeat("y", maxFrameBytes/2+1)
	body := "data: " + half + "\n" + "data: " + half + "\n\n" + "data: ok\n\n"
	r := NewReader(strings.NewReader(body))

	_, err := r.Next()
	require.ErrorIs(t, err, ErrFrameTooLarge)

	f, err := r.Next()
	require.NoError(t, err)
	require.Equal(t, "ok", f.Data)
}
