package logging

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/Graylog2/go-gelf/gelf"
)

// GraylogHandler returns a JSON slog handler writing to a GELF UDP endpoint.
// The returned closer releases the connection when the writer supports it.
func GraylogHandler(addr, level string) (slog.Handler, io.Closer, error) {
	w, err := gelf.NewWriter(addr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to graylog at %s: %w", addr, err)
	}

	var closer io.Closer
	if c, ok := any(w).(io.Closer); ok {
		closer = c
	}
	return slog.NewJSONHandler(w, handlerOptions(level)), closer, nil
}
