package clog

import (
	"io"
	"log/slog"
)

// Setup installs the default logger: a text handler wrapped so that
// context-scoped attributes are attached to every record.
func Setup(w io.Writer, level slog.Level) {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(NewAttributesHandler(handler)))
}
