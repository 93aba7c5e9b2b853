package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// annotationEscaper escapes data for a GitHub Actions workflow command.
var annotationEscaper = strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A")

// writeAnnotation emits r as a ::warning:: or ::error:: workflow command so it
// shows up on the run summary page.
func writeAnnotation(w io.Writer, r slog.Record) {
	command := "warning"
	if r.Level >= slog.LevelError {
		command = "error"
	}

	var b strings.Builder
	b.WriteString(r.Message)
	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(&b, " %s=%s", a.Key, a.Value.String())
		return true
	})

	fmt.Fprintf(w, "::%s::%s\n", command, annotationEscaper.Replace(b.String()))
}
