package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"s3transfer/internal/models"
)

// FormatBytes renders a byte count with binary units, e.g. "1.5 KiB".
func FormatBytes(bytes int64) string {
	if bytes < 0 {
		return "unknown"
	}
	return humanize.IBytes(uint64(bytes))
}

// ParseBytes accepts sizes such as "16MiB", "64 MB" or "1048576".
func ParseBytes(s string) (int64, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return int64(n), nil
}

// WriteJSON writes data to w as indented JSON followed by a newline.
func WriteJSON(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return nil
}

func PrintJSON(data any) error {
	return WriteJSON(os.Stdout, data)
}

// WriteError reports err for command as a models.ErrorResponse.
func WriteError(w io.Writer, err error, command string) {
	errorResp := models.ErrorResponse{
		Error:     err.Error(),
		Timestamp: FormatTime(time.Now()),
		Command:   command,
	}
	if err := WriteJSON(w, errorResp); err != nil {
		slog.Error("Failed to print error in JSON format", "error", err)
		fmt.Fprintln(w, "Error: ", errorResp.Error)
	}
}

func PrintError(err error, command string) {
	WriteError(os.Stdout, err, command)
}

func FormatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}
