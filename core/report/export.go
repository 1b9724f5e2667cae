package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/renameio"
	"gopkg.in/yaml.v3"
)

// ErrUnknownFormat is returned by Export for unsupported file extensions.
var ErrUnknownFormat = errors.New("unknown report format")

// Marshal encodes v as "json" or "yaml".
func Marshal(v any, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "json":
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case "yaml", "yml":
		return yaml.Marshal(v)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Export writes v to path atomically. The format follows the extension.
func Export(path string, v any) error {
	format := strings.TrimPrefix(filepath.Ext(path), ".")
	data, err := Marshal(v, format)
	if err != nil {
		return err
	}
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
