package formatter

import (
	"bytes"

	"github.com/pelletier/go-toml/v2"
)

// FormatAsTOML renders doc as nested arrays of tables.
func FormatAsTOML(doc Document) (string, error) {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(true)
	if err := enc.Encode(doc); err != nil {
		return "", err
	}
	return buf.String(), nil
}
