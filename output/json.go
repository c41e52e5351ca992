package output

import (
	"encoding/json"
	"fmt"
)

// WriteJSON marshals payload and persists it through the writer's
// backup-and-fallback path, so report artifacts get the same crash
// safety as the enriched table.
func WriteJSON(w *Writer, payload any, dest string) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", dest, err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data, dest); err != nil {
		return err
	}
	return nil
}
