package layout

import (
	"encoding/json"
	"os"
)

// WriteDebugJSON dumps the computed plan as JSON for debugging placement
// issues without rasterizing anything.
func WriteDebugJSON(plan *Plan, path string) error {
	if plan == nil {
		return nil
	}
	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
