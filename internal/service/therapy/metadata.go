package therapy

import (
	"encoding/json"

	"github.com/mnemosyne-labs/mnemosyne/internal/model/mode"
)

func decodeModeMetadata(metadata string) (mode.ID, bool) {
	if metadata == "" {
		return "", false
	}
	var decoded struct {
		Mode string `json:"mode"`
	}
	if err := json.Unmarshal([]byte(metadata), &decoded); err != nil || decoded.Mode == "" {
		return "", false
	}
	return mode.ID(decoded.Mode), true
}
