package updater

import (
	"encoding/json"

	"github.com/google/uuid"
)

// newMessageID is a var so tests can substitute a deterministic
// generator.
var newMessageID = uuid.New

func marshalJSON(v any) ([]byte, error) {
	return json.Marshal(v)
}
