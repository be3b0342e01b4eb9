package match

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/sells-group/resolve-cli/internal/merge"
	"github.com/sells-group/resolve-cli/internal/model"
)

// Fingerprint hashes a record's normalized, non-missing field set plus its
// entity type. Records with no identity signal at all still group with
// their exact duplicates through this hash. encoding/json sorts map keys,
// so the encoding is canonical.
func Fingerprint(rec model.SourceRecord) string {
	fields := make(map[string]any, len(rec.Fields))
	for k, v := range rec.Fields {
		if merge.IsMissing(v) {
			continue
		}
		if s, ok := v.(string); ok {
			fields[k] = strings.ToLower(strings.TrimSpace(s))
		} else {
			fields[k] = v
		}
	}

	payload := map[string]any{
		"entity_type": rec.EntityType,
		"fields":      fields,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		// map[string]any over JSON-decoded input cannot fail to encode;
		// fall back to an empty hash input rather than panic.
		data = nil
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
