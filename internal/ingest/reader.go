// Package ingest reads batches of schema-normalized source records, the
// output format of the extraction boundary.
package ingest

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/resolve-cli/internal/model"
)

// maxLineBytes bounds a single JSONL record.
const maxLineBytes = 4 * 1024 * 1024

// ReadBatch decodes one JSONL record per line. Malformed lines are logged
// and skipped with a summary count; records missing their identifiers are
// precondition violations and fail the whole batch, since record_id is the
// basis for deterministic tie-breaking.
func ReadBatch(r io.Reader) ([]model.SourceRecord, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	var records []model.SourceRecord
	seen := make(map[int64]struct{})
	var malformed int
	line := 0

	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		var rec model.SourceRecord
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			malformed++
			zap.L().Warn("ingest: skipping malformed line",
				zap.Int("line", line),
				zap.Error(err),
			)
			continue
		}

		if rec.SourceID == "" {
			return nil, eris.Errorf("ingest: line %d: record has no source_id", line)
		}
		if rec.RecordID <= 0 {
			return nil, eris.Errorf("ingest: line %d: record from %q has no record_id", line, rec.SourceID)
		}
		if _, dup := seen[rec.RecordID]; dup {
			return nil, eris.Errorf("ingest: line %d: duplicate record_id %d", line, rec.RecordID)
		}
		seen[rec.RecordID] = struct{}{}

		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrap(err, "ingest: read batch")
	}

	if malformed > 0 {
		zap.L().Warn("ingest: batch summary",
			zap.Int("records", len(records)),
			zap.Int("malformed_skipped", malformed),
		)
	}

	return records, nil
}

// ReadBatchFile reads a JSONL batch from a file.
func ReadBatchFile(path string) ([]model.SourceRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open batch %s", path)
	}
	defer f.Close() //nolint:errcheck

	return ReadBatch(f)
}
