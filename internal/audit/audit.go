package audit

import (
	"context"

	"bankhook/internal/ports"

	json "github.com/goccy/go-json"
	"github.com/jmespath/go-jmespath"
	"github.com/klauspost/compress/zstd"
	log "github.com/sirupsen/logrus"
)

var enc, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
var dec, _ = zstd.NewReader(nil)

// Trail records admitted batches for audit: selected payload fields go
// to the structured log, and the raw body is compressed and archived
// when an archive store is configured. Everything here is best effort;
// an audit fault never rejects a batch.
type Trail struct {
	fields  []string
	archive ports.BatchArchive
}

func NewTrail(fields []string, archive ports.BatchArchive) *Trail {
	return &Trail{fields: fields, archive: archive}
}

// Record logs the configured JMESPath selections over the decoded
// payload and archives the original bytes.
func (t *Trail) Record(ctx context.Context, batchID, sourceAppID, timestamp string, body []byte) {
	if len(t.fields) > 0 {
		var payload map[string]any
		if err := json.Unmarshal(body, &payload); err == nil {
			f := log.Fields{"batch_id": batchID}
			for _, expr := range t.fields {
				v, err := jmespath.Search(expr, payload)
				if err != nil {
					log.WithError(err).WithField("expr", expr).Warn("audit field expression failed")
					continue
				}
				f[expr] = v
			}
			log.WithFields(f).Info("batch audit")
		}
	}
	if t.archive != nil {
		if err := t.archive.Save(ctx, batchID, sourceAppID, timestamp, Compress(body)); err != nil {
			log.WithError(err).WithField("batch_id", batchID).Warn("batch archive failed")
		}
	}
}

// Compress returns the zstd-compressed form of raw.
func Compress(raw []byte) []byte {
	return enc.EncodeAll(raw, nil)
}

// Decompress reverses Compress. Used by offline audit tooling and tests.
func Decompress(compressed []byte) ([]byte, error) {
	return dec.DecodeAll(compressed, nil)
}
