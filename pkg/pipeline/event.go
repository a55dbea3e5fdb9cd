package pipeline

import (
	"encoding/json"
	"io"

	"github.com/gel-ops/exifstrip/pkg/errors"
)

// s3EventEnvelope mirrors the S3 notification shape delivered by the
// trigger source. Only the fields the pipeline consumes are decoded.
type s3EventEnvelope struct {
	Records []s3EventRecord `json:"Records"`
}

type s3EventRecord struct {
	S3 struct {
		Bucket struct {
			Name string `json:"name"`
		} `json:"bucket"`
		Object struct {
			Key  string `json:"key"`
			Size *int64 `json:"size"`
		} `json:"object"`
	} `json:"s3"`
}

// DecodeEvents decodes an S3 notification batch into the ordered sequence
// of file events. Decoding is permissive: records with missing fields are
// passed through and rejected fail-closed by the processor, not dropped
// silently here.
func DecodeEvents(r io.Reader) ([]FileEvent, error) {
	var envelope s3EventEnvelope
	if err := json.NewDecoder(r).Decode(&envelope); err != nil {
		return nil, errors.Wrap(err, "failed to decode event batch")
	}

	events := make([]FileEvent, 0, len(envelope.Records))
	for _, rec := range envelope.Records {
		events = append(events, FileEvent{
			SourceBucket: rec.S3.Bucket.Name,
			Key:          rec.S3.Object.Key,
			DeclaredSize: rec.S3.Object.Size,
		})
	}
	return events, nil
}
