package checkpoints

import (
	json "github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// Encode serializes a checkpoint for storage. Variables and step outputs
// must be JSON-encodable; restored numbers come back as float64, as usual
// for JSON round trips.
func Encode(cp *Checkpoint) ([]byte, error) {
	data, err := json.Marshal(cp)
	if err != nil {
		return nil, errors.Wrap(err, "encoding checkpoint")
	}
	return data, nil
}

// Decode deserializes a stored checkpoint.
func Decode(data []byte) (*Checkpoint, error) {
	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, errors.Wrap(err, "decoding checkpoint")
	}
	return &cp, nil
}
