package draft

import (
	"fmt"

	"onboarding_flow/pkg"

	"github.com/bytedance/sonic"
)

// codec uses the std-compatible sonic config so persisted keys are sorted
var codec = sonic.ConfigStd

// Encode serializes a record for the persistence surface
func Encode(record pkg.Record) (string, error) {
	if record == nil {
		record = pkg.NewRecord()
	}
	data, err := codec.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("failed to marshal draft: %w", err)
	}
	return string(data), nil
}

// Decode parses a persisted record. A JSON null decodes to an empty record.
func Decode(raw string) (pkg.Record, error) {
	var record pkg.Record
	if err := codec.UnmarshalFromString(raw, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal draft: %w", err)
	}
	if record == nil {
		record = pkg.NewRecord()
	}
	return record, nil
}
