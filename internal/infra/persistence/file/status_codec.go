package file

import (
	"encoding/json"

	"growcore/pkg/domain"
)

// decodeStatus never fails: a missing or corrupt status file means the EC
// helper has no recorded usage.
func decodeStatus(data []byte) domain.EcHelperStatus {
	var status domain.EcHelperStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return domain.EcHelperStatus{}
	}
	return status
}

func encodeStatus(status domain.EcHelperStatus) ([]byte, error) {
	return json.MarshalIndent(status, "", "  ")
}
