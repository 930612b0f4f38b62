package relayClient

import (
	"encoding/json"

	"github.com/PolyEmperion/PolyEmperion-sdk/pkg/types"
)

// SubmitResponse is the raw relay reply to a submission. The relay's
// endpoints do not agree on field names, so decoding accepts the known
// aliases; pkg/relayer maps this onto the canonical TransactionRecord.
type SubmitResponse struct {
	TransactionID   string
	State           string
	Hash            string
	TransactionHash string
}

func (r *SubmitResponse) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.TransactionID = firstString(raw, "transactionID", "transactionId", "id")
	r.State = firstString(raw, "state", "status")
	r.Hash = firstString(raw, "hash", "relayHash", "relayTransactionHash")
	r.TransactionHash = firstString(raw, "transactionHash", "txHash", "chainTransactionHash")
	return nil
}

// recordJSON decodes one historical transaction entry with the same alias
// tolerance as SubmitResponse.
type recordJSON struct {
	ID              string
	State           string
	Hash            string
	TransactionHash string
}

func (r *recordJSON) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.ID = firstString(raw, "id", "transactionID", "transactionId")
	r.State = firstString(raw, "state", "status")
	r.Hash = firstString(raw, "hash", "relayHash", "relayTransactionHash")
	r.TransactionHash = firstString(raw, "transactionHash", "txHash", "chainTransactionHash")
	return nil
}

func toRecords(entries []recordJSON) []types.TransactionRecord {
	records := make([]types.TransactionRecord, 0, len(entries))
	for _, e := range entries {
		records = append(records, types.TransactionRecord{
			ID:                   e.ID,
			State:                types.TransactionState(e.State),
			RelayHash:            e.Hash,
			ChainTransactionHash: e.TransactionHash,
		})
	}
	return records
}

// firstString returns the first present, non-empty string among the keys.
func firstString(raw map[string]json.RawMessage, keys ...string) string {
	for _, key := range keys {
		msg, ok := raw[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(msg, &s); err != nil {
			continue
		}
		if s != "" {
			return s
		}
	}
	return ""
}
