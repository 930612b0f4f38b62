package relayer

import (
	"fmt"

	"github.com/PolyEmperion/PolyEmperion-sdk/pkg/clients/relayClient"
	"github.com/PolyEmperion/PolyEmperion-sdk/pkg/types"
)

// normalizeSubmitResponse maps a raw relay reply onto the canonical
// TransactionRecord. All three submission paths go through here. Absent
// fields map to empty values, except the identifier, which is mandatory.
func normalizeSubmitResponse(resp *relayClient.SubmitResponse) (*types.TransactionRecord, error) {
	if resp == nil {
		return nil, fmt.Errorf("%w: empty response", types.ErrMalformedRelayResponse)
	}
	if resp.TransactionID == "" {
		return nil, fmt.Errorf("%w: missing transaction identifier", types.ErrMalformedRelayResponse)
	}

	return &types.TransactionRecord{
		ID:                   resp.TransactionID,
		State:                types.TransactionState(resp.State),
		RelayHash:            resp.Hash,
		ChainTransactionHash: resp.TransactionHash,
	}, nil
}
