// Package chain talks to the Ethereum RPC provider and turns raw receipt logs
// into decoded attestation registry events.
package chain

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/edhedges/receive-kit/internal/domain"
)

// TraitAttestedEvent aliases the domain constant for use at decode call sites.
const TraitAttestedEvent = domain.TraitAttestedEvent

// registryABI covers the events the attestation registry emits. Everything
// else found in a receipt is silently ignored.
const registryABI = `[
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "name": "subject", "type": "address"},
			{"indexed": true, "name": "attester", "type": "address"},
			{"indexed": false, "name": "dataHash", "type": "bytes32"},
			{"indexed": false, "name": "timestamp", "type": "uint256"}
		],
		"name": "TraitAttested",
		"type": "event"
	}
]`

// EventDecoder decodes receipt logs against the registry ABI. It is built
// once at startup and shared read-only across requests.
type EventDecoder struct {
	abi abi.ABI
}

func NewEventDecoder() (*EventDecoder, error) {
	parsed, err := abi.JSON(strings.NewReader(registryABI))
	if err != nil {
		return nil, fmt.Errorf("parse registry ABI: %w", err)
	}
	return &EventDecoder{abi: parsed}, nil
}

// Decode returns one DecodedLog per receipt log that matches a registry
// event, in receipt order. Logs that match no declared event are omitted,
// never reported as errors.
func (d *EventDecoder) Decode(logs []*types.Log) []domain.DecodedLog {
	decoded := make([]domain.DecodedLog, 0, len(logs))
	for _, lg := range logs {
		if lg == nil || len(lg.Topics) == 0 {
			continue
		}
		event, err := d.abi.EventByID(lg.Topics[0])
		if err != nil {
			continue
		}
		out, err := d.decodeOne(event, lg)
		if err != nil {
			continue
		}
		decoded = append(decoded, out)
	}
	return decoded
}

func (d *EventDecoder) decodeOne(event *abi.Event, lg *types.Log) (domain.DecodedLog, error) {
	var indexed abi.Arguments
	for _, arg := range event.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	if len(lg.Topics) != len(indexed)+1 {
		return domain.DecodedLog{}, fmt.Errorf("event %s: %d topics, want %d", event.Name, len(lg.Topics), len(indexed)+1)
	}

	values := make(map[string]any)
	if err := abi.ParseTopicsIntoMap(values, indexed, lg.Topics[1:]); err != nil {
		return domain.DecodedLog{}, fmt.Errorf("event %s topics: %w", event.Name, err)
	}
	if err := event.Inputs.UnpackIntoMap(values, lg.Data); err != nil {
		return domain.DecodedLog{}, fmt.Errorf("event %s data: %w", event.Name, err)
	}

	out := domain.DecodedLog{
		Name:    event.Name,
		Address: strings.ToLower(lg.Address.Hex()),
		Events:  make([]domain.DecodedLogEvent, 0, len(event.Inputs)),
	}
	for _, arg := range event.Inputs {
		out.Events = append(out.Events, domain.DecodedLogEvent{
			Name:  arg.Name,
			Type:  arg.Type.String(),
			Value: formatValue(values[arg.Name]),
		})
	}
	return out, nil
}

func formatValue(v any) string {
	switch x := v.(type) {
	case common.Address:
		return strings.ToLower(x.Hex())
	case common.Hash:
		return x.Hex()
	case [32]byte:
		return hexutil.Encode(x[:])
	case []byte:
		return hexutil.Encode(x)
	case *big.Int:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}
