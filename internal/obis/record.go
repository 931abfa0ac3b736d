// Package obis flattens decoded SML get-list responses into metering records.
package obis

import (
	"errors"
	"fmt"

	"github.com/d21d3q/gosml/internal/codec"
	"github.com/d21d3q/gosml/internal/frame"
)

// MessageGetListResponse is the SML message body tag carrying metered values.
const MessageGetListResponse = 0x0701

// ErrShape marks a message or entry whose tree does not have the expected layout.
var ErrShape = errors.New("sml: unexpected message shape")

// Record is one metering value from a get-list response. The numeric reading
// is Value * 10^Scaler, interpreted according to ValueType.
type Record struct {
	ServerID  []byte
	Code      Code
	Status    []byte
	Unit      uint64
	Scaler    int64
	Value     []byte
	ValueType frame.Type
}

// Extract walks every message of dg and returns one Record per value-list
// entry of each get-list response. Other message types are skipped. Messages
// or entries with an unexpected shape are skipped too; the returned error
// joins those failures while the records built from the rest are still
// returned.
func Extract(dg frame.Datagram) ([]Record, error) {
	records := make([]Record, 0, 8)
	var errs []error
	for i, msg := range dg.Messages {
		recs, err := extractMessage(msg)
		records = append(records, recs...)
		if err != nil {
			errs = append(errs, fmt.Errorf("message %d: %w", i, err))
		}
	}
	return records, errors.Join(errs...)
}

func extractMessage(msg frame.Node) ([]Record, error) {
	body, err := listAt(msg, 3, 2)
	if err != nil {
		return nil, fmt.Errorf("message body: %w", err)
	}
	tag, err := valueAt(body, 0)
	if err != nil {
		return nil, fmt.Errorf("message type: %w", err)
	}
	if codec.BytesToUint(tag.Payload) != MessageGetListResponse {
		return nil, nil
	}
	response, err := listAt(body, 1, 5)
	if err != nil {
		return nil, fmt.Errorf("get-list response: %w", err)
	}
	serverID, err := valueAt(response, 1)
	if err != nil {
		return nil, fmt.Errorf("server id: %w", err)
	}
	valList, err := listAt(response, 4, 0)
	if err != nil {
		return nil, fmt.Errorf("value list: %w", err)
	}

	records := make([]Record, 0, len(valList.Children))
	var errs []error
	for i, entry := range valList.Children {
		rec, err := newRecord(serverID.Payload, entry)
		if err != nil {
			errs = append(errs, fmt.Errorf("entry %d: %w", i, err))
			continue
		}
		records = append(records, rec)
	}
	return records, errors.Join(errs...)
}

func newRecord(serverID []byte, entry frame.Node) (Record, error) {
	if !entry.IsList() || len(entry.Children) < 6 {
		return Record{}, fmt.Errorf("%w: value list entry needs 6 elements, got %d", ErrShape, len(entry.Children))
	}
	var fields [6]frame.Node
	for _, i := range []int{0, 1, 3, 4, 5} {
		n, err := valueAt(entry, i)
		if err != nil {
			return Record{}, err
		}
		fields[i] = n
	}
	return Record{
		ServerID:  serverID,
		Code:      Code(fields[0].Payload),
		Status:    fields[1].Payload,
		Unit:      codec.BytesToUint(fields[3].Payload),
		Scaler:    codec.BytesToInt(fields[4].Payload),
		Value:     fields[5].Payload,
		ValueType: fields[5].Type,
	}, nil
}

func listAt(n frame.Node, i, minLen int) (frame.Node, error) {
	child, ok := n.Child(i)
	if !ok {
		return frame.Node{}, fmt.Errorf("%w: no element %d", ErrShape, i)
	}
	if !child.IsList() || len(child.Children) < minLen {
		return frame.Node{}, fmt.Errorf("%w: element %d is not a list of at least %d", ErrShape, i, minLen)
	}
	return child, nil
}

func valueAt(n frame.Node, i int) (frame.Node, error) {
	child, ok := n.Child(i)
	if !ok {
		return frame.Node{}, fmt.Errorf("%w: no element %d", ErrShape, i)
	}
	if !child.IsValue() {
		return frame.Node{}, fmt.Errorf("%w: element %d is not a value", ErrShape, i)
	}
	return child, nil
}
