package ethereum

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/gabapcia/chainhead/internal/blocks"
	"github.com/gabapcia/chainhead/internal/pkg/types"
)

type (
	// headerResponse represents a block header as returned by the Ethereum
	// JSON-RPC API, both from point queries and newHeads notifications.
	headerResponse struct {
		Hash       string    `json:"hash"`
		ParentHash string    `json:"parentHash"`
		StateRoot  string    `json:"stateRoot"`
		Number     types.Hex `json:"number"`
		Timestamp  types.Hex `json:"timestamp"`
		GasLimit   types.Hex `json:"gasLimit"`
		GasUsed    types.Hex `json:"gasUsed"`
		ExtraData  string    `json:"extraData"`
	}

	// blockResponse represents a block fetched with transaction hashes only.
	blockResponse struct {
		headerResponse
		Transactions []string `json:"transactions"`
	}

	// logResponse represents a contract event log entry.
	logResponse struct {
		Address         string    `json:"address"`
		Topics          []string  `json:"topics"`
		Data            string    `json:"data"`
		BlockNumber     types.Hex `json:"blockNumber"`
		BlockHash       string    `json:"blockHash"`
		TransactionHash string    `json:"transactionHash"`
		LogIndex        types.Hex `json:"logIndex"`
		Removed         bool      `json:"removed"`
	}
)

// hexBytes decodes a 0x-prefixed byte string, tolerating empty payloads.
func hexBytes(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if s == "" {
		return nil, nil
	}
	return hex.DecodeString(s)
}

// toRawHeader converts the wire header into the domain representation. The
// content hash stays optional: pending heads are pushed without one.
func (h headerResponse) toRawHeader() (blocks.RawHeader, error) {
	parentHash, err := blocks.HashFromHex(h.ParentHash)
	if err != nil {
		return blocks.RawHeader{}, fmt.Errorf("parsing parent hash: %w", err)
	}

	stateRoot, err := blocks.HashFromHex(h.StateRoot)
	if err != nil {
		return blocks.RawHeader{}, fmt.Errorf("parsing state root: %w", err)
	}

	extraData, err := hexBytes(h.ExtraData)
	if err != nil {
		return blocks.RawHeader{}, fmt.Errorf("parsing extra data: %w", err)
	}

	raw := blocks.RawHeader{
		Header: blocks.Header{
			Number:     h.Number.Uint64(),
			ParentHash: parentHash,
			StateRoot:  stateRoot,
			Timestamp:  h.Timestamp.Uint64(),
			GasLimit:   h.GasLimit.Uint64(),
			GasUsed:    h.GasUsed.Uint64(),
			ExtraData:  extraData,
		},
	}

	if h.Hash != "" {
		hash, err := blocks.HashFromHex(h.Hash)
		if err != nil {
			return blocks.RawHeader{}, fmt.Errorf("parsing block hash: %w", err)
		}
		raw.Hash = &hash
	}
	return raw, nil
}

// toMultiBlock seals the header and builds a partial block. The second return
// value reports whether the hash had to be computed locally, which for a
// fetched block is a protocol anomaly.
func (b blockResponse) toMultiBlock(hasher blocks.Hasher) (blocks.MultiBlock, bool, error) {
	raw, err := b.toRawHeader()
	if err != nil {
		return blocks.MultiBlock{}, false, err
	}
	sealed, computedLocally := raw.Seal(hasher)

	txHashes := make([]blocks.Hash, len(b.Transactions))
	for i, tx := range b.Transactions {
		txHashes[i], err = blocks.HashFromHex(tx)
		if err != nil {
			return blocks.MultiBlock{}, false, fmt.Errorf("parsing transaction hash: %w", err)
		}
	}

	return blocks.PartialBlock(sealed, txHashes), computedLocally, nil
}

// toLog converts the wire log entry into the domain representation.
func (l logResponse) toLog() (blocks.Log, error) {
	blockHash, err := blocks.HashFromHex(l.BlockHash)
	if err != nil {
		return blocks.Log{}, fmt.Errorf("parsing block hash: %w", err)
	}

	txHash, err := blocks.HashFromHex(l.TransactionHash)
	if err != nil {
		return blocks.Log{}, fmt.Errorf("parsing transaction hash: %w", err)
	}

	topics := make([]blocks.Hash, len(l.Topics))
	for i, topic := range l.Topics {
		topics[i], err = blocks.HashFromHex(topic)
		if err != nil {
			return blocks.Log{}, fmt.Errorf("parsing topic: %w", err)
		}
	}

	data, err := hexBytes(l.Data)
	if err != nil {
		return blocks.Log{}, fmt.Errorf("parsing log data: %w", err)
	}

	return blocks.Log{
		Address:     l.Address,
		Topics:      topics,
		Data:        data,
		BlockNumber: l.BlockNumber.Uint64(),
		BlockHash:   blockHash,
		TxHash:      txHash,
		Index:       l.LogIndex.Uint64(),
		Removed:     l.Removed,
	}, nil
}

// logFilterParams builds the eth_getLogs / logs-subscription filter object.
func logFilterParams(f blocks.LogFilter) map[string]any {
	params := make(map[string]any)
	if len(f.Addresses) > 0 {
		params["address"] = f.Addresses
	}
	if len(f.Topics) > 0 {
		topics := make([]string, len(f.Topics))
		for i, topic := range f.Topics {
			topics[i] = topic.Hex()
		}
		params["topics"] = topics
	}
	if f.BlockHash != nil {
		params["blockHash"] = f.BlockHash.Hex()
	}
	return params
}
