package solana

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/mr-tron/base58"
)

// lookupTableMetaSize is the fixed serialized size of the address lookup
// table header. Stored addresses follow the header as packed 32-byte keys.
const lookupTableMetaSize = 56

// LookupTable is the on-chain state of one address lookup table.
type LookupTable struct {
	Address   string   // table account, base58
	Addresses []string // stored account keys, base58, in table order
}

// ParseLookupTable parses base64 lookup-table account data into the list of
// stored addresses.
func ParseLookupTable(address, data string) (*LookupTable, error) {
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("decode lookup table data: %w", err)
	}
	if len(decoded) < lookupTableMetaSize {
		return nil, fmt.Errorf("lookup table data too short: %d", len(decoded))
	}

	body := decoded[lookupTableMetaSize:]
	if len(body)%32 != 0 {
		return nil, fmt.Errorf("lookup table body not 32-byte aligned: %d", len(body))
	}

	table := &LookupTable{Address: address}
	for i := 0; i+32 <= len(body); i += 32 {
		table.Addresses = append(table.Addresses, base58.Encode(body[i:i+32]))
	}
	return table, nil
}

// ResolveLookupTables fetches current state for each referenced table.
// Tables that do not exist on chain are skipped: compaction is an
// optimization, and their absence must not fail the caller.
func ResolveLookupTables(ctx context.Context, rpc *HTTPClient, addresses []string) ([]*LookupTable, error) {
	var tables []*LookupTable
	for _, addr := range addresses {
		info, err := rpc.GetAccountInfo(ctx, addr)
		if err != nil {
			return nil, fmt.Errorf("fetch lookup table %s: %w", addr, err)
		}
		if info == nil || info.Data == "" {
			continue
		}
		table, err := ParseLookupTable(addr, info.Data)
		if err != nil {
			return nil, fmt.Errorf("parse lookup table %s: %w", addr, err)
		}
		tables = append(tables, table)
	}
	return tables, nil
}
