package txbuilder

import (
	"encoding/base64"
	"fmt"

	"github.com/mr-tron/base58"

	"tweet-sniper/internal/solana"
)

// v0 message version prefix: high bit set, low bits carry the version.
const messageVersionPrefix = 0x80

// keyUse accumulates how a key is referenced across all instructions.
type keyUse struct {
	order    int // first-appearance order, for deterministic layout
	signer   bool
	writable bool
	program  bool // invoked program ids must stay in the static key list
}

// tableRef is a per-table set of loaded addresses.
type tableRef struct {
	account  []byte // 32-byte table key
	writable []byte // indexes into the table
	readonly []byte
}

// BuildTransaction compiles instructions into a signed, serialized v0
// transaction. The signer is the fee payer and the only signature. Keys
// found in a lookup table are loaded through it; everything else stays
// static. Returns the base64 transaction and the base58 signature.
func BuildTransaction(signer *solana.Keypair, instrs []Instruction, recentBlockhash string, tables []*solana.LookupTable) (string, string, error) {
	if signer == nil {
		return "", "", fmt.Errorf("missing signer")
	}
	if len(instrs) == 0 {
		return "", "", fmt.Errorf("no instructions")
	}

	blockhash, err := base58.Decode(recentBlockhash)
	if err != nil || len(blockhash) != 32 {
		return "", "", fmt.Errorf("invalid blockhash %q", recentBlockhash)
	}

	payer := signer.PublicKey()

	// Merge account requirements across instructions. Signer or writable in
	// any instruction wins.
	uses := map[string]*keyUse{}
	use := func(key string) *keyUse {
		u, ok := uses[key]
		if !ok {
			u = &keyUse{order: len(uses)}
			uses[key] = u
		}
		return u
	}

	u := use(payer)
	u.signer = true
	u.writable = true

	for _, ins := range instrs {
		for _, meta := range ins.Accounts {
			u := use(meta.PubKey)
			u.signer = u.signer || meta.IsSigner
			u.writable = u.writable || meta.IsWritable
		}
		use(ins.ProgramID).program = true
	}

	keys := make([]string, 0, len(uses))
	for k := range uses {
		keys = append(keys, k)
	}
	sortKeys(keys, uses)

	// Partition keys into static and table-loaded. Signers and program ids
	// cannot be loaded from a table.
	tableRefs := make([]*tableRef, len(tables))
	tableIndex := map[string][2]int{} // key -> (table, position)
	for ti, t := range tables {
		for pos, addr := range t.Addresses {
			if _, seen := tableIndex[addr]; !seen {
				tableIndex[addr] = [2]int{ti, pos}
			}
		}
	}

	var staticKeys []string
	type loaded struct {
		key      string
		table    int
		pos      int
		writable bool
	}
	var loadedKeys []loaded

	for _, k := range keys {
		u := uses[k]
		if ref, ok := tableIndex[k]; ok && !u.signer && !u.program && k != payer {
			loadedKeys = append(loadedKeys, loaded{key: k, table: ref[0], pos: ref[1], writable: u.writable})
			continue
		}
		staticKeys = append(staticKeys, k)
	}

	// Static layout: writable signers, readonly signers, writable
	// non-signers, readonly non-signers.
	var (
		writableSigners, readonlySigners     []string
		writableNonSigners, readonlyNonSigners []string
	)
	for _, k := range staticKeys {
		u := uses[k]
		switch {
		case u.signer && u.writable:
			writableSigners = append(writableSigners, k)
		case u.signer:
			readonlySigners = append(readonlySigners, k)
		case u.writable:
			writableNonSigners = append(writableNonSigners, k)
		default:
			readonlyNonSigners = append(readonlyNonSigners, k)
		}
	}

	ordered := make([]string, 0, len(staticKeys))
	ordered = append(ordered, writableSigners...)
	ordered = append(ordered, readonlySigners...)
	ordered = append(ordered, writableNonSigners...)
	ordered = append(ordered, readonlyNonSigners...)

	if ordered[0] != payer {
		return "", "", fmt.Errorf("fee payer must be first static key")
	}

	// Combined index space: static keys, then writable loaded addresses in
	// table order, then readonly loaded addresses in table order.
	indexOf := map[string]int{}
	for i, k := range ordered {
		indexOf[k] = i
	}
	next := len(ordered)
	for ti := range tables {
		ref := &tableRef{}
		raw, err := base58.Decode(tables[ti].Address)
		if err != nil || len(raw) != 32 {
			return "", "", fmt.Errorf("invalid lookup table address %q", tables[ti].Address)
		}
		ref.account = raw
		tableRefs[ti] = ref
	}
	for _, l := range loadedKeys {
		if l.writable {
			if l.pos > 255 {
				return "", "", fmt.Errorf("lookup table index out of range: %d", l.pos)
			}
			indexOf[l.key] = next
			next++
			tableRefs[l.table].writable = append(tableRefs[l.table].writable, byte(l.pos))
		}
	}
	for _, l := range loadedKeys {
		if !l.writable {
			if l.pos > 255 {
				return "", "", fmt.Errorf("lookup table index out of range: %d", l.pos)
			}
			indexOf[l.key] = next
			next++
			tableRefs[l.table].readonly = append(tableRefs[l.table].readonly, byte(l.pos))
		}
	}

	if next > 255 {
		return "", "", fmt.Errorf("too many accounts: %d", next)
	}

	// Serialize the message.
	msg := []byte{messageVersionPrefix}
	msg = append(msg,
		byte(len(writableSigners)+len(readonlySigners)), // numRequiredSignatures
		byte(len(readonlySigners)),                      // numReadonlySignedAccounts
		byte(len(readonlyNonSigners)),                   // numReadonlyUnsignedAccounts
	)

	msg = encodeLength(msg, len(ordered))
	for _, k := range ordered {
		raw, err := base58.Decode(k)
		if err != nil || len(raw) != 32 {
			return "", "", fmt.Errorf("invalid account key %q", k)
		}
		msg = append(msg, raw...)
	}

	msg = append(msg, blockhash...)

	msg = encodeLength(msg, len(instrs))
	for _, ins := range instrs {
		progIdx, ok := indexOf[ins.ProgramID]
		if !ok {
			return "", "", fmt.Errorf("program %s not in key set", ins.ProgramID)
		}
		msg = append(msg, byte(progIdx))

		msg = encodeLength(msg, len(ins.Accounts))
		for _, meta := range ins.Accounts {
			idx, ok := indexOf[meta.PubKey]
			if !ok {
				return "", "", fmt.Errorf("account %s not in key set", meta.PubKey)
			}
			msg = append(msg, byte(idx))
		}

		msg = encodeLength(msg, len(ins.Data))
		msg = append(msg, ins.Data...)
	}

	// Only tables that actually load something are referenced.
	var usedTables []*tableRef
	for _, ref := range tableRefs {
		if len(ref.writable) > 0 || len(ref.readonly) > 0 {
			usedTables = append(usedTables, ref)
		}
	}
	msg = encodeLength(msg, len(usedTables))
	for _, ref := range usedTables {
		msg = append(msg, ref.account...)
		msg = encodeLength(msg, len(ref.writable))
		msg = append(msg, ref.writable...)
		msg = encodeLength(msg, len(ref.readonly))
		msg = append(msg, ref.readonly...)
	}

	// Sign and wrap: signature count, signatures, message.
	sig := signer.Sign(msg)
	tx := encodeLength(nil, 1)
	tx = append(tx, sig...)
	tx = append(tx, msg...)

	return base64.StdEncoding.EncodeToString(tx), base58.Encode(sig), nil
}

// sortKeys orders keys by first appearance.
func sortKeys(keys []string, uses map[string]*keyUse) {
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && uses[keys[j]].order < uses[keys[j-1]].order; j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
}
