package txbuilder

import "encoding/binary"

// SystemProgramID is the native system program.
const SystemProgramID = "11111111111111111111111111111111"

// system program instruction index for Transfer.
const systemTransferIndex = 2

// AccountMeta describes one account an instruction touches.
type AccountMeta struct {
	PubKey     string
	IsSigner   bool
	IsWritable bool
}

// Instruction is a single program invocation ready for message compilation.
type Instruction struct {
	ProgramID string
	Accounts  []AccountMeta
	Data      []byte
}

// NewTransferInstruction builds a system-program lamport transfer.
// Used for the relay tip: a small payment to the relay-designated address
// required for priority handling.
func NewTransferInstruction(from, to string, lamports uint64) Instruction {
	data := make([]byte, 12)
	binary.LittleEndian.PutUint32(data[0:4], systemTransferIndex)
	binary.LittleEndian.PutUint64(data[4:12], lamports)

	return Instruction{
		ProgramID: SystemProgramID,
		Accounts: []AccountMeta{
			{PubKey: from, IsSigner: true, IsWritable: true},
			{PubKey: to, IsSigner: false, IsWritable: true},
		},
		Data: data,
	}
}
