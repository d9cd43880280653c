package jupiter

import "encoding/json"

// Quote is a priced conversion estimate for a given input amount.
// Raw keeps the provider's full payload because the swap-instructions call
// requires the quote echoed back verbatim.
type Quote struct {
	InputMint  string
	OutputMint string
	Amount     uint64 // integer minor units
	OutAmount  string
	Raw        json.RawMessage
}

// InstructionAccount is one account reference inside an API instruction.
type InstructionAccount struct {
	Pubkey     string `json:"pubkey"`
	IsSigner   bool   `json:"isSigner"`
	IsWritable bool   `json:"isWritable"`
}

// APIInstruction is an unsigned instruction as returned by the provider.
// Data is base64 encoded.
type APIInstruction struct {
	ProgramID string               `json:"programId"`
	Accounts  []InstructionAccount `json:"accounts"`
	Data      string               `json:"data"`
}

// SwapInstructions is the unsigned instruction set for one swap, plus the
// lookup tables the compiled transaction will reference.
type SwapInstructions struct {
	ComputeBudgetInstructions   []APIInstruction `json:"computeBudgetInstructions"`
	SetupInstructions           []APIInstruction `json:"setupInstructions"`
	SwapInstruction             *APIInstruction  `json:"swapInstruction"`
	CleanupInstruction          *APIInstruction  `json:"cleanupInstruction"`
	AddressLookupTableAddresses []string         `json:"addressLookupTableAddresses"`
}
