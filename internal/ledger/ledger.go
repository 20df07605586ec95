// internal/ledger/ledger.go
package ledger

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Op is the kind of balance movement an instruction performs.
type Op uint8

const (
	OpTransferBase Op = iota
	OpTransferToken
	OpMintToken
	OpBurnToken
	OpWrapBase
)

func (o Op) String() string {
	switch o {
	case OpTransferBase:
		return "transfer_base"
	case OpTransferToken:
		return "transfer_token"
	case OpMintToken:
		return "mint_token"
	case OpBurnToken:
		return "burn_token"
	case OpWrapBase:
		return "wrap_base"
	default:
		return fmt.Sprintf("op(%d)", uint8(o))
	}
}

// Account is either a wallet owned by a signer or a program vault reached
// through a capability.
type Account struct {
	Owner solana.PublicKey
	Vault *Capability
}

// Wallet addresses a user-owned account.
func Wallet(owner solana.PublicKey) Account {
	return Account{Owner: owner}
}

// VaultOf addresses the pool vault a capability signs for.
func VaultOf(c Capability) Account {
	return Account{Vault: &c}
}

func (a Account) String() string {
	if a.Vault != nil {
		return a.Vault.String()
	}
	return a.Owner.String()
}

// Instruction moves Amount of an asset. Mint is ignored for base-currency ops.
type Instruction struct {
	Op     Op
	Mint   solana.PublicKey
	From   Account
	To     Account
	Amount uint64
}

// TransferBase moves lamports.
func TransferBase(from, to Account, amount uint64) Instruction {
	return Instruction{Op: OpTransferBase, From: from, To: to, Amount: amount}
}

// TransferToken moves tokens of mint.
func TransferToken(mint solana.PublicKey, from, to Account, amount uint64) Instruction {
	return Instruction{Op: OpTransferToken, Mint: mint, From: from, To: to, Amount: amount}
}

// MintTo creates new supply of mint in to.
func MintTo(mint solana.PublicKey, to Account, amount uint64) Instruction {
	return Instruction{Op: OpMintToken, Mint: mint, To: to, Amount: amount}
}

// Burn destroys supply of mint held by from.
func Burn(mint solana.PublicKey, from Account, amount uint64) Instruction {
	return Instruction{Op: OpBurnToken, Mint: mint, From: from, Amount: amount}
}

// WrapBase converts lamports held by owner into the wrapped-native token.
func WrapBase(owner Account, amount uint64) Instruction {
	return Instruction{Op: OpWrapBase, Mint: solana.WrappedSol, From: owner, To: owner, Amount: amount}
}

// Batch is executed atomically: either every instruction applies or none does.
type Batch struct {
	// Key makes the batch idempotent when set; a replayed key is a no-op.
	Key string
	// Signers authorize debits from wallet accounts.
	Signers      []solana.PublicKey
	Instructions []Instruction
	// Reverts names the batch this one compensates; once applied that key may run again.
	Reverts string
}

// Add appends instructions, skipping zero amounts.
func (b *Batch) Add(ins ...Instruction) *Batch {
	for _, in := range ins {
		if in.Amount == 0 {
			continue
		}
		b.Instructions = append(b.Instructions, in)
	}
	return b
}

// RevertSuffix marks the key of a compensating batch.
const RevertSuffix = ":revert"

// Reverse builds the compensating batch that undoes b: instructions run in
// opposite order with source and destination swapped, mints become burns.
// Wallets credited by b sign the reversal.
func (b Batch) Reverse() (Batch, error) {
	rev := Batch{Reverts: b.Key}
	if b.Key != "" {
		rev.Key = b.Key + RevertSuffix
	}

	seen := make(map[solana.PublicKey]struct{})
	sign := func(acc Account) {
		if acc.Vault != nil {
			return
		}
		if _, ok := seen[acc.Owner]; !ok {
			seen[acc.Owner] = struct{}{}
			rev.Signers = append(rev.Signers, acc.Owner)
		}
	}

	for i := len(b.Instructions) - 1; i >= 0; i-- {
		in := b.Instructions[i]
		switch in.Op {
		case OpTransferBase, OpTransferToken:
			sign(in.To)
			in.From, in.To = in.To, in.From
		case OpMintToken:
			sign(in.To)
			in = Burn(in.Mint, in.To, in.Amount)
		case OpBurnToken:
			in = MintTo(in.Mint, in.From, in.Amount)
		default:
			return Batch{}, fmt.Errorf("batch %q: %s cannot be reversed", b.Key, in.Op)
		}
		rev.Instructions = append(rev.Instructions, in)
	}
	return rev, nil
}

// Ledger executes batches against token and base-currency balances.
type Ledger interface {
	Execute(ctx context.Context, batch Batch) error
}
