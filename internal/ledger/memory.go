// internal/ledger/memory.go
package ledger

import (
	"context"
	"sync"

	errorsmod "cosmossdk.io/errors"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/curve-launchpad/internal/types"
)

type balanceKey struct {
	mint  solana.PublicKey
	owner solana.PublicKey
}

// undo restores one balance entry on rollback.
type undo struct {
	native bool
	supply bool
	key    balanceKey
	prev   uint64
}

// Memory is an in-process ledger used for simulations and tests. Base currency
// lives in a native balance map keyed by owner; tokens in a (mint, owner) map.
type Memory struct {
	mu        sync.Mutex
	programID solana.PublicKey
	native    map[solana.PublicKey]uint64
	tokens    map[balanceKey]uint64
	supply    map[solana.PublicKey]uint64
	applied   map[string]struct{}
	vaults    map[Capability]solana.PublicKey
	logger    *zap.Logger
}

// NewMemory creates an empty ledger whose vault addresses derive from programID.
func NewMemory(programID solana.PublicKey, logger *zap.Logger) *Memory {
	return &Memory{
		programID: programID,
		native:    make(map[solana.PublicKey]uint64),
		tokens:    make(map[balanceKey]uint64),
		supply:    make(map[solana.PublicKey]uint64),
		applied:   make(map[string]struct{}),
		vaults:    make(map[Capability]solana.PublicKey),
		logger:    logger.Named("ledger"),
	}
}

// Airdrop credits lamports to owner outside of any batch.
func (m *Memory) Airdrop(owner solana.PublicKey, lamports uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.native[owner] += lamports
}

// Execute applies the batch atomically.
func (m *Memory) Execute(ctx context.Context, batch Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if batch.Key != "" {
		if _, ok := m.applied[batch.Key]; ok {
			m.logger.Debug("Batch already applied", zap.String("key", batch.Key))
			return nil
		}
	}

	signers := make(map[solana.PublicKey]struct{}, len(batch.Signers))
	for _, s := range batch.Signers {
		signers[s] = struct{}{}
	}

	var journal []undo
	for i, in := range batch.Instructions {
		if err := m.apply(in, signers, &journal); err != nil {
			m.rollback(journal)
			m.logger.Debug("Batch rejected",
				zap.String("key", batch.Key),
				zap.Int("instruction", i),
				zap.String("op", in.Op.String()),
				zap.Error(err))
			return err
		}
	}

	if batch.Key != "" {
		m.applied[batch.Key] = struct{}{}
		// повторное применение снова можно откатить
		delete(m.applied, batch.Key+RevertSuffix)
	}
	if batch.Reverts != "" {
		delete(m.applied, batch.Reverts)
	}

	m.logger.Debug("Batch applied",
		zap.String("key", batch.Key),
		zap.Int("instructions", len(batch.Instructions)))
	return nil
}

func (m *Memory) apply(in Instruction, signers map[solana.PublicKey]struct{}, journal *[]undo) error {
	switch in.Op {
	case OpTransferBase:
		from, err := m.debitor(in.From, signers)
		if err != nil {
			return err
		}
		to, err := m.resolve(in.To)
		if err != nil {
			return err
		}
		if m.native[from] < in.Amount {
			return errorsmod.Wrapf(types.ErrInsufficientFunds,
				"%s holds %d lamports, needs %d", in.From, m.native[from], in.Amount)
		}
		m.setNative(from, m.native[from]-in.Amount, journal)
		m.setNative(to, m.native[to]+in.Amount, journal)

	case OpTransferToken:
		from, err := m.debitor(in.From, signers)
		if err != nil {
			return err
		}
		to, err := m.resolve(in.To)
		if err != nil {
			return err
		}
		src := balanceKey{in.Mint, from}
		if m.tokens[src] < in.Amount {
			return errorsmod.Wrapf(types.ErrInsufficientFunds,
				"%s holds %d tokens, needs %d", in.From, m.tokens[src], in.Amount)
		}
		dst := balanceKey{in.Mint, to}
		m.setToken(src, m.tokens[src]-in.Amount, journal)
		m.setToken(dst, m.tokens[dst]+in.Amount, journal)

	case OpMintToken:
		to, err := m.resolve(in.To)
		if err != nil {
			return err
		}
		if m.supply[in.Mint] > ^uint64(0)-in.Amount {
			return errorsmod.Wrapf(types.ErrOverflowOrUnderflowOccurred, "supply of %s overflows", in.Mint)
		}
		dst := balanceKey{in.Mint, to}
		m.setSupply(in.Mint, m.supply[in.Mint]+in.Amount, journal)
		m.setToken(dst, m.tokens[dst]+in.Amount, journal)

	case OpBurnToken:
		from, err := m.debitor(in.From, signers)
		if err != nil {
			return err
		}
		src := balanceKey{in.Mint, from}
		if m.tokens[src] < in.Amount {
			return errorsmod.Wrapf(types.ErrInsufficientFunds,
				"%s holds %d tokens, cannot burn %d", in.From, m.tokens[src], in.Amount)
		}
		m.setToken(src, m.tokens[src]-in.Amount, journal)
		m.setSupply(in.Mint, m.supply[in.Mint]-in.Amount, journal)

	case OpWrapBase:
		owner, err := m.debitor(in.From, signers)
		if err != nil {
			return err
		}
		if m.native[owner] < in.Amount {
			return errorsmod.Wrapf(types.ErrInsufficientFunds,
				"%s holds %d lamports, cannot wrap %d", in.From, m.native[owner], in.Amount)
		}
		dst := balanceKey{solana.WrappedSol, owner}
		m.setNative(owner, m.native[owner]-in.Amount, journal)
		m.setSupply(solana.WrappedSol, m.supply[solana.WrappedSol]+in.Amount, journal)
		m.setToken(dst, m.tokens[dst]+in.Amount, journal)

	default:
		return errorsmod.Wrapf(types.ErrCalculationError, "unknown ledger op %s", in.Op)
	}
	return nil
}

// debitor resolves the source of a debit and checks it is authorized: vaults by
// the capability they were addressed with, wallets by a batch signer.
func (m *Memory) debitor(acc Account, signers map[solana.PublicKey]struct{}) (solana.PublicKey, error) {
	if acc.Vault != nil {
		return m.resolve(acc)
	}
	if _, ok := signers[acc.Owner]; !ok {
		return solana.PublicKey{}, errorsmod.Wrapf(types.ErrUnauthorized, "%s did not sign", acc.Owner)
	}
	return acc.Owner, nil
}

func (m *Memory) resolve(acc Account) (solana.PublicKey, error) {
	if acc.Vault == nil {
		return acc.Owner, nil
	}
	if addr, ok := m.vaults[*acc.Vault]; ok {
		return addr, nil
	}
	addr, err := acc.Vault.Address(m.programID)
	if err != nil {
		return solana.PublicKey{}, err
	}
	m.vaults[*acc.Vault] = addr
	return addr, nil
}

func (m *Memory) setNative(owner solana.PublicKey, v uint64, journal *[]undo) {
	*journal = append(*journal, undo{native: true, key: balanceKey{owner: owner}, prev: m.native[owner]})
	m.native[owner] = v
}

func (m *Memory) setToken(k balanceKey, v uint64, journal *[]undo) {
	*journal = append(*journal, undo{key: k, prev: m.tokens[k]})
	m.tokens[k] = v
}

func (m *Memory) setSupply(mint solana.PublicKey, v uint64, journal *[]undo) {
	*journal = append(*journal, undo{supply: true, key: balanceKey{mint: mint}, prev: m.supply[mint]})
	m.supply[mint] = v
}

func (m *Memory) rollback(journal []undo) {
	for i := len(journal) - 1; i >= 0; i-- {
		u := journal[i]
		switch {
		case u.native:
			m.native[u.key.owner] = u.prev
		case u.supply:
			m.supply[u.key.mint] = u.prev
		default:
			m.tokens[u.key] = u.prev
		}
	}
}

// Native returns the lamport balance of acc.
func (m *Memory) Native(acc Account) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	addr, err := m.resolve(acc)
	if err != nil {
		return 0
	}
	return m.native[addr]
}

// TokenBalance returns the balance of mint held by acc.
func (m *Memory) TokenBalance(mint solana.PublicKey, acc Account) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	addr, err := m.resolve(acc)
	if err != nil {
		return 0
	}
	return m.tokens[balanceKey{mint, addr}]
}

// Supply returns the outstanding supply of mint.
func (m *Memory) Supply(mint solana.PublicKey) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.supply[mint]
}

// Applied reports whether a keyed batch has executed.
func (m *Memory) Applied(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.applied[key]
	return ok
}
