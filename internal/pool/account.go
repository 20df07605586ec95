// internal/pool/account.go
package pool

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/curve-launchpad/internal/curve"
)

// AccountDiscriminator prefixes every encoded pool account.
var AccountDiscriminator = accountDiscriminator("LiquidityPool")

func accountDiscriminator(name string) [8]byte {
	var d [8]byte
	sum := sha256.Sum256([]byte("account:" + name))
	copy(d[:], sum[:8])
	return d
}

// EncodeAccount serializes a pool into its borsh account layout.
func EncodeAccount(p *Pool) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := p.MarshalWithEncoder(bin.NewBorshEncoder(buf)); err != nil {
		return nil, fmt.Errorf("encode pool %s: %w", p.Token, err)
	}
	return buf.Bytes(), nil
}

// DecodeAccount parses bytes produced by EncodeAccount.
func DecodeAccount(data []byte) (*Pool, error) {
	var p Pool
	if err := p.UnmarshalWithDecoder(bin.NewBorshDecoder(data)); err != nil {
		return nil, fmt.Errorf("decode pool account: %w", err)
	}
	return &p, nil
}

func (p Pool) MarshalWithEncoder(enc *bin.Encoder) error {
	if err := enc.WriteBytes(AccountDiscriminator[:], false); err != nil {
		return err
	}
	for _, key := range []solana.PublicKey{p.Creator, p.Token, p.CreatorFeeWallet} {
		if err := enc.WriteBytes(key[:], false); err != nil {
			return err
		}
	}
	for _, v := range []uint64{p.TotalSupply, p.ReserveToken, p.ReserveBase, p.Preallocated} {
		if err := enc.WriteUint64(v, bin.LE); err != nil {
			return err
		}
	}
	if err := encodeCurve(enc, p.Curve); err != nil {
		return err
	}
	if err := enc.WriteUint8(uint8(p.State)); err != nil {
		return err
	}
	if err := enc.WriteBool(p.Migrated); err != nil {
		return err
	}
	if err := enc.WriteBool(p.MigrationSignaled); err != nil {
		return err
	}

	m := p.Migration
	if err := enc.WriteUint8(uint8(m.Stage)); err != nil {
		return err
	}
	for _, v := range []uint64{m.DrainAmount, m.DrainTokens, m.BurnAmount} {
		if err := enc.WriteUint64(v, bin.LE); err != nil {
			return err
		}
	}
	if err := enc.WriteString(m.VenuePool); err != nil {
		return err
	}
	if err := enc.WriteUint64(m.LPAmount, bin.LE); err != nil {
		return err
	}
	if err := enc.WriteString(m.LockID); err != nil {
		return err
	}
	if err := enc.WriteUint64(m.HarvestedFees, bin.LE); err != nil {
		return err
	}

	if err := enc.WriteInt64(unixNano(p.CreatedAt), bin.LE); err != nil {
		return err
	}
	return enc.WriteInt64(unixNano(p.UpdatedAt), bin.LE)
}

func (p *Pool) UnmarshalWithDecoder(dec *bin.Decoder) (err error) {
	disc, err := dec.ReadNBytes(8)
	if err != nil {
		return err
	}
	if !bytes.Equal(disc, AccountDiscriminator[:]) {
		return fmt.Errorf("unexpected account discriminator %x", disc)
	}

	for _, key := range []*solana.PublicKey{&p.Creator, &p.Token, &p.CreatorFeeWallet} {
		raw, err := dec.ReadNBytes(solana.PublicKeyLength)
		if err != nil {
			return err
		}
		*key = solana.PublicKeyFromBytes(raw)
	}
	for _, v := range []*uint64{&p.TotalSupply, &p.ReserveToken, &p.ReserveBase, &p.Preallocated} {
		if *v, err = dec.ReadUint64(bin.LE); err != nil {
			return err
		}
	}
	if p.Curve, err = decodeCurve(dec); err != nil {
		return err
	}

	state, err := dec.ReadUint8()
	if err != nil {
		return err
	}
	p.State = State(state)
	if p.Migrated, err = dec.ReadBool(); err != nil {
		return err
	}
	if p.MigrationSignaled, err = dec.ReadBool(); err != nil {
		return err
	}

	stage, err := dec.ReadUint8()
	if err != nil {
		return err
	}
	p.Migration.Stage = Stage(stage)
	for _, v := range []*uint64{&p.Migration.DrainAmount, &p.Migration.DrainTokens, &p.Migration.BurnAmount} {
		if *v, err = dec.ReadUint64(bin.LE); err != nil {
			return err
		}
	}
	if p.Migration.VenuePool, err = dec.ReadString(); err != nil {
		return err
	}
	if p.Migration.LPAmount, err = dec.ReadUint64(bin.LE); err != nil {
		return err
	}
	if p.Migration.LockID, err = dec.ReadString(); err != nil {
		return err
	}
	if p.Migration.HarvestedFees, err = dec.ReadUint64(bin.LE); err != nil {
		return err
	}

	created, err := dec.ReadInt64(bin.LE)
	if err != nil {
		return err
	}
	updated, err := dec.ReadInt64(bin.LE)
	if err != nil {
		return err
	}
	p.CreatedAt = fromUnixNano(created)
	p.UpdatedAt = fromUnixNano(updated)
	return nil
}

// encodeCurve writes the kind tag followed by the params of that kind only.
func encodeCurve(enc *bin.Encoder, m curve.Model) error {
	if err := enc.WriteUint8(uint8(m.Kind)); err != nil {
		return err
	}
	switch m.Kind {
	case curve.Proportional:
		pp := m.Proportional
		for _, f := range []float64{pp.K, pp.VirtualBase, pp.TokenScale} {
			if err := enc.WriteFloat64(f, bin.LE); err != nil {
				return err
			}
		}
	case curve.PowerLaw:
		pl := m.PowerLaw
		for _, f := range []float64{pl.Exponent, pl.ProportionBase} {
			if err := enc.WriteFloat64(f, bin.LE); err != nil {
				return err
			}
		}
		if err := enc.WriteInt32(pl.ProportionExp, bin.LE); err != nil {
			return err
		}
		for _, f := range []float64{pl.MinPrice, pl.TokenScale} {
			if err := enc.WriteFloat64(f, bin.LE); err != nil {
				return err
			}
		}
		if err := enc.WriteUint8(pl.Iterations); err != nil {
			return err
		}
		return enc.WriteFloat64(pl.Tolerance, bin.LE)
	default:
		return fmt.Errorf("unknown curve kind %d", m.Kind)
	}
	return nil
}

func decodeCurve(dec *bin.Decoder) (m curve.Model, err error) {
	kind, err := dec.ReadUint8()
	if err != nil {
		return m, err
	}
	m.Kind = curve.Kind(kind)
	switch m.Kind {
	case curve.Proportional:
		pp := &m.Proportional
		for _, f := range []*float64{&pp.K, &pp.VirtualBase, &pp.TokenScale} {
			if *f, err = dec.ReadFloat64(bin.LE); err != nil {
				return m, err
			}
		}
	case curve.PowerLaw:
		pl := &m.PowerLaw
		for _, f := range []*float64{&pl.Exponent, &pl.ProportionBase} {
			if *f, err = dec.ReadFloat64(bin.LE); err != nil {
				return m, err
			}
		}
		if pl.ProportionExp, err = dec.ReadInt32(bin.LE); err != nil {
			return m, err
		}
		for _, f := range []*float64{&pl.MinPrice, &pl.TokenScale} {
			if *f, err = dec.ReadFloat64(bin.LE); err != nil {
				return m, err
			}
		}
		if pl.Iterations, err = dec.ReadUint8(); err != nil {
			return m, err
		}
		if pl.Tolerance, err = dec.ReadFloat64(bin.LE); err != nil {
			return m, err
		}
	default:
		return m, fmt.Errorf("unknown curve kind %d", kind)
	}
	return m, nil
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
