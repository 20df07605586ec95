// internal/storage/postgres/pool_store.go
package postgres

import (
	"context"
	"errors"

	errorsmod "cosmossdk.io/errors"
	"github.com/gagliardetto/solana-go"
	"gorm.io/gorm"

	"github.com/rovshanmuradov/curve-launchpad/internal/pool"
	"github.com/rovshanmuradov/curve-launchpad/internal/storage"
	"github.com/rovshanmuradov/curve-launchpad/internal/storage/models"
	"github.com/rovshanmuradov/curve-launchpad/internal/types"
)

// PoolStore реализует pool.Store: источник истины - borsh-данные аккаунта.
type PoolStore struct {
	db *gorm.DB
}

var _ pool.Store = (*PoolStore)(nil)

// Pools returns a pool.Store backed by the same connection.
func (p *Storage) Pools() *PoolStore {
	return &PoolStore{db: p.db}
}

func (s *PoolStore) Create(ctx context.Context, p *pool.Pool) error {
	row, err := storage.PoolModel(p)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Create(row).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errorsmod.Wrapf(types.ErrDuplicateTokenNotAllowed, "token %s", p.Token)
	}
	return err
}

func (s *PoolStore) Get(ctx context.Context, token solana.PublicKey) (*pool.Pool, error) {
	var row models.PoolAccount
	err := s.db.WithContext(ctx).Where("token = ?", token.String()).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errorsmod.Wrapf(types.ErrPoolNotFound, "token %s", token)
	}
	if err != nil {
		return nil, err
	}
	return storage.PoolFromModel(&row)
}

func (s *PoolStore) Save(ctx context.Context, p *pool.Pool) error {
	row, err := storage.PoolModel(p)
	if err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Model(&models.PoolAccount{}).
		Where("token = ?", row.Token).
		Updates(map[string]interface{}{
			"state":         row.State,
			"stage":         row.Stage,
			"reserve_base":  row.ReserveBase,
			"reserve_token": row.ReserveToken,
			"total_supply":  row.TotalSupply,
			"data":          row.Data,
			"updated_at":    row.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errorsmod.Wrapf(types.ErrPoolNotFound, "token %s", p.Token)
	}
	return nil
}

func (s *PoolStore) List(ctx context.Context) ([]*pool.Pool, error) {
	var rows []models.PoolAccount
	if err := s.db.WithContext(ctx).Order("created_at asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*pool.Pool, 0, len(rows))
	for i := range rows {
		p, err := storage.PoolFromModel(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
