package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"smartapp/internal/table"
)

// Dataset is a decoded ReportState.
type Dataset struct {
	ID        uint
	Category  string
	UserID    uint
	Table     table.Table
	Mapping   table.Mapping
	CreatedAt time.Time
	UpdatedAt time.Time
}

type DatasetRepo struct {
	db *gorm.DB
}

func NewDatasetRepo(db *gorm.DB) *DatasetRepo { return &DatasetRepo{db: db} }

// Load returns the user's dataset for category, falling back to the most
// recent one any user stored.
func (r *DatasetRepo) Load(ctx context.Context, category string, userID uint) (Dataset, error) {
	var st ReportState
	err := r.db.WithContext(ctx).
		Where("category = ? AND user_id = ?", category, userID).
		Take(&st).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.LoadShared(ctx, category)
	}
	if err != nil {
		return Dataset{}, fmt.Errorf("load %s: %w", category, err)
	}
	return decode(st)
}

// LoadShared returns the most recently created dataset of category.
func (r *DatasetRepo) LoadShared(ctx context.Context, category string) (Dataset, error) {
	var st ReportState
	err := r.db.WithContext(ctx).
		Where("category = ?", category).
		Order("id DESC").
		Take(&st).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Dataset{}, fmt.Errorf("dataset %s: %w", category, ErrNotFound)
	}
	if err != nil {
		return Dataset{}, fmt.Errorf("load %s: %w", category, err)
	}
	return decode(st)
}

// LoadAll returns every user's dataset of category, newest first.
func (r *DatasetRepo) LoadAll(ctx context.Context, category string) ([]Dataset, error) {
	var sts []ReportState
	err := r.db.WithContext(ctx).
		Where("category = ?", category).
		Order("created_at DESC, id DESC").
		Find(&sts).Error
	if err != nil {
		return nil, fmt.Errorf("load all %s: %w", category, err)
	}
	out := make([]Dataset, 0, len(sts))
	for _, st := range sts {
		ds, err := decode(st)
		if err != nil {
			return nil, err
		}
		out = append(out, ds)
	}
	return out, nil
}

// Save upserts by (category, userID). A nil table or mapping keeps the
// stored value.
func (r *DatasetRepo) Save(ctx context.Context, category string, userID uint, t *table.Table, m *table.Mapping) (Dataset, error) {
	var out ReportState
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var st ReportState
		err := tx.Where("category = ? AND user_id = ?", category, userID).Take(&st).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			st = ReportState{Category: category, UserID: userID}
		case err != nil:
			return err
		}
		if t != nil {
			b, err := json.Marshal(t)
			if err != nil {
				return err
			}
			st.Data = b
		}
		if m != nil {
			b, err := json.Marshal(m)
			if err != nil {
				return err
			}
			st.Mapping = b
		}
		if err := tx.Save(&st).Error; err != nil {
			return err
		}
		out = st
		return nil
	})
	if err != nil {
		return Dataset{}, fmt.Errorf("save %s: %w", category, err)
	}
	return decode(out)
}

// Update loads the user's own dataset (empty when missing), lets fn change
// the table and stores the result in one transaction.
func (r *DatasetRepo) Update(ctx context.Context, category string, userID uint, fn func(*table.Table) error) (Dataset, error) {
	var out ReportState
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var st ReportState
		err := tx.Where("category = ? AND user_id = ?", category, userID).Take(&st).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			st = ReportState{Category: category, UserID: userID}
		case err != nil:
			return err
		}
		t, err := decodeTable(st.Data)
		if err != nil {
			return err
		}
		if err := fn(&t); err != nil {
			return err
		}
		b, err := json.Marshal(t)
		if err != nil {
			return err
		}
		st.Data = b
		if err := tx.Save(&st).Error; err != nil {
			return err
		}
		out = st
		return nil
	})
	if err != nil {
		return Dataset{}, fmt.Errorf("update %s: %w", category, err)
	}
	return decode(out)
}

// Categories lists the distinct stored categories starting with prefix.
func (r *DatasetRepo) Categories(ctx context.Context, prefix string) ([]string, error) {
	var cats []string
	err := r.db.WithContext(ctx).Model(&ReportState{}).
		Where("category LIKE ?", prefix+"%").
		Distinct().Order("category").
		Pluck("category", &cats).Error
	if err != nil {
		return nil, fmt.Errorf("list %s*: %w", prefix, err)
	}
	return cats, nil
}

func (r *DatasetRepo) Delete(ctx context.Context, category string, userID uint) error {
	res := r.db.WithContext(ctx).
		Where("category = ? AND user_id = ?", category, userID).
		Delete(&ReportState{})
	if res.Error != nil {
		return fmt.Errorf("delete %s: %w", category, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete %s: %w", category, ErrNotFound)
	}
	return nil
}

func decode(st ReportState) (Dataset, error) {
	ds := Dataset{
		ID: st.ID, Category: st.Category, UserID: st.UserID,
		CreatedAt: st.CreatedAt, UpdatedAt: st.UpdatedAt,
	}
	t, err := decodeTable(st.Data)
	if err != nil {
		return Dataset{}, fmt.Errorf("decode %s data: %w", st.Category, err)
	}
	ds.Table = t
	if len(st.Mapping) > 0 && string(st.Mapping) != "null" {
		if err := json.Unmarshal(st.Mapping, &ds.Mapping); err != nil {
			return Dataset{}, fmt.Errorf("decode %s mapping: %w", st.Category, err)
		}
	}
	return ds, nil
}

func decodeTable(b []byte) (table.Table, error) {
	var t table.Table
	if len(b) == 0 || string(b) == "null" {
		return t, nil
	}
	err := json.Unmarshal(b, &t)
	return t, err
}

// Stamp identifies a stored dataset version without decoding its rows.
type Stamp struct {
	ID          uint
	UpdatedAt   time.Time
	MappingHash string
}

// Stamp returns the version of the dataset Load would return for userID.
func (r *DatasetRepo) Stamp(ctx context.Context, category string, userID uint) (Stamp, error) {
	st, err := r.stamp(ctx, r.db.Where("category = ? AND user_id = ?", category, userID))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.StampShared(ctx, category)
	}
	if err != nil {
		return Stamp{}, fmt.Errorf("stamp %s: %w", category, err)
	}
	return st, nil
}

// StampShared returns the version of the dataset LoadShared would return.
func (r *DatasetRepo) StampShared(ctx context.Context, category string) (Stamp, error) {
	st, err := r.stamp(ctx, r.db.Where("category = ?", category).Order("id DESC"))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Stamp{}, fmt.Errorf("dataset %s: %w", category, ErrNotFound)
	}
	if err != nil {
		return Stamp{}, fmt.Errorf("stamp %s: %w", category, err)
	}
	return st, nil
}

func (r *DatasetRepo) stamp(ctx context.Context, q *gorm.DB) (Stamp, error) {
	var st ReportState
	if err := q.WithContext(ctx).Select("id", "updated_at", "mapping").Take(&st).Error; err != nil {
		return Stamp{}, err
	}
	var m table.Mapping
	if len(st.Mapping) > 0 && string(st.Mapping) != "null" {
		_ = json.Unmarshal(st.Mapping, &m)
	}
	return Stamp{ID: st.ID, UpdatedAt: st.UpdatedAt, MappingHash: m.Hash()}, nil
}

// Stamp of a loaded dataset.
func (d Dataset) Stamp() Stamp {
	return Stamp{ID: d.ID, UpdatedAt: d.UpdatedAt, MappingHash: d.Mapping.Hash()}
}

func (s Stamp) Equal(o Stamp) bool {
	return s.ID == o.ID && s.UpdatedAt.Equal(o.UpdatedAt) && s.MappingHash == o.MappingHash
}
