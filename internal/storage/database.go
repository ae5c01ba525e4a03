package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"darksky-monitor/internal/alert"
)

// ErrProfileNotFound is returned when no profile exists for (owner, name).
var ErrProfileNotFound = errors.New("profile not found")

type Database struct {
	db *gorm.DB
}

func NewDatabase(path string) (*Database, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&ProfileRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Database{db: db}, nil
}

// SaveProfile writes the whole profile in one statement, replacing any
// existing row for the same owner and name.
func (d *Database) SaveProfile(p *alert.Profile) error {
	rec, err := toRecord(p)
	if err != nil {
		return err
	}

	return d.db.Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "owner"}, {Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"location", "min_duration", "thresholds", "updated_at"}),
		}).Create(rec).Error
	})
}

func (d *Database) LoadProfile(owner, name string) (*alert.Profile, error) {
	var rec ProfileRecord
	result := d.db.Where("owner = ? AND name = ?", owner, name).First(&rec)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%s by %s: %w", name, owner, ErrProfileNotFound)
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return fromRecord(&rec)
}

// DeleteProfile removes the profile and reports whether a row existed.
func (d *Database) DeleteProfile(owner, name string) (bool, error) {
	result := d.db.Where("owner = ? AND name = ?", owner, name).Delete(&ProfileRecord{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListProfiles returns the owner's profiles ordered by name.
func (d *Database) ListProfiles(owner string) ([]*alert.Profile, error) {
	var recs []ProfileRecord
	if err := d.db.Where("owner = ?", owner).Order("name").Find(&recs).Error; err != nil {
		return nil, err
	}
	return fromRecords(recs)
}

// ListAllProfiles returns every profile ordered by owner, then name.
func (d *Database) ListAllProfiles() ([]*alert.Profile, error) {
	var recs []ProfileRecord
	if err := d.db.Order("owner").Order("name").Find(&recs).Error; err != nil {
		return nil, err
	}
	return fromRecords(recs)
}

func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toRecord(p *alert.Profile) (*ProfileRecord, error) {
	thresholds, err := alert.EncodeThresholds(p.ThresholdMap())
	if err != nil {
		return nil, fmt.Errorf("encode thresholds for %s: %w", p, err)
	}
	data, err := json.Marshal(thresholds)
	if err != nil {
		return nil, fmt.Errorf("encode thresholds for %s: %w", p, err)
	}
	return &ProfileRecord{
		Owner:       p.Owner,
		Name:        p.Name,
		Location:    p.Location,
		MinDuration: p.MinDuration,
		Thresholds:  string(data),
	}, nil
}

func fromRecord(rec *ProfileRecord) (*alert.Profile, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(rec.Thresholds), &raw); err != nil {
		return nil, fmt.Errorf("decode thresholds for %s by %s: %w", rec.Name, rec.Owner, err)
	}
	thresholds, err := alert.DecodeThresholds(raw)
	if err != nil {
		return nil, fmt.Errorf("decode thresholds for %s by %s: %w", rec.Name, rec.Owner, err)
	}
	p := alert.NewProfile(rec.Owner, rec.Name, rec.Location)
	p.SetDuration(rec.MinDuration)
	p.SetThresholds(thresholds)
	return p, nil
}

func fromRecords(recs []ProfileRecord) ([]*alert.Profile, error) {
	out := make([]*alert.Profile, 0, len(recs))
	for i := range recs {
		p, err := fromRecord(&recs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}
