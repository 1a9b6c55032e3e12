package repo

import (
	"encoding/json"
	"sync"

	"github.com/jinzhu/gorm"
	"github.com/jinzhu/gorm/dialects/postgres"

	"github.com/moonwalker/assetwatch/pkg/rules"
)

const tblName = "alerts"

type dbAlert struct {
	ID    string `gorm:"primary_key"`
	Alert postgres.Jsonb
}

func (d *dbAlert) TableName() string {
	return tblName
}

type postgresAlertRepo struct {
	connectionString string
	db               *gorm.DB
}

var (
	once sync.Once
	inst *postgresAlertRepo
)

func NewPostgresAlertRepo(connectionString string) (AlertRepo, error) {
	var err error
	// singleton
	once.Do(func() {
		inst = &postgresAlertRepo{connectionString: connectionString}
		err = inst.init()
	})
	return inst, err
}

func (s *postgresAlertRepo) init() error {
	db, err := gorm.Open("postgres", s.connectionString)
	if err != nil {
		return err
	}
	s.db = db

	return db.AutoMigrate(&dbAlert{}).Error
}

func (s *postgresAlertRepo) Name() string {
	return "postgres"
}

func (s *postgresAlertRepo) Get(id string) (*rules.AlertConfig, error) {
	var row dbAlert
	res := s.db.First(&row, "id = ?", id)
	if gorm.IsRecordNotFoundError(res.Error) {
		return nil, ErrNotFound
	}
	if res.Error != nil {
		return nil, res.Error
	}

	var alert *rules.AlertConfig
	err := json.Unmarshal(row.Alert.RawMessage, &alert)
	if err != nil {
		return nil, err
	}

	return alert, nil
}

func (s *postgresAlertRepo) Save(alert *rules.AlertConfig) error {
	buf, err := json.Marshal(alert)
	if err != nil {
		return err
	}

	return s.db.Save(&dbAlert{
		ID:    alert.ID,
		Alert: postgres.Jsonb{RawMessage: json.RawMessage(buf)},
	}).Error
}

func (s *postgresAlertRepo) Remove(id string) error {
	return s.db.Delete(&dbAlert{ID: id}).Error
}

func (s *postgresAlertRepo) RemoveAll() error {
	return s.db.Delete(dbAlert{}).Error
}

func (s *postgresAlertRepo) Each(skip int, limit int, fn func(alert *rules.AlertConfig)) error {
	query := s.db.Order("id").Offset(skip)
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []dbAlert
	if err := query.Find(&rows).Error; err != nil {
		return err
	}

	for _, row := range rows {
		var alert *rules.AlertConfig
		err := json.Unmarshal(row.Alert.RawMessage, &alert)
		if err != nil {
			return err
		}
		fn(alert)
	}

	return nil
}

func (s *postgresAlertRepo) Count() (count int) {
	s.db.Table(tblName).Count(&count)
	return
}

func (s *postgresAlertRepo) Active() (active int) {
	s.db.Model(&dbAlert{}).Where("alert->>'activo' = ?", "true").Count(&active)
	return
}

func (s *postgresAlertRepo) Close() {
	s.db.Close()
}
