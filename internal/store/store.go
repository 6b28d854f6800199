package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"limp/internal/evaluation"
	"limp/internal/types"
)

// episodeModel 持久化一次感知输出（完整时间线 JSON）。
type episodeModel struct {
	ID        uint           `gorm:"primaryKey"`
	EpisodeID string         `gorm:"size:128;uniqueIndex"`
	Protocol  string         `gorm:"size:16"`
	Payload   datatypes.JSON `gorm:"type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (episodeModel) TableName() string { return "episodes" }

// answerModel 持久化单题作答（预测、置信度和完整记录 JSON）。
type answerModel struct {
	ID         uint           `gorm:"primaryKey"`
	EpisodeID  string         `gorm:"size:128;uniqueIndex:idx_episode_question"`
	QuestionID string         `gorm:"size:160;uniqueIndex:idx_episode_question"`
	Protocol   string         `gorm:"size:16;uniqueIndex:idx_episode_question"`
	Predicted  string         `gorm:"size:8"`
	Gold       string         `gorm:"size:8"`
	Confidence float64
	Correct    bool
	Degraded   bool
	Payload    datatypes.JSON `gorm:"type:text"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (answerModel) TableName() string { return "answers" }

// runModel 每次评测跑批的汇总指标。
type runModel struct {
	ID        uint           `gorm:"primaryKey"`
	RunID     string         `gorm:"size:64;uniqueIndex"`
	EpisodeID string         `gorm:"size:128;index"`
	Protocol  string         `gorm:"size:16"`
	Total     int
	Correct   int
	Overall   float64
	Report    datatypes.JSON `gorm:"type:text"`
	CreatedAt time.Time
}

func (runModel) TableName() string { return "evaluation_runs" }

// RunRecord 一次评测的持久化视图。
type RunRecord struct {
	RunID     string            `json:"run_id"`
	EpisodeID string            `json:"episode_id"`
	Protocol  string            `json:"protocol"`
	Report    evaluation.Report `json:"report"`
	CreatedAt time.Time         `json:"created_at"`
}

// Store SQLite 持久层，保存感知输出、单题作答和评测汇总。
type Store struct {
	db *gorm.DB
}

// NewStore opens (or creates) the database at path.
func NewStore(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("store path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&episodeModel{}, &answerModel{}, &runModel{}); err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(2)
		sqlDB.SetMaxIdleConns(2)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveEpisode upserts a perception output keyed by episode id.
func (s *Store) SaveEpisode(ctx context.Context, ep *types.Episode) error {
	if ep == nil || ep.ID == "" {
		return fmt.Errorf("episode id cannot be empty")
	}
	payload, err := json.Marshal(ep)
	if err != nil {
		return fmt.Errorf("encode episode: %w", err)
	}
	rec := episodeModel{EpisodeID: ep.ID, Protocol: ep.Protocol, Payload: payload}
	return s.db.WithContext(ctx).
		Where("episode_id = ?", ep.ID).
		Assign(map[string]any{"protocol": ep.Protocol, "payload": payload}).
		FirstOrCreate(&rec).Error
}

// GetEpisode loads a stored perception output.
func (s *Store) GetEpisode(ctx context.Context, episodeID string) (*types.Episode, error) {
	var rec episodeModel
	err := s.db.WithContext(ctx).Where("episode_id = ?", episodeID).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var ep types.Episode
	if err := json.Unmarshal(rec.Payload, &ep); err != nil {
		return nil, fmt.Errorf("decode episode %s: %w", episodeID, err)
	}
	return &ep, nil
}

// ListEpisodes returns the ids of every stored episode, newest first.
func (s *Store) ListEpisodes(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&episodeModel{}).
		Order("updated_at DESC").
		Pluck("episode_id", &ids).Error
	return ids, err
}

// SaveAnswers upserts the per-question results of one episode run.
func (s *Store) SaveAnswers(ctx context.Context, episodeID, protocol string, records []evaluation.Record) error {
	for i := range records {
		rec := &records[i]
		payload, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode answer %s: %w", rec.Question.ID, err)
		}
		row := answerModel{
			EpisodeID:  episodeID,
			QuestionID: rec.Question.ID,
			Protocol:   protocol,
			Predicted:  rec.Result.Predicted,
			Gold:       rec.Question.Answer,
			Confidence: rec.Result.Confidence,
			Correct:    rec.Correct(),
			Degraded:   rec.Result.Degraded,
			Payload:    payload,
		}
		err = s.db.WithContext(ctx).
			Where("episode_id = ? AND question_id = ? AND protocol = ?", episodeID, rec.Question.ID, protocol).
			Assign(map[string]any{
				"predicted":  row.Predicted,
				"gold":       row.Gold,
				"confidence": row.Confidence,
				"correct":    row.Correct,
				"degraded":   row.Degraded,
				"payload":    payload,
			}).
			FirstOrCreate(&row).Error
		if err != nil {
			return fmt.Errorf("persist answer %s: %w", rec.Question.ID, err)
		}
	}
	return nil
}

// GetAnswers loads the stored per-question records of an episode.
func (s *Store) GetAnswers(ctx context.Context, episodeID string) ([]evaluation.Record, error) {
	var rows []answerModel
	err := s.db.WithContext(ctx).
		Where("episode_id = ?", episodeID).
		Order("protocol ASC, question_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	records := make([]evaluation.Record, 0, len(rows))
	for _, row := range rows {
		var rec evaluation.Record
		if err := json.Unmarshal(row.Payload, &rec); err != nil {
			return nil, fmt.Errorf("decode answer %s: %w", row.QuestionID, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// SaveRun records the summary metrics of one evaluation run.
func (s *Store) SaveRun(ctx context.Context, run RunRecord) error {
	if run.RunID == "" {
		return fmt.Errorf("run id cannot be empty")
	}
	payload, err := json.Marshal(run.Report)
	if err != nil {
		return fmt.Errorf("encode run report: %w", err)
	}
	row := runModel{
		RunID:     run.RunID,
		EpisodeID: run.EpisodeID,
		Protocol:  run.Protocol,
		Total:     run.Report.Total,
		Correct:   run.Report.Correct,
		Overall:   run.Report.Overall,
		Report:    payload,
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

// LatestRun returns the most recent run of an episode, or nil.
func (s *Store) LatestRun(ctx context.Context, episodeID string) (*RunRecord, error) {
	var row runModel
	err := s.db.WithContext(ctx).
		Where("episode_id = ?", episodeID).
		Order("created_at DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return runRecordFromModel(row)
}

// ListRuns returns every stored run, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []runModel
	err := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	runs := make([]RunRecord, 0, len(rows))
	for _, row := range rows {
		run, err := runRecordFromModel(row)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, nil
}

func runRecordFromModel(row runModel) (*RunRecord, error) {
	run := RunRecord{
		RunID:     row.RunID,
		EpisodeID: row.EpisodeID,
		Protocol:  row.Protocol,
		CreatedAt: row.CreatedAt,
	}
	if err := json.Unmarshal(row.Report, &run.Report); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", row.RunID, err)
	}
	return &run, nil
}
