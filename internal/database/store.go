package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ssq-predictor/internal/config"
	"ssq-predictor/internal/logger"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

// Store 开奖记录与预测批次存储
type Store struct {
	db      *sql.DB
	dialect dialect
}

// Open 按配置打开数据库并初始化表结构
func Open(cfg *config.Database) (*Store, error) {
	d, err := dialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(d.driver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// 设置连接池参数
	if d.driver == "sqlite" {
		// sqlite 单写者
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	// 测试连接
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store, err := NewStore(db, cfg.Driver)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewStore 使用已打开的连接创建存储并自动建表
func NewStore(db *sql.DB, driver string) (*Store, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}

	store := &Store{db: db, dialect: d}
	if err := store.createTablesIfNotExists(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return store, nil
}

// Close 关闭数据库连接
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping 检查数据库连接
func (s *Store) Ping() error {
	return s.db.Ping()
}

// createTablesIfNotExists 自动创建表结构
func (s *Store) createTablesIfNotExists() error {
	for _, stmt := range s.dialect.schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveDraws 保存开奖记录，已存在的期号保持不变，返回新增条数
func (s *Store) SaveDraws(records []DrawRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := s.dialect.insertIgnore + ` draw_records
		(issue, draw_date, primary_numbers, secondary_number, sum_value, odd_count, high_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	stmt, err := tx.Prepare(query)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UnixMilli()
	inserted := 0
	for _, r := range records {
		res, err := stmt.Exec(r.Issue, r.DrawDate.Format(DateLayout), FormatNumbers(r.Primary, ","),
			r.Secondary, r.Sum, r.OddCount, r.HighCount, now)
		if err != nil {
			return 0, fmt.Errorf("failed to save draw %s: %w", r.Issue, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit draws: %w", err)
	}

	logger.Debugf("Saved %d new draw records (%d submitted)", inserted, len(records))
	return inserted, nil
}

const drawColumns = `issue, draw_date, primary_numbers, secondary_number, sum_value, odd_count, high_count`

// GetRecords 获取按期号升序的开奖记录，limit<=0 返回全部，否则返回最近 limit 期
func (s *Store) GetRecords(limit int) ([]DrawRecord, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if limit <= 0 {
		rows, err = s.db.Query(`SELECT ` + drawColumns + ` FROM draw_records ORDER BY issue ASC`)
	} else {
		rows, err = s.db.Query(`SELECT `+drawColumns+` FROM (
			SELECT `+drawColumns+` FROM draw_records ORDER BY issue DESC LIMIT ?
		) recent ORDER BY issue ASC`, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query draw records: %w", err)
	}
	defer rows.Close()

	var records []DrawRecord
	for rows.Next() {
		record, err := scanDraw(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading draw rows: %w", err)
	}
	return records, nil
}

// GetDraw 根据期号获取开奖记录，不存在返回 nil
func (s *Store) GetDraw(issue string) (*DrawRecord, error) {
	row := s.db.QueryRow(`SELECT `+drawColumns+` FROM draw_records WHERE issue = ?`, issue)
	record, err := scanDraw(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// LatestDraw 获取最新一期开奖记录，无数据返回 nil
func (s *Store) LatestDraw() (*DrawRecord, error) {
	records, err := s.GetRecords(1)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

// CountDraws 开奖记录总数
func (s *Store) CountDraws() (int, error) {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM draw_records`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count draws: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanDraw 扫描一行开奖记录
func scanDraw(row rowScanner) (DrawRecord, error) {
	var (
		issue, date, numbers string
		record               DrawRecord
	)
	err := row.Scan(&issue, &date, &numbers, &record.Secondary, &record.Sum, &record.OddCount, &record.HighCount)
	if errors.Is(err, sql.ErrNoRows) {
		return DrawRecord{}, err
	}
	if err != nil {
		return DrawRecord{}, fmt.Errorf("failed to scan draw record: %w", err)
	}

	record.Issue = issue
	record.Primary, err = ParseNumbers(numbers)
	if err != nil {
		return DrawRecord{}, fmt.Errorf("corrupt primary numbers for %s: %w", issue, err)
	}
	record.DrawDate, err = time.ParseInLocation(DateLayout, date, time.Local)
	if err != nil {
		return DrawRecord{}, fmt.Errorf("corrupt draw date for %s: %w", issue, err)
	}
	return record, nil
}

// SaveRun 保存预测批次
func (s *Store) SaveRun(run *PredictionRun) error {
	tuples, err := json.Marshal(run.Tuples)
	if err != nil {
		return fmt.Errorf("failed to encode tuples: %w", err)
	}

	_, err = s.db.Exec(`INSERT INTO prediction_runs (id, target_issue, target_date, tuples, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.TargetIssue, run.TargetDate.Format(DateLayout), string(tuples), run.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to save prediction run: %w", err)
	}

	logger.Debugf("Saved prediction run %s for issue %s", run.ID, run.TargetIssue)
	return nil
}

const runColumns = `id, target_issue, target_date, tuples, created_at`

// ListRuns 按创建时间倒序列出预测批次，limit<=0 返回全部
func (s *Store) ListRuns(limit int) ([]PredictionRun, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if limit <= 0 {
		rows, err = s.db.Query(`SELECT ` + runColumns + ` FROM prediction_runs ORDER BY created_at DESC, id ASC`)
	} else {
		rows, err = s.db.Query(`SELECT `+runColumns+` FROM prediction_runs ORDER BY created_at DESC, id ASC LIMIT ?`, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query prediction runs: %w", err)
	}
	defer rows.Close()

	var runs []PredictionRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading prediction run rows: %w", err)
	}
	return runs, nil
}

// GetRun 根据ID获取预测批次
func (s *Store) GetRun(id string) (*PredictionRun, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM prediction_runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// DeleteRun 删除预测批次
func (s *Store) DeleteRun(id string) error {
	result, err := s.db.Exec(`DELETE FROM prediction_runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete prediction run: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

// PruneRuns 清理早于指定时间创建的预测批次
func (s *Store) PruneRuns(before time.Time) (int, error) {
	result, err := s.db.Exec(`DELETE FROM prediction_runs WHERE created_at < ?`, before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to prune prediction runs: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(affected), nil
}

// scanRun 扫描一行预测批次
func scanRun(row rowScanner) (PredictionRun, error) {
	var (
		run             PredictionRun
		date, tuples    string
		createdAtMillis int64
	)
	err := row.Scan(&run.ID, &run.TargetIssue, &date, &tuples, &createdAtMillis)
	if errors.Is(err, sql.ErrNoRows) {
		return PredictionRun{}, err
	}
	if err != nil {
		return PredictionRun{}, fmt.Errorf("failed to scan prediction run: %w", err)
	}

	if err := json.Unmarshal([]byte(tuples), &run.Tuples); err != nil {
		return PredictionRun{}, fmt.Errorf("corrupt tuples for run %s: %w", run.ID, err)
	}
	run.TargetDate, err = time.ParseInLocation(DateLayout, date, time.Local)
	if err != nil {
		return PredictionRun{}, fmt.Errorf("corrupt target date for run %s: %w", run.ID, err)
	}
	run.CreatedAt = time.UnixMilli(createdAtMillis)
	return run, nil
}
