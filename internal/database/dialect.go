package database

import "fmt"

// dialect 不同数据库驱动的 SQL 差异
type dialect struct {
	driver       string
	insertIgnore string
	schema       []string
}

var mysqlDialect = dialect{
	driver:       "mysql",
	insertIgnore: "INSERT IGNORE INTO",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS draw_records (
			issue VARCHAR(20) NOT NULL PRIMARY KEY COMMENT '期号',
			draw_date VARCHAR(10) NOT NULL COMMENT '开奖日期',
			primary_numbers VARCHAR(32) NOT NULL COMMENT '红球',
			secondary_number INT NOT NULL COMMENT '蓝球',
			sum_value INT NOT NULL COMMENT '红球和值',
			odd_count INT NOT NULL COMMENT '奇数个数',
			high_count INT NOT NULL COMMENT '大号个数',
			created_at BIGINT NOT NULL COMMENT '入库时间(毫秒)'
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci COMMENT='开奖记录表'`,
		`CREATE TABLE IF NOT EXISTS prediction_runs (
			id VARCHAR(36) NOT NULL PRIMARY KEY COMMENT '批次ID',
			target_issue VARCHAR(20) NOT NULL COMMENT '目标期号',
			target_date VARCHAR(10) NOT NULL COMMENT '目标开奖日期',
			tuples TEXT NOT NULL COMMENT '预测号码(JSON)',
			created_at BIGINT NOT NULL COMMENT '创建时间(毫秒)',
			INDEX idx_created_at (created_at),
			INDEX idx_target_issue (target_issue)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci COMMENT='预测批次表'`,
	},
}

var sqliteDialect = dialect{
	driver:       "sqlite",
	insertIgnore: "INSERT OR IGNORE INTO",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS draw_records (
			issue TEXT NOT NULL PRIMARY KEY,
			draw_date TEXT NOT NULL,
			primary_numbers TEXT NOT NULL,
			secondary_number INTEGER NOT NULL,
			sum_value INTEGER NOT NULL,
			odd_count INTEGER NOT NULL,
			high_count INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS prediction_runs (
			id TEXT NOT NULL PRIMARY KEY,
			target_issue TEXT NOT NULL,
			target_date TEXT NOT NULL,
			tuples TEXT NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON prediction_runs (created_at)`,
	},
}

// dialectFor 根据驱动名选择方言
func dialectFor(driver string) (dialect, error) {
	switch driver {
	case "mysql":
		return mysqlDialect, nil
	case "sqlite":
		return sqliteDialect, nil
	default:
		return dialect{}, fmt.Errorf("unsupported database driver: %s", driver)
	}
}
