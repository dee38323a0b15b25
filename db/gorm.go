package db

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"TuneBox/config"
	"TuneBox/logger"
	"TuneBox/model"

	"github.com/go-sql-driver/mysql"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Models lists every table the application owns, in migration order.
var Models = []interface{}{
	&model.User{},
	&model.Genre{},
	&model.Song{},
	&model.Playlist{},
	&model.PlaylistSong{},
}

// MySQLDSN builds the DSN for the MySQL driver.
func MySQLDSN(cfg *config.Config) string {
	mc := mysql.NewConfig()
	mc.User = cfg.DBUser
	mc.Passwd = cfg.DBPassword
	mc.Net = "tcp"
	mc.Addr = fmt.Sprintf("%s:%s", cfg.DBHost, cfg.DBPort)
	mc.DBName = cfg.DBName
	mc.ParseTime = true
	mc.Params = map[string]string{"charset": "utf8mb4"}
	return mc.FormatDSN()
}

// PostgresDSN builds the DSN for the Postgres driver.
func PostgresDSN(cfg *config.Config) string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName)
}

func dialector(cfg *config.Config) (gorm.Dialector, error) {
	switch cfg.DBDriver {
	case config.DriverMySQL:
		return gormmysql.Open(MySQLDSN(cfg)), nil
	case config.DriverPostgres:
		return postgres.Open(PostgresDSN(cfg)), nil
	case config.DriverSQLite:
		if dir := filepath.Dir(cfg.DBPath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create sqlite directory %s: %w", dir, err)
			}
		}
		return sqlite.Open(cfg.DBPath), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DBDriver)
	}
}

// Open 建立 GORM 数据库连接并配置连接池。调用方负责 Close。
func Open(cfg *config.Config) (*gorm.DB, error) {
	d, err := dialector(cfg)
	if err != nil {
		return nil, err
	}

	logLevel := gormlogger.Warn
	if cfg.DBLogSQL {
		logLevel = gormlogger.Info
	}

	gdb, err := gorm.Open(d, &gorm.Config{
		Logger: NewGormLogger(logLevel),
		// 唯一键冲突统一翻译为 gorm.ErrDuplicatedKey
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database with GORM: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if cfg.DBDriver == config.DriverSQLite {
		// sqlite 只允许单写者
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	logger.Info("[DB] 数据库连接成功", logger.String("driver", cfg.DBDriver))
	return gdb, nil
}

// Close 关闭 GORM 数据库连接
func Close(gdb *gorm.DB) error {
	if gdb == nil {
		return nil
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Migrate 自动迁移所有模型
func Migrate(gdb *gorm.DB) error {
	if gdb == nil {
		return fmt.Errorf("GORM database not initialized")
	}
	if err := gdb.AutoMigrate(Models...); err != nil {
		return fmt.Errorf("failed to auto migrate models: %w", err)
	}
	for _, stmt := range dialectFixups(gdb.Dialector.Name()) {
		if err := gdb.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to apply %s schema fixup: %w", gdb.Dialector.Name(), err)
		}
	}
	logger.Info("[DB] 数据表迁移完成")
	return nil
}

// dialectFixups returns statements run after AutoMigrate for one dialect.
// MySQL 默认排序规则不区分大小写，风格名需要二进制比较；sqlite 和 postgres 默认即区分大小写
func dialectFixups(dialect string) []string {
	if dialect != config.DriverMySQL {
		return nil
	}
	return []string{
		"ALTER TABLE genres MODIFY name VARCHAR(100) NOT NULL COLLATE utf8mb4_bin",
	}
}
