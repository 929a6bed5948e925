package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anoixa/eatinator/database"
	"github.com/anoixa/eatinator/database/models"
	"github.com/anoixa/eatinator/utils/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// migrateCmd 数据库迁移命令
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Database migration tools",
	Long:  `Copy votes and image records from one database to another (e.g., SQLite to PostgreSQL).`,
}

// migrateRunCmd 执行迁移命令
var migrateRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run database migration",
	Long: `Run database migration from source to target database.

Examples:
  # Migrate from SQLite to PostgreSQL
  eatinator migrate run --from-sqlite ./data/eatinator.db --to-postgres "host=localhost user=postgres password=secret dbname=eatinator port=5432"

  # Replace rows that already exist in the target
  eatinator migrate run --from-sqlite ./data/eatinator.db --to-postgres "..." --on-conflict=overwrite`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := logger.Initialize("info", false); err != nil {
			return err
		}
		opts := migrateOptions{}
		opts.fromType, _ = cmd.Flags().GetString("from-type")
		opts.toType, _ = cmd.Flags().GetString("to-type")
		opts.fromDSN, _ = cmd.Flags().GetString("from-dsn")
		opts.toDSN, _ = cmd.Flags().GetString("to-dsn")
		if p, _ := cmd.Flags().GetString("from-sqlite"); p != "" {
			opts.fromType, opts.fromDSN = "sqlite", p
		}
		if dsn, _ := cmd.Flags().GetString("to-postgres"); dsn != "" {
			opts.toType, opts.toDSN = "postgres", dsn
		}
		opts.batchSize, _ = cmd.Flags().GetInt("batch-size")
		opts.onConflict, _ = cmd.Flags().GetString("on-conflict")
		opts.skipConfirm, _ = cmd.Flags().GetBool("yes")

		return runMigration(cmd.Context(), opts)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateRunCmd)

	migrateRunCmd.Flags().String("from-type", "", "Source database type (sqlite, postgres)")
	migrateRunCmd.Flags().String("to-type", "", "Target database type (sqlite, postgres)")
	migrateRunCmd.Flags().String("from-dsn", "", "Source database DSN/connection string")
	migrateRunCmd.Flags().String("to-dsn", "", "Target database DSN/connection string")
	migrateRunCmd.Flags().String("from-sqlite", "", "Source SQLite file path (shortcut)")
	migrateRunCmd.Flags().String("to-postgres", "", "Target PostgreSQL connection string (shortcut)")
	migrateRunCmd.Flags().Bool("yes", false, "Skip confirmation prompt")
	migrateRunCmd.Flags().Int("batch-size", 500, "Batch size for data migration")
	migrateRunCmd.Flags().String("on-conflict", "skip", "Conflict resolution strategy: skip (default), overwrite, error")
}

type migrateOptions struct {
	fromType, fromDSN string
	toType, toDSN     string
	batchSize         int
	onConflict        string
	skipConfirm       bool
}

func (o migrateOptions) validate() error {
	switch o.onConflict {
	case "skip", "overwrite", "error":
	default:
		return fmt.Errorf("invalid on-conflict strategy: %s (must be skip, overwrite, or error)", o.onConflict)
	}
	if o.fromType == "" || o.toType == "" {
		return fmt.Errorf("both --from-type and --to-type are required")
	}
	if o.fromDSN == "" || o.toDSN == "" {
		return fmt.Errorf("both --from-dsn and --to-dsn (or shortcuts) are required")
	}
	if o.fromType == o.toType && o.fromDSN == o.toDSN {
		return fmt.Errorf("source and target databases are the same")
	}
	if o.batchSize <= 0 {
		return fmt.Errorf("batch-size must be positive")
	}
	return nil
}

// runMigration 执行数据库迁移
func runMigration(ctx context.Context, opts migrateOptions) error {
	if err := opts.validate(); err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	logger.Info("Migrating database",
		zap.String("from", opts.fromType),
		zap.String("to", opts.toType),
		zap.String("source", maskDSN(opts.fromDSN)),
		zap.String("target", maskDSN(opts.toDSN)),
		zap.String("on_conflict", opts.onConflict))

	sourceDB, err := openDatabase(opts.fromType, opts.fromDSN)
	if err != nil {
		return fmt.Errorf("failed to connect to source database: %w", err)
	}
	defer closeDB(sourceDB)

	targetDB, err := openDatabase(opts.toType, opts.toDSN)
	if err != nil {
		return fmt.Errorf("failed to connect to target database: %w", err)
	}
	defer closeDB(targetDB)

	if !opts.skipConfirm && !confirm(fmt.Sprintf("This will copy all votes and images into the target database (on-conflict: %s).", opts.onConflict)) {
		fmt.Println("Migration cancelled.")
		return nil
	}

	if err := targetDB.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	counts := map[string]int64{}
	steps := []struct {
		name string
		copy func() (int64, error)
	}{
		{"votes", func() (int64, error) {
			return copyTable[models.VoteTally](ctx, sourceDB, targetDB, "vote_key", opts.batchSize, opts.onConflict)
		}},
		{"user_votes", func() (int64, error) {
			return copyTable[models.UserVote](ctx, sourceDB, targetDB, "user_id, vote_key", opts.batchSize, opts.onConflict)
		}},
		{"images", func() (int64, error) {
			return copyTable[models.Image](ctx, sourceDB, targetDB, "id", opts.batchSize, opts.onConflict)
		}},
	}

	for _, step := range steps {
		n, err := step.copy()
		if err != nil {
			return fmt.Errorf("%s migration failed: %w", step.name, err)
		}
		counts[step.name] = n
		logger.Info("Migrated table", zap.String("table", step.name), zap.Int64("rows", n))
	}

	if targetDB.Dialector.Name() == "postgres" {
		// 显式写入 ID 后需要推进自增序列
		if err := targetDB.Exec("SELECT setval(pg_get_serial_sequence('images', 'id'), COALESCE(MAX(id), 1)) FROM images").Error; err != nil {
			return fmt.Errorf("failed to reset images sequence: %w", err)
		}
	}

	fmt.Printf("Migration completed: %d tallies, %d user votes, %d images\n", counts["votes"], counts["user_votes"], counts["images"])
	return nil
}

// copyTable 按 order 分页复制一张表，返回写入的行数
func copyTable[T any](ctx context.Context, sourceDB, targetDB *gorm.DB, order string, batchSize int, onConflict string) (int64, error) {
	insert := targetDB.WithContext(ctx)
	switch onConflict {
	case "skip":
		insert = insert.Clauses(clause.OnConflict{DoNothing: true})
	case "overwrite":
		insert = insert.Clauses(clause.OnConflict{UpdateAll: true})
	}

	var written int64
	for offset := 0; ; offset += batchSize {
		var batch []T
		if err := sourceDB.WithContext(ctx).Order(order).Limit(batchSize).Offset(offset).Find(&batch).Error; err != nil {
			return written, err
		}
		if len(batch) == 0 {
			return written, nil
		}

		res := insert.Create(&batch)
		if res.Error != nil {
			return written, res.Error
		}
		written += res.RowsAffected

		if len(batch) < batchSize {
			return written, nil
		}
	}
}

// openDatabase 打开数据库连接
func openDatabase(dbType, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch dbType {
	case "sqlite":
		dialector = sqlite.Open(database.SQLiteDSN(dsn))
	case "postgres", "postgresql":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", dbType)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(4)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	return db, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

// maskDSN 隐藏连接串中的密码
func maskDSN(dsn string) string {
	fields := strings.Fields(dsn)
	for i, f := range fields {
		if strings.HasPrefix(f, "password=") {
			fields[i] = "password=***"
		}
	}
	masked := strings.Join(fields, " ")

	if at := strings.Index(masked, "@"); at > 0 {
		if scheme := strings.Index(masked, "://"); scheme > 0 && scheme < at {
			if colon := strings.Index(masked[scheme+3:at], ":"); colon >= 0 {
				masked = masked[:scheme+3+colon+1] + "***" + masked[at:]
			}
		}
	}
	return masked
}

func confirm(prompt string) bool {
	fmt.Println(prompt)
	fmt.Print("Do you want to continue? [y/N]: ")
	var response string
	_, _ = fmt.Scanln(&response)
	response = strings.ToLower(strings.TrimSpace(response))
	return response == "y" || response == "yes"
}
