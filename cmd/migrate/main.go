package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/damoang/angple-editorial/internal/config"
	"github.com/damoang/angple-editorial/internal/migration"
	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "configs/config.local.yaml", "config file path")
	dryRun := flag.Bool("dry-run", false, "show which tables would be created without executing")
	verify := flag.Bool("verify", false, "verify every table exists and print row counts")
	verbose := flag.Bool("verbose", false, "verbose SQL logging")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logLevel := gormlogger.Warn
	if *verbose {
		logLevel = gormlogger.Info
	}

	db, err := gorm.Open(mysql.Open(cfg.Database.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get underlying DB: %v", err)
	}
	defer sqlDB.Close()

	switch {
	case *dryRun:
		runDryRun(db)
	case *verify:
		if !runVerify(db) {
			sqlDB.Close()
			os.Exit(1)
		}
	default:
		if err := migration.Run(db); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("Migration complete")
	}
}

func runDryRun(db *gorm.DB) {
	for _, model := range migration.Models() {
		name := tableName(db, model)
		state := "create"
		if db.Migrator().HasTable(model) {
			state = "alter (exists)"
		}
		log.Printf("[dry-run] %-16s %s", name, state)
	}
}

// runVerify reports false when a table is missing
func runVerify(db *gorm.DB) bool {
	ok := true
	for _, model := range migration.Models() {
		name := tableName(db, model)
		if !db.Migrator().HasTable(model) {
			log.Printf("[verify] %-16s MISSING", name)
			ok = false
			continue
		}
		var count int64
		if err := db.Model(model).Count(&count).Error; err != nil {
			log.Printf("[verify] %-16s count failed: %v", name, err)
			ok = false
			continue
		}
		log.Printf("[verify] %-16s %d rows", name, count)
	}
	if ok {
		log.Println("[verify] all tables present")
	}
	return ok
}

func tableName(db *gorm.DB, model interface{}) string {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(model); err != nil {
		return fmt.Sprintf("%T", model)
	}
	return stmt.Schema.Table
}
