package database

import (
	"fmt"
	"log"
	"os"

	"github.com/buildlens/backend/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func Connect() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})

	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	fmt.Println("Database connected successfully")
}

func AutoMigrate() {
	// The vector extension must exist before the chunk table's embedding
	// column can be created.
	if err := DB.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		log.Fatal("Failed to create vector extension:", err)
	}

	err := DB.AutoMigrate(
		&models.User{},
		&models.Repository{},
		&models.WorkflowRun{},
		&models.LogChunk{},
		&models.AnalysisResult{},
		&models.Incident{},
	)

	if err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Cosine-distance index over chunk embeddings. IVF-flat needs the table
	// to exist first, so this runs after AutoMigrate.
	if err := DB.Exec(
		"CREATE INDEX IF NOT EXISTS idx_log_chunks_embedding ON log_chunks " +
			"USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100)",
	).Error; err != nil {
		log.Fatal("Failed to create embedding index:", err)
	}

	fmt.Println("Database migrated successfully")
}
