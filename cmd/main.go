package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dojoworks/academy-server/cmd/api"
	"github.com/dojoworks/academy-server/cmd/models"
	"github.com/dojoworks/academy-server/db"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
)

func main() {
	// Check for command-line arguments
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "migrate":
			runMigrations()
			return
		case "clear-db":
			runDatabaseClear()
			return
		default:
			log.Fatalf("Unknown command: %s", os.Args[1])
		}
	}

	// Start the server
	startServer()
}

func newLogger(env string) *zap.Logger {
	var config zap.Config

	if env == "production" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	config.OutputPaths = []string{"stdout"}

	logger, err := config.Build()
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}

	return logger
}

func runMigrations() {
	DB, err := db.NewPSQLStorage()
	if err != nil {
		log.Fatalf("Database initialization error: %v", err)
	}
	defer func() {
		sqlDB, _ := DB.DB()
		sqlDB.Close()
		log.Println("Database connection closed")
	}()
	log.Println("Connected to the database for migrations")

	// Perform migrations
	if err := performMigrations(DB); err != nil {
		log.Fatalf("Migration error: %v", err)
	}
	log.Println("Migrations completed successfully")
}

func performMigrations(DB *gorm.DB) error {

	migrations := map[interface{}]string{
		&models.Student{}:         "Student",
		&models.Teacher{}:         "Teacher",
		&models.ClassModel{}:      "Class",
		&models.ClassStudent{}:    "ClassStudent",
		&models.ClassTeacher{}:    "ClassTeacher",
		&models.AppointmentSlot{}: "AppointmentSlot",
		&models.Appointment{}:     "Appointment",
		&models.Session{}:         "Session",
		&models.Exercise{}:        "Exercise",
		&models.SessionExercise{}: "SessionExercise",
		&models.Attendance{}:      "Attendance",
		&models.MembershipPlan{}:  "MembershipPlan",
		&models.Membership{}:      "Membership",
		&models.Offer{}:           "Offer",
		&models.Payment{}:         "Payment",
		&models.Article{}:         "Article",
	}

	log.Println("Starting database migrations...")
	for model, name := range migrations {
		log.Printf("Migrating %s table...", name)
		if err := DB.AutoMigrate(model); err != nil {
			return fmt.Errorf("error migrating %s table: %w", name, err)
		}
		log.Printf("%s migration successful", name)
	}

	log.Println("All migrations completed successfully")
	return nil
}

func startServer() {
	// Initialize database connection
	DB, err := db.NewPSQLStorage()
	if err != nil {
		log.Fatalf("Database initialization error: %v", err)
	}
	defer func() {
		sqlDB, _ := DB.DB()
		sqlDB.Close()
		log.Println("Database connection closed")
	}()

	logger := newLogger(os.Getenv("ENV"))
	defer logger.Sync()
	logger.Info("Connected to the database")

	// Graceful shutdown setup
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	// Start the API server
	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}
	server := api.NewApiServer(":"+port, DB, logger)

	go func() {
		if err := server.Run(); err != nil {
			logger.Fatal("Server error", zap.Error(err))
		}
	}()
	logger.Info("Server running", zap.String("port", port))

	<-quit
	logger.Info("Shutting down server...")
}

func clearDatabase(DB *gorm.DB, tables []interface{}) error {
	if len(tables) == 0 {
		// Default: Drop all tables, children first
		tables = []interface{}{
			&models.Payment{},
			&models.Membership{},
			&models.Offer{},
			&models.MembershipPlan{},
			&models.Attendance{},
			&models.SessionExercise{},
			&models.Session{},
			&models.Exercise{},
			&models.Appointment{},
			&models.AppointmentSlot{},
			&models.ClassStudent{},
			&models.ClassTeacher{},
			&models.ClassModel{},
			&models.Article{},
			&models.Teacher{},
			&models.Student{},
		}
	}

	log.Println("Dropping tables...")

	for _, table := range tables {
		if err := DB.Migrator().DropTable(table); err != nil {
			log.Printf("Warning dropping table %T: %v", table, err)
		} else {
			log.Printf("Table %T dropped", table)
		}
	}

	return nil
}

func runDatabaseClear() {
	DB, err := db.NewPSQLStorage()
	if err != nil {
		log.Fatalf("Database initialization error: %v", err)
	}
	defer func() {
		sqlDB, _ := DB.DB()
		sqlDB.Close()
		log.Println("Database connection closed")
	}()

	log.Println("Preparing to clear database...")

	var confirmation string
	fmt.Print("Are you sure you want to clear the database? (yes/no): ")
	fmt.Scanln(&confirmation)

	if confirmation != "yes" {
		log.Println("Database clearing cancelled.")
		return
	}

	// Ask for specific tables to clear
	var tableNames string
	fmt.Print("Enter table names to clear (comma separated) or leave blank to clear all: ")
	fmt.Scanln(&tableNames)

	var tables []interface{}
	if tableNames != "" {
		for _, table := range strings.Split(tableNames, ",") {
			switch strings.TrimSpace(table) {
			case "Student":
				tables = append(tables, &models.Student{})
			case "Teacher":
				tables = append(tables, &models.Teacher{})
			case "Class":
				tables = append(tables, &models.ClassModel{})
			case "ClassStudent":
				tables = append(tables, &models.ClassStudent{})
			case "ClassTeacher":
				tables = append(tables, &models.ClassTeacher{})
			case "AppointmentSlot":
				tables = append(tables, &models.AppointmentSlot{})
			case "Appointment":
				tables = append(tables, &models.Appointment{})
			case "Session":
				tables = append(tables, &models.Session{})
			case "Exercise":
				tables = append(tables, &models.Exercise{})
			case "SessionExercise":
				tables = append(tables, &models.SessionExercise{})
			case "Attendance":
				tables = append(tables, &models.Attendance{})
			case "MembershipPlan":
				tables = append(tables, &models.MembershipPlan{})
			case "Membership":
				tables = append(tables, &models.Membership{})
			case "Offer":
				tables = append(tables, &models.Offer{})
			case "Payment":
				tables = append(tables, &models.Payment{})
			case "Article":
				tables = append(tables, &models.Article{})
			default:
				log.Printf("Unknown table: %s", table)
			}
		}
	}

	// Clear the specified tables (or all tables if none specified)
	if err := clearDatabase(DB, tables); err != nil {
		log.Fatalf("Error clearing database: %v", err)
	}

	log.Println("Database cleared successfully")
}
