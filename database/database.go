package database

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"loanPortal/config"
	"loanPortal/models"
)

// Database представляет подключение к базе данных
type Database struct {
	DB *gorm.DB
}

// NewDatabase устанавливает соединение с базой данных и выполняет миграции
func NewDatabase(cfg *config.Config) (*Database, error) {
	// Формируем строку подключения
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.DB.Host,
		cfg.DB.Port,
		cfg.DB.User,
		cfg.DB.Password,
		cfg.DB.DBName,
	)

	// Настраиваем логгер
	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Info,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	// Устанавливаем соединение
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: newLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к базе данных: %v", err)
	}

	// Настраиваем пул соединений
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("ошибка получения пула соединений: %v", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// Выполняем SQL миграции
	if err := runMigrations(cfg); err != nil {
		return nil, fmt.Errorf("ошибка выполнения SQL миграций: %v", err)
	}

	// Выполняем автоматическую миграцию моделей
	if err := autoMigrate(db); err != nil {
		return nil, fmt.Errorf("ошибка автоматической миграции моделей: %v", err)
	}

	return &Database{DB: db}, nil
}

// GetDB возвращает экземпляр GORM
func (d *Database) GetDB() *gorm.DB {
	return d.DB
}

// Close закрывает подключение к базе данных
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// runMigrations выполняет SQL миграции
func runMigrations(cfg *config.Config) error {
	// Формируем URL для миграций
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.DB.User,
		cfg.DB.Password,
		cfg.DB.Host,
		cfg.DB.Port,
		cfg.DB.DBName,
	)

	// Создаем экземпляр миграции
	m, err := migrate.New(
		"file://migrations",
		dsn,
	)
	if err != nil {
		return fmt.Errorf("ошибка создания миграции: %v", err)
	}

	// Выполняем миграции
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("ошибка выполнения миграций: %v", err)
	}

	return nil
}

// autoMigrate выполняет автоматическую миграцию моделей
func autoMigrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Applicant{},
		&models.LoanApplication{},
	)
	if err != nil {
		return fmt.Errorf("ошибка автоматической миграции: %v", err)
	}

	return nil
}

// Методы для работы с пользователями

func (d *Database) CreateApplicant(applicant *models.Applicant) error {
	return d.DB.Create(applicant).Error
}

func (d *Database) GetApplicantByID(id uint) (*models.Applicant, error) {
	var applicant models.Applicant
	err := d.DB.First(&applicant, id).Error
	return &applicant, err
}

func (d *Database) GetApplicantByEmail(email string) (*models.Applicant, error) {
	var applicant models.Applicant
	err := d.DB.Where("email = ?", email).First(&applicant).Error
	return &applicant, err
}

// Методы для работы с заявками. Database реализует интерфейс
// services.LoanRepository: поиск по идентификатору и запись целиком
// объединенного документа.

// FindLoanByID возвращает заявку по ID
func (d *Database) FindLoanByID(id uint) (*models.LoanApplication, error) {
	var loan models.LoanApplication
	if err := d.DB.Preload("Applicant").First(&loan, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrLoanNotFound
		}
		return nil, err
	}
	return &loan, nil
}

// FindLoanByApplicantID возвращает заявку по ID заявителя
func (d *Database) FindLoanByApplicantID(applicantID uint) (*models.LoanApplication, error) {
	var loan models.LoanApplication
	if err := d.DB.Preload("Applicant").Where("applicant_id = ?", applicantID).First(&loan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrLoanNotFound
		}
		return nil, err
	}
	return &loan, nil
}

// FindAllLoans возвращает все заявки
func (d *Database) FindAllLoans() ([]models.LoanApplication, error) {
	var loans []models.LoanApplication
	if err := d.DB.Preload("Applicant").Order("created_at DESC").Find(&loans).Error; err != nil {
		return nil, err
	}
	return loans, nil
}

// SaveLoan сохраняет объединенный документ заявки одной записью
func (d *Database) SaveLoan(loan *models.LoanApplication) error {
	return d.DB.Save(loan).Error
}
