package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"loanPortal/config"
	"loanPortal/controllers"
	"loanPortal/database"
	"loanPortal/middleware"
	"loanPortal/services"
)

// healthHandler проверка доступности сервиса
func healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "ok")
}

func main() {
	// Инициализируем конфигурацию
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	// Загружаем каталог уровней один раз при старте
	catalog, err := config.NewLevelCatalog()
	if err != nil {
		log.Fatalf("Ошибка загрузки каталога уровней: %v", err)
	}

	// Инициализируем подключение к базе данных
	db, err := database.NewDatabase(cfg)
	if err != nil {
		log.Fatalf("Ошибка подключения к базе данных: %v", err)
	}

	// Инициализируем сервисы
	emailService := services.NewEmailService(cfg)
	statusService := services.NewStatusService(cfg.StrictTransitions)
	applicantService := services.NewApplicantService(db.DB, catalog)

	// Создаем роутер
	router := mux.NewRouter()
	router.Use(middleware.RecoveryMiddleware)
	router.Use(middleware.CORSMiddleware)
	router.Use(middleware.RateLimitMiddleware)

	// Инициализируем контроллеры
	authController := controllers.NewAuthController(cfg, applicantService)
	loanController := controllers.NewLoanController(db, catalog, statusService, emailService)

	// Проверка доступности
	router.HandleFunc("/health", healthHandler).Methods("GET")

	// Публичные маршруты для аутентификации
	router.HandleFunc("/api/auth/signUp", authController.SignUp).Methods("POST")
	router.HandleFunc("/api/auth/signIn", authController.SignIn).Methods("POST")

	// Защищенные маршруты
	protected := router.PathPrefix("/api").Subrouter()
	protected.Use(middleware.AuthMiddleware([]byte(authController.GetJWTKey())))
	protected.Use(middleware.LoggingMiddleware)

	// Маршруты заявителя
	protected.HandleFunc("/loans/submit", loanController.SubmitApplication).Methods("POST")
	protected.HandleFunc("/loans/my", loanController.GetMyLoan).Methods("GET")

	// Маршруты сотрудников
	staff := protected.NewRoute().Subrouter()
	staff.Use(middleware.RequireStaff)
	staff.HandleFunc("/loans", loanController.GetLoans).Methods("GET")
	staff.HandleFunc("/loans/{id:[0-9]+}", loanController.GetLoan).Methods("GET")
	staff.HandleFunc("/loans/{id:[0-9]+}", loanController.UpdateLoan).Methods("PATCH")
	staff.HandleFunc("/loans/{id:[0-9]+}/receipt", loanController.GetReceipt).Methods("GET")
	staff.HandleFunc("/metrics", loanController.GetMetrics).Methods("GET")

	// Запускаем сервер
	port := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Сервер запущен на порту %s", port)
	if err := http.ListenAndServe(port, router); err != nil {
		log.Fatalf("Ошибка запуска сервера: %v", err)
	}
}
