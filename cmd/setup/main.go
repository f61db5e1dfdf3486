package main

import (
	"context"
	"flag"
	"fmt"

	"microtask-ledger-go/internal/common"
	"microtask-ledger-go/internal/config"
	"microtask-ledger-go/internal/database"
	"microtask-ledger-go/internal/models"
	"microtask-ledger-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// seedSettings writes the admin settings row from the settings file
func seedSettings(ctx context.Context, dbService *database.Service, settingsFile string) (*common.PlatformSettings, error) {
	zap.L().Info("Loading platform settings", zap.String("file", settingsFile))
	settings, err := common.LoadSettings(settingsFile)
	if err != nil {
		return nil, err
	}

	if err := dbService.SaveSettings(ctx, settings.CommissionRate, settings.MinAmount); err != nil {
		return nil, err
	}

	zap.L().Info("Platform settings saved",
		zap.String("commission_rate", settings.CommissionRate.String()),
		zap.String("min_amount", settings.MinAmount.String()))
	return settings, nil
}

// seedDemoTask creates an open task owned by the first employer with one pending submission per worker
func seedDemoTask(ctx context.Context, dbService *database.Service) error {
	users, err := dbService.GetUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to read users: %w", err)
	}

	var employer *models.User
	var workers []models.User
	for i := range users {
		switch users[i].Role {
		case models.RoleEmployer:
			if employer == nil {
				employer = &users[i]
			}
		case models.RoleWorker:
			workers = append(workers, users[i])
		}
	}
	if employer == nil || len(workers) == 0 {
		zap.L().Warn("Skipping demo task: need at least one employer and one worker")
		return nil
	}

	task, err := dbService.CreateTask(ctx, store.CreateTaskParams{
		Id:           uuid.New().String(),
		EmployerId:   employer.Id,
		Title:        "Categorize product photos",
		Price:        decimal.NewFromInt(10),
		CurrencyType: models.CurrencyUSD,
		TotalSlots:   len(workers) + 1,
	})
	if err != nil {
		return err
	}

	for _, w := range workers {
		sub, err := dbService.CreateSubmission(ctx, store.CreateSubmissionParams{
			Id:       uuid.New().String(),
			TaskId:   task.Id,
			WorkerId: w.Id,
		})
		if err != nil {
			return err
		}
		zap.L().Info("Created demo submission",
			zap.String("submission_id", sub.Id),
			zap.String("worker", w.Name))
	}

	zap.L().Info("Created demo task",
		zap.String("task_id", task.Id),
		zap.String("employer", employer.Name),
		zap.String("price", task.Price.String()))
	return nil
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	demoFlag := flag.Bool("demo", false, "Create demo users and a demo task")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}
	if *demoFlag {
		cfg.Database.CreateDummyUsers = true
	}

	zap.L().Info("Setting up SQLite database", zap.String("path", cfg.Database.Path))
	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	settings, err := seedSettings(ctx, dbService, cfg.Database.SettingsFile)
	if err != nil {
		zap.L().Fatal("Failed to seed settings", zap.Error(err))
	}

	if err := dbService.EnsureAdminWallets(ctx, settings.Currencies); err != nil {
		zap.L().Fatal("Failed to create admin wallets", zap.Error(err))
	}
	zap.L().Info("Admin wallets ready", zap.Int("currencies", len(settings.Currencies)))

	if *demoFlag {
		if err := seedDemoTask(ctx, dbService); err != nil {
			zap.L().Fatal("Failed to create demo task", zap.Error(err))
		}
	}

	zap.L().Info("Initialization complete")
}
