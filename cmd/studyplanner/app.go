package main

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"study-planner/internal/config"
	"study-planner/internal/logger"
	"study-planner/internal/repository"
	"study-planner/internal/service"
)

// app holds the wired dependencies shared by every command.
type app struct {
	cfg config.Config
	log *zap.Logger
	db  *gorm.DB

	users    *repository.UserRepository
	courses  *service.CourseService
	tasks    *service.TaskService
	workload *service.WorkloadService
	reminder *service.ReminderService
	projects *service.ProjectService
}

func loadApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	db, err := repository.NewDB(cfg.DatabaseURL, log)
	if err != nil {
		return nil, err
	}

	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	projectRepo := repository.NewProjectRepository(db)

	return &app{
		cfg:      cfg,
		log:      log,
		db:       db,
		users:    userRepo,
		courses:  service.NewCourseService(courseRepo, cfg.Location, log.Named("course")),
		tasks:    service.NewTaskService(taskRepo, courseRepo, log.Named("task")),
		workload: service.NewWorkloadService(taskRepo, cfg.Location),
		reminder: service.NewReminderService(taskRepo, courseRepo, cfg.Location),
		projects: service.NewProjectService(projectRepo, courseRepo, userRepo, log.Named("project")),
	}, nil
}

func (a *app) Close() {
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = a.log.Sync()
}
