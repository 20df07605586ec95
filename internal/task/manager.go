package task

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Manager loads and parses Task definitions.
type Manager struct {
	logger *zap.Logger
}

// TaskConfig represents the structure of tasks YAML file
type TaskConfig struct {
	Tasks []struct {
		TaskName        string  `yaml:"task_name"`
		Wallet          string  `yaml:"wallet"`
		Operation       string  `yaml:"operation"`
		Token           string  `yaml:"token"`
		Curve           string  `yaml:"curve"`
		AmountSol       float64 `yaml:"amount_sol"`
		AmountTokens    float64 `yaml:"amount_tokens"`
		PercentToSell   float64 `yaml:"percent_to_sell"`
		SlippagePercent float64 `yaml:"slippage_percent"`
		Repeat          int     `yaml:"repeat"`
	} `yaml:"tasks"`
}

// NewManager constructs a Manager with the given logger.
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{logger: logger.Named("tasks")}
}

func parseOperation(s string) (OperationType, error) {
	op := OperationType(strings.ToLower(strings.TrimSpace(s)))
	switch op {
	case OperationCreate, OperationBuy, OperationSell, OperationMigrate, OperationHarvest:
		return op, nil
	default:
		return "", fmt.Errorf("unsupported operation: %q", s)
	}
}

func clamp(val, min, max, def float64) float64 {
	if val < min || val > max {
		return def
	}
	return val
}

// LoadTasksYAML reads tasks from YAML file. Invalid entries are skipped with a warning.
func (m *Manager) LoadTasksYAML(path string) ([]*Task, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return m.ParseTasks(data)
}

// ParseTasks parses the YAML body of a tasks file.
func (m *Manager) ParseTasks(data []byte) ([]*Task, error) {
	var config TaskConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if len(config.Tasks) == 0 {
		return nil, fmt.Errorf("no tasks found in configuration")
	}

	tasks := make([]*Task, 0, len(config.Tasks))
	for i, taskData := range config.Tasks {
		op, err := parseOperation(taskData.Operation)
		if err != nil {
			m.logger.Warn("Skipping invalid task", zap.String("task_name", taskData.TaskName), zap.Error(err))
			continue
		}

		repeat := taskData.Repeat
		if repeat == 0 {
			repeat = 1
		}

		task := &Task{
			ID:              i,
			TaskName:        taskData.TaskName,
			WalletName:      taskData.Wallet,
			Operation:       op,
			Token:           taskData.Token,
			Curve:           taskData.Curve,
			AmountSol:       taskData.AmountSol,
			AmountTokens:    taskData.AmountTokens,
			PercentToSell:   taskData.PercentToSell,
			SlippagePercent: clamp(taskData.SlippagePercent, 0, 100, 1.0),
			Repeat:          repeat,
			CreatedAt:       time.Now(),
		}

		if err := task.Validate(); err != nil {
			m.logger.Warn("Skipping task", zap.String("task_name", task.TaskName), zap.Error(err))
			continue
		}

		tasks = append(tasks, task)
	}

	if len(tasks) == 0 {
		return nil, fmt.Errorf("no valid tasks loaded")
	}

	m.logger.Info("Loaded tasks", zap.Int("count", len(tasks)))
	return tasks, nil
}
