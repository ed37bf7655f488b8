// =============================================
// File: internal/task/manager.go
// =============================================
package task

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Manager loads and parses Task definitions.
type Manager struct {
	logger *zap.Logger
}

// taskFile represents the structure of the tasks YAML file.
type taskFile struct {
	Tasks []struct {
		TaskName        string  `yaml:"task_name"`
		Wallet          string  `yaml:"wallet"`
		Operation       string  `yaml:"operation"`
		AmountSol       float64 `yaml:"amount_sol"`
		PercentToSell   float64 `yaml:"percent_to_sell"`
		SlippagePercent float64 `yaml:"slippage_percent"`
		PriorityFee     uint64  `yaml:"priority_fee"`
		ComputeUnits    uint32  `yaml:"compute_units"`
		TokenMint       string  `yaml:"token_mint"`
	} `yaml:"tasks"`
}

// NewManager constructs a Manager with the given logger.
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{logger: logger.Named("tasks")}
}

// LoadTasks reads tasks from the given file; format is chosen by extension
// (.yaml/.yml or .csv).
func (m *Manager) LoadTasks(path string) ([]*Task, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return m.LoadTasksYAML(path)
	default:
		return m.LoadTasksCSV(path)
	}
}

// LoadTasksYAML reads tasks from a YAML file.
func (m *Manager) LoadTasksYAML(path string) ([]*Task, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var file taskFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	tasks := make([]*Task, 0, len(file.Tasks))
	for i, raw := range file.Tasks {
		t := &Task{
			ID:              i,
			TaskName:        raw.TaskName,
			WalletName:      raw.Wallet,
			Operation:       OperationType(raw.Operation),
			AmountSol:       raw.AmountSol,
			PercentToSell:   raw.PercentToSell,
			SlippagePercent: raw.SlippagePercent,
			PriorityFee:     raw.PriorityFee,
			ComputeUnits:    raw.ComputeUnits,
			TokenMint:       raw.TokenMint,
			CreatedAt:       time.Now(),
		}
		if err := t.Validate(); err != nil {
			m.logger.Warn("Skipping invalid task",
				zap.String("task_name", raw.TaskName),
				zap.Error(err))
			continue
		}
		tasks = append(tasks, t)
	}

	return m.finish(tasks)
}

// LoadTasksCSV reads tasks from a CSV file.
// CSV format: task_name,wallet,operation,amount,slippage_percent,priority_fee,token_mint[,compute_units[,percent_to_sell]]
// For buy operations, amount = SOL to spend.
// For sell operations, amount = number of tokens to sell (0 with percent_to_sell set sells a share of the balance).
func (m *Manager) LoadTasksCSV(path string) ([]*Task, error) {
	m.logger.Debug("Loading tasks", zap.String("path", path))

	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open file error: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read CSV error: %w", err)
	}

	if len(records) < 2 {
		return nil, fmt.Errorf("no tasks found (need header + at least one task)")
	}

	// Process records (skip header)
	tasks := make([]*Task, 0, len(records)-1)
	for i, row := range records[1:] {
		if len(row) < 7 {
			m.logger.Warn("Skipping row with insufficient columns",
				zap.Int("row", i+2),
				zap.Int("columns", len(row)))
			continue
		}

		amount, err := strconv.ParseFloat(row[3], 64)
		if err != nil {
			m.logger.Warn("Invalid amount value", zap.String("value", row[3]), zap.Error(err))
			continue
		}

		slippage, err := strconv.ParseFloat(row[4], 64)
		if err != nil {
			m.logger.Warn("Invalid slippage_percent value", zap.String("value", row[4]), zap.Error(err))
			continue
		}

		var priorityFee uint64
		if row[5] != "" {
			priorityFee, err = strconv.ParseUint(row[5], 10, 64)
			if err != nil {
				m.logger.Warn("Invalid priority_fee value", zap.String("value", row[5]), zap.Error(err))
				continue
			}
		}

		var computeUnits uint32
		if len(row) > 7 && row[7] != "" {
			cu, err := strconv.ParseUint(row[7], 10, 32)
			if err != nil {
				m.logger.Warn("Invalid compute_units value", zap.String("value", row[7]), zap.Error(err))
			} else {
				computeUnits = uint32(cu)
			}
		}

		var percentToSell float64
		if len(row) > 8 && row[8] != "" {
			percentToSell, err = strconv.ParseFloat(row[8], 64)
			if err != nil {
				m.logger.Warn("Invalid percent_to_sell value", zap.String("value", row[8]), zap.Error(err))
				percentToSell = 0
			}
		}

		t := &Task{
			ID:              i,
			TaskName:        row[0],
			WalletName:      row[1],
			Operation:       OperationType(row[2]),
			AmountSol:       amount,
			PercentToSell:   percentToSell,
			SlippagePercent: slippage,
			PriorityFee:     priorityFee,
			ComputeUnits:    computeUnits,
			TokenMint:       row[6],
			CreatedAt:       time.Now(),
		}
		if err := t.Validate(); err != nil {
			m.logger.Warn("Skipping invalid task",
				zap.Int("row", i+2),
				zap.String("task_name", t.TaskName),
				zap.Error(err))
			continue
		}
		tasks = append(tasks, t)
	}

	return m.finish(tasks)
}

func (m *Manager) finish(tasks []*Task) ([]*Task, error) {
	if len(tasks) == 0 {
		return nil, fmt.Errorf("no valid tasks loaded")
	}
	m.logger.Info("Tasks loaded successfully", zap.Int("count", len(tasks)))
	return tasks, nil
}
