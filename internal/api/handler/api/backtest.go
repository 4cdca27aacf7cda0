// internal/api/handler/api/backtest.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/newthinker/tradelab/internal/api/job"
	"github.com/newthinker/tradelab/internal/api/response"
	"github.com/newthinker/tradelab/internal/backtest"
	"github.com/newthinker/tradelab/internal/core"
	"github.com/newthinker/tradelab/internal/strategy"
	"go.uber.org/zap"
)

const (
	defaultBacktestTimeout = 5 * time.Minute
	jobTypeBacktest        = "backtest"
	dateLayout             = "2006-01-02"
)

// BacktestRequest is the request body for starting a backtest.
type BacktestRequest struct {
	Symbol       string         `json:"symbol"`
	Strategy     string         `json:"strategy"`
	Start        string         `json:"start"`
	End          string         `json:"end"`
	Interval     string         `json:"interval,omitempty"`
	Params       map[string]any `json:"params,omitempty"`
	StartingCash *float64       `json:"starting_cash,omitempty"`
	WholeShares  *bool          `json:"whole_shares,omitempty"`
}

// JobGauge receives the number of unfinished jobs per type.
type JobGauge interface {
	SetJobsActive(jobType string, count int)
}

// BacktestHandler handles backtest API requests.
type BacktestHandler struct {
	jobStore   *job.Store
	backtester *backtest.Backtester
	strategies *strategy.Registry
	gauge      JobGauge
	timeout    time.Duration
	logger     *zap.Logger
}

// NewBacktestHandler creates a new backtest handler.
func NewBacktestHandler(
	jobStore *job.Store,
	backtester *backtest.Backtester,
	strategies *strategy.Registry,
	logger *zap.Logger,
) *BacktestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BacktestHandler{
		jobStore:   jobStore,
		backtester: backtester,
		strategies: strategies,
		timeout:    defaultBacktestTimeout,
		logger:     logger,
	}
}

// WithTimeout sets the per-job timeout and returns h.
func (h *BacktestHandler) WithTimeout(d time.Duration) *BacktestHandler {
	if d > 0 {
		h.timeout = d
	}
	return h
}

// WithGauge reports active job counts to g and returns h.
func (h *BacktestHandler) WithGauge(g JobGauge) *BacktestHandler {
	h.gauge = g
	return h
}

// Create validates the request, builds a fresh decider and starts a backtest job.
func (h *BacktestHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req BacktestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest,
			core.WrapError(core.ErrConfigInvalid, err))
		return
	}

	// Validate required fields
	if req.Symbol == "" || req.Strategy == "" {
		response.Error(w, http.StatusBadRequest,
			core.WrapError(core.ErrConfigMissing, errors.New("symbol and strategy are required")))
		return
	}

	// Parse dates
	start, err := time.Parse(dateLayout, req.Start)
	if err != nil {
		response.Error(w, http.StatusBadRequest,
			core.WrapError(core.ErrConfigInvalid, fmt.Errorf("start: %w", err)))
		return
	}
	end, err := time.Parse(dateLayout, req.End)
	if err != nil {
		response.Error(w, http.StatusBadRequest,
			core.WrapError(core.ErrConfigInvalid, fmt.Errorf("end: %w", err)))
		return
	}
	if end.Before(start) {
		response.Error(w, http.StatusBadRequest,
			core.WrapError(core.ErrConfigInvalid, errors.New("end must not be before start")))
		return
	}

	bt, err := h.backtesterFor(req)
	if err != nil {
		response.Error(w, response.StatusFor(err), err)
		return
	}

	// A fresh decider per job keeps strategy state isolated between runs
	decider, err := h.strategies.New(req.Strategy, req.Params)
	if err != nil {
		response.Error(w, http.StatusBadRequest, err)
		return
	}

	j := h.jobStore.Create(jobTypeBacktest)
	h.reportActive()

	btReq := backtest.Request{
		Symbol:   req.Symbol,
		Start:    start,
		End:      end,
		Interval: req.Interval,
	}
	go h.runBacktest(j.ID, bt, btReq, req.Strategy, decider)

	response.JSON(w, http.StatusAccepted, map[string]any{
		"job_id": j.ID,
		"status": j.Status,
	})
}

// backtesterFor applies per-request engine overrides
func (h *BacktestHandler) backtesterFor(req BacktestRequest) (*backtest.Backtester, error) {
	if req.StartingCash == nil && req.WholeShares == nil {
		return h.backtester, nil
	}
	cfg := h.backtester.Engine().Config()
	if req.StartingCash != nil {
		cfg.StartingCash = *req.StartingCash
	}
	if req.WholeShares != nil {
		cfg.WholeShares = *req.WholeShares
	}
	engine, err := h.backtester.Engine().WithConfig(cfg)
	if err != nil {
		return nil, err
	}
	return h.backtester.WithEngine(engine), nil
}

// runBacktest executes the backtest and updates job status.
func (h *BacktestHandler) runBacktest(
	jobID string,
	bt *backtest.Backtester,
	req backtest.Request,
	strategyName string,
	decider backtest.Decider,
) {
	defer h.reportActive()

	// Mark as running
	h.jobStore.Update(jobID, func(j *job.Job) {
		j.Status = job.StatusRunning
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()
	result, err := bt.Run(ctx, req, strategyName, decider)

	if err != nil {
		h.logger.Warn("backtest job failed",
			zap.String("job_id", jobID),
			zap.String("strategy", strategyName),
			zap.Error(err),
		)
		h.jobStore.Update(jobID, func(j *job.Job) {
			j.Status = job.StatusFailed
			j.Error = asCoreError(err)
		})
		return
	}

	h.jobStore.Update(jobID, func(j *job.Job) {
		j.Status = job.StatusComplete
		j.Progress = 100
		j.Result = result
	})
}

// GetStatus returns the status of a backtest job.
func (h *BacktestHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	j, err := h.jobStore.Get(jobID)
	if err != nil {
		response.Error(w, http.StatusNotFound, err)
		return
	}

	resp := map[string]any{
		"job_id":   j.ID,
		"status":   j.Status,
		"progress": j.Progress,
	}

	if j.Status == job.StatusComplete {
		resp["result"] = j.Result
	}
	if j.Status == job.StatusFailed && j.Error != nil {
		resp["error"] = response.Detail(j.Error)
	}

	response.JSON(w, http.StatusOK, resp)
}

func (h *BacktestHandler) reportActive() {
	if h.gauge != nil {
		h.gauge.SetJobsActive(jobTypeBacktest, h.jobStore.Active(jobTypeBacktest))
	}
}

// asCoreError keeps typed failures and labels anything else internal
func asCoreError(err error) *core.Error {
	var ce *core.Error
	if errors.As(err, &ce) {
		return ce
	}
	return &core.Error{Code: "INTERNAL_ERROR", Message: "backtest failed", Cause: err}
}
