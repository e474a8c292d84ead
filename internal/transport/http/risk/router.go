package riskhttp

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"propguard/internal/ingest"
	"propguard/internal/report"
	"propguard/internal/store"
	"propguard/internal/store/sweeplog"
	"propguard/internal/sweep"
	"propguard/internal/types"
)

// SweepRunner triggers one full sweep and records its outcome.
type SweepRunner interface {
	RunSweep(ctx context.Context) (*sweep.BatchResult, error)
}

// ResetRunner triggers the start-of-day equity reset.
type ResetRunner interface {
	Run(ctx context.Context) (*sweep.ResetResult, error)
}

// Ingester pulls and evaluates one account's trades.
type Ingester interface {
	IngestAccount(ctx context.Context, accountID string) (*ingest.Result, error)
}

// Router exposes the risk engine query and trigger endpoints.
type Router struct {
	Store    store.Store
	SweepLog *sweeplog.Store
	Sweeper  SweepRunner
	Reset    ResetRunner
	Ingester Ingester
}

// Register mounts the routes under the given group.
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.GET("/sweeps", r.handleListSweeps)
	group.GET("/accounts/:id", r.handleAccount)
	group.GET("/accounts/:id/trades", r.handleAccountTrades)
	group.GET("/accounts/:id/violations", r.handleAccountViolations)
	group.GET("/violations", r.handleRecentViolations)
	group.POST("/accounts", r.handleRegisterAccount)
	group.GET("/report/chart", r.handleSweepChart)
	if r.Sweeper != nil {
		group.POST("/sweep", r.handleTriggerSweep)
	}
	if r.Reset != nil {
		group.POST("/reset", r.handleTriggerReset)
	}
	if r.Ingester != nil {
		group.POST("/accounts/:id/ingest", r.handleIngestAccount)
	}
}

// handleTriggerSweep runs a sweep inline and reports its summary. A sweep
// never fails as a whole, so the response is 200 even when every account
// errored; the summary carries the counts.
func (r *Router) handleTriggerSweep(c *gin.Context) {
	result, err := r.Sweeper.RunSweep(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (r *Router) handleTriggerReset(c *gin.Context) {
	result, err := r.Reset.Run(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (r *Router) handleIngestAccount(c *gin.Context) {
	result, err := r.Ingester.IngestAccount(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (r *Router) handleListSweeps(c *gin.Context) {
	if r.SweepLog == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "sweep log not enabled"})
		return
	}
	limit := parseLimit(c, 50, 500)
	records, err := r.SweepLog.ListRecent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sweeps": records, "count": len(records)})
}

func (r *Router) handleAccount(c *gin.Context) {
	account, err := r.Store.Accounts().FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if account == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "account not found"})
		return
	}
	c.JSON(http.StatusOK, accountView(account))
}

func (r *Router) handleAccountTrades(c *gin.Context) {
	limit := parseLimit(c, 100, 1000)
	trades, err := r.Store.Trades().ListByAccount(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	views := make([]tradeDTO, len(trades))
	for i, t := range trades {
		views[i] = tradeView(t)
	}
	c.JSON(http.StatusOK, gin.H{"trades": views, "count": len(views)})
}

func (r *Router) handleAccountViolations(c *gin.Context) {
	limit := parseLimit(c, 100, 1000)
	flags, err := r.Store.Violations().ListByAccount(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	views := make([]violationDTO, len(flags))
	for i, f := range flags {
		views[i] = violationView(f)
	}
	c.JSON(http.StatusOK, gin.H{"violations": views, "count": len(views)})
}

func (r *Router) handleRecentViolations(c *gin.Context) {
	limit := parseLimit(c, 100, 1000)
	flags, err := r.Store.Violations().ListRecent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	views := make([]violationDTO, len(flags))
	for i, f := range flags {
		views[i] = violationView(f)
	}
	c.JSON(http.StatusOK, gin.H{"violations": views, "count": len(views)})
}

// registerAccountRequest is the payload to enroll an account. Status is
// forced to active; operators flip states through their own tooling, not
// through this endpoint.
type registerAccountRequest struct {
	ID             string         `json:"id"`
	Login          int64          `json:"login" binding:"required"`
	ChallengeType  string         `json:"challenge_type"`
	MT5Group       string         `json:"mt5_group"`
	InitialBalance float64        `json:"initial_balance" binding:"required"`
	Leverage       float64        `json:"leverage"`
	Metadata       map[string]any `json:"metadata"`
}

func (r *Router) handleRegisterAccount(c *gin.Context) {
	var req registerAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = strconv.FormatInt(req.Login, 10)
	}
	account := &types.Account{
		ID:               id,
		Login:            req.Login,
		ChallengeType:    req.ChallengeType,
		MT5Group:         req.MT5Group,
		InitialBalance:   req.InitialBalance,
		CurrentBalance:   req.InitialBalance,
		CurrentEquity:    req.InitialBalance,
		StartOfDayEquity: req.InitialBalance,
		Status:           types.AccountActive,
		Leverage:         req.Leverage,
		Metadata:         req.Metadata,
	}
	if err := r.Store.Accounts().Save(c.Request.Context(), account); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, accountView(account))
}

func (r *Router) handleSweepChart(c *gin.Context) {
	if r.SweepLog == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "sweep log not enabled"})
		return
	}
	limit := parseLimit(c, 48, 500)
	records, err := r.SweepLog.ListRecent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	var buf bytes.Buffer
	if err := report.RenderSweepHistory(&buf, records); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func parseLimit(c *gin.Context, def, max int) int {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(def)))
	if limit <= 0 {
		limit = def
	}
	if limit > max {
		limit = max
	}
	return limit
}

type accountDTO struct {
	ID               string         `json:"id"`
	Login            int64          `json:"login"`
	ChallengeType    string         `json:"challenge_type"`
	MT5Group         string         `json:"mt5_group"`
	InitialBalance   float64        `json:"initial_balance"`
	CurrentBalance   float64        `json:"current_balance"`
	CurrentEquity    float64        `json:"current_equity"`
	StartOfDayEquity float64        `json:"start_of_day_equity"`
	SODResetDay      string         `json:"sod_reset_day,omitempty"`
	Status           string         `json:"status"`
	Leverage         float64        `json:"leverage,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

func accountView(a *types.Account) accountDTO {
	return accountDTO{
		ID:               a.ID,
		Login:            a.Login,
		ChallengeType:    a.ChallengeType,
		MT5Group:         a.MT5Group,
		InitialBalance:   a.InitialBalance,
		CurrentBalance:   a.CurrentBalance,
		CurrentEquity:    a.CurrentEquity,
		StartOfDayEquity: a.StartOfDayEquity,
		SODResetDay:      a.SODResetDay,
		Status:           string(a.Status),
		Leverage:         a.Leverage,
		Metadata:         a.Metadata,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
}

type tradeDTO struct {
	Ticket     int64      `json:"ticket"`
	Symbol     string     `json:"symbol"`
	Side       string     `json:"side"`
	Lots       float64    `json:"lots"`
	OpenPrice  float64    `json:"open_price"`
	ClosePrice float64    `json:"close_price,omitempty"`
	OpenTime   time.Time  `json:"open_time"`
	CloseTime  *time.Time `json:"close_time,omitempty"`
	ProfitLoss float64    `json:"profit_loss"`
	Commission float64    `json:"commission"`
	Swap       float64    `json:"swap"`
	Open       bool       `json:"open"`
}

func tradeView(t types.Trade) tradeDTO {
	dto := tradeDTO{
		Ticket:     t.Ticket,
		Symbol:     t.Symbol,
		Side:       string(t.Side),
		Lots:       t.Lots,
		OpenPrice:  t.OpenPrice,
		ClosePrice: t.ClosePrice,
		OpenTime:   t.OpenTime,
		ProfitLoss: t.ProfitLoss,
		Commission: t.Commission,
		Swap:       t.Swap,
		Open:       t.IsOpen(),
	}
	if !t.CloseTime.IsZero() {
		ct := t.CloseTime
		dto.CloseTime = &ct
	}
	return dto
}

type violationDTO struct {
	ID          string         `json:"id"`
	AccountID   string         `json:"account_id"`
	FlagType    string         `json:"flag_type"`
	Severity    string         `json:"severity"`
	Ticket      int64          `json:"ticket,omitempty"`
	Description string         `json:"description"`
	Details     map[string]any `json:"details,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

func violationView(f types.ViolationFlag) violationDTO {
	return violationDTO{
		ID:          f.ID,
		AccountID:   f.AccountID,
		FlagType:    string(f.FlagType),
		Severity:    string(f.Severity),
		Ticket:      f.Ticket,
		Description: f.Description,
		Details:     f.Details,
		CreatedAt:   f.CreatedAt,
	}
}
