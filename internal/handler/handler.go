package handler

import (
	"errors"
	"strconv"
	"time"

	"campuswallet/internal/config"
	"campuswallet/internal/infrastructure/lock"
	"campuswallet/internal/repository"
	"campuswallet/internal/service"
	"campuswallet/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Handler is the thin HTTP surface over the ledger engine. The platform's
// API layer has already authenticated callers and resolved account ids by
// the time requests arrive here; handlers only bind, delegate and map
// errors to business codes.
type Handler struct {
	cfg             *config.Config
	accountService  *service.AccountService
	walletService   *service.WalletService
	transferService *service.TransferService
	statsService    *service.StatsService
}

func NewHandler(db *gorm.DB, locks lock.Manager, cfg *config.Config) *Handler {
	return &Handler{
		cfg:             cfg,
		accountService:  service.NewAccountService(db),
		walletService:   service.NewWalletService(db, locks, cfg),
		transferService: service.NewTransferService(db, locks, cfg),
		statsService:    service.NewStatsService(db),
	}
}

// writeError maps ledger errors onto the response envelope.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrAccountNotFound):
		response.BusinessError(c, response.CodeAccountNotFound, err.Error())
	case errors.Is(err, service.ErrAccountInactive):
		response.BusinessError(c, response.CodeAccountInactive, err.Error())
	case errors.Is(err, service.ErrInvalidAmount):
		response.BusinessError(c, response.CodeInvalidAmount, err.Error())
	case errors.Is(err, service.ErrInsufficientBalance):
		response.BusinessError(c, response.CodeInsufficientBalance, err.Error())
	case errors.Is(err, service.ErrRecipientNotFound):
		response.BusinessError(c, response.CodeRecipientNotFound, err.Error())
	case errors.Is(err, service.ErrRecipientInactive):
		response.BusinessError(c, response.CodeRecipientInactive, err.Error())
	case errors.Is(err, service.ErrSelfTransfer):
		response.BusinessError(c, response.CodeSelfTransfer, err.Error())
	case errors.Is(err, repository.ErrEntryNotFound):
		response.BusinessError(c, response.CodeEntryNotFound, err.Error())
	case errors.Is(err, repository.ErrEntryStatusInvalid):
		response.ParamError(c, err.Error())
	case service.IsRetryable(err):
		response.BusinessError(c, response.CodeBusy, "system busy, please retry")
	default:
		response.ServerError(c, err.Error())
	}
}

// ============================================================
// Account endpoints
// ============================================================

// CreateAccount onboards a wallet account with a zero balance.
// POST /api/v1/account/create
func (h *Handler) CreateAccount(c *gin.Context) {
	var req struct {
		AccountID string `json:"account_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request: "+err.Error())
		return
	}

	account, err := h.accountService.Create(c.Request.Context(), req.AccountID)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, account)
}

// SetAccountActive soft-deactivates or reactivates an account.
// POST /api/v1/account/active
func (h *Handler) SetAccountActive(c *gin.Context) {
	var req struct {
		AccountID string `json:"account_id" binding:"required"`
		Active    *bool  `json:"active" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request: "+err.Error())
		return
	}

	if err := h.accountService.SetActive(c.Request.Context(), req.AccountID, *req.Active); err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, gin.H{"account_id": req.AccountID, "active": *req.Active})
}

// GetBalance is the non-locking balance read.
// GET /api/v1/wallet/balance?account_id=xxx
func (h *Handler) GetBalance(c *gin.Context) {
	accountID := c.Query("account_id")
	if accountID == "" {
		response.ParamError(c, "account_id is required")
		return
	}

	balance, err := h.accountService.GetBalance(c.Request.Context(), accountID)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, gin.H{
		"account_id": accountID,
		"balance":    balance.StringFixed(2),
	})
}

// ============================================================
// Wallet endpoints
// ============================================================

// TopUpRequest credits an account. Amount accepts a JSON number or string.
type TopUpRequest struct {
	AccountID   string          `json:"account_id" binding:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	OperatorRef string          `json:"operator_ref"`
}

// TopUp credits an account.
// POST /api/v1/wallet/topup
func (h *Handler) TopUp(c *gin.Context) {
	var req TopUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request: "+err.Error())
		return
	}

	entry, err := h.walletService.Credit(c.Request.Context(), &service.CreditRequest{
		AccountID:   req.AccountID,
		Amount:      req.Amount,
		Description: req.Description,
		OperatorRef: req.OperatorRef,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, entry)
}

type PurchaseRequest struct {
	AccountID   string          `json:"account_id" binding:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Reference   string          `json:"reference"`
}

// Purchase debits an account for a canteen payment.
// POST /api/v1/wallet/purchase
func (h *Handler) Purchase(c *gin.Context) {
	var req PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request: "+err.Error())
		return
	}

	entry, err := h.walletService.Debit(c.Request.Context(), &service.DebitRequest{
		AccountID:   req.AccountID,
		Amount:      req.Amount,
		Description: req.Description,
		Reference:   req.Reference,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, entry)
}

type TransferRequest struct {
	SenderID    string          `json:"sender_id" binding:"required"`
	RecipientID string          `json:"recipient_id" binding:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

// Transfer moves funds between two wallets atomically.
// POST /api/v1/wallet/transfer
func (h *Handler) Transfer(c *gin.Context) {
	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request: "+err.Error())
		return
	}

	result, err := h.transferService.Transfer(c.Request.Context(), &service.TransferRequest{
		SenderID:    req.SenderID,
		RecipientID: req.RecipientID,
		Amount:      req.Amount,
		Description: req.Description,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, gin.H{
		"transfer_no":     result.TransferNo,
		"sender_entry":    result.SenderEntry,
		"recipient_entry": result.RecipientEntry,
	})
}

// History lists an account's ledger entries, newest first.
// GET /api/v1/wallet/history?account_id=xxx&kind=&status=&from=&to=&page=1&page_size=20
func (h *Handler) History(c *gin.Context) {
	accountID := c.Query("account_id")
	if accountID == "" {
		response.ParamError(c, "account_id is required")
		return
	}

	filter := repository.HistoryFilter{
		Kind:   c.Query("kind"),
		Status: c.Query("status"),
	}
	var ok bool
	if filter.From, ok = parseTimeParam(c, "from"); !ok {
		return
	}
	if filter.To, ok = parseTimeParam(c, "to"); !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(h.cfg.Business.DefaultPageSize)))
	if pageSize < 1 {
		pageSize = h.cfg.Business.DefaultPageSize
	}

	entries, total, err := h.walletService.History(c.Request.Context(), accountID, filter, page, pageSize)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, gin.H{
		"list":      entries,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// ============================================================
// Ledger endpoints
// ============================================================

// GetEntry looks up one ledger entry.
// GET /api/v1/ledger/entry?entry_id=xxx
func (h *Handler) GetEntry(c *gin.Context) {
	entryID := c.Query("entry_id")
	if entryID == "" {
		response.ParamError(c, "entry_id is required")
		return
	}

	entry, err := h.walletService.GetEntry(c.Request.Context(), entryID)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, entry)
}

// GetTransfer returns the entry pair of one transfer.
// GET /api/v1/ledger/transfer?transfer_no=xxx
func (h *Handler) GetTransfer(c *gin.Context) {
	transferNo := c.Query("transfer_no")
	if transferNo == "" {
		response.ParamError(c, "transfer_no is required")
		return
	}

	entries, err := h.transferService.GetByTransferNo(c.Request.Context(), transferNo)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, entries)
}

// CancelEntry is the administrative audit override. It changes only the
// entry's status; balances are untouched.
// POST /api/v1/ledger/entry/cancel
func (h *Handler) CancelEntry(c *gin.Context) {
	var req struct {
		EntryID string `json:"entry_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "invalid request: "+err.Error())
		return
	}

	if err := h.walletService.CancelEntry(c.Request.Context(), req.EntryID); err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, gin.H{"entry_id": req.EntryID, "status": "CANCELLED"})
}

// ============================================================
// Statistics endpoints
// ============================================================

// Statistics aggregates committed entries per kind.
// GET /api/v1/stats/summary?account_id=&from=&to=
func (h *Handler) Statistics(c *gin.Context) {
	filter := repository.AggregateFilter{
		AccountID: c.Query("account_id"),
	}
	var ok bool
	if filter.From, ok = parseTimeParam(c, "from"); !ok {
		return
	}
	if filter.To, ok = parseTimeParam(c, "to"); !ok {
		return
	}

	summary, err := h.statsService.Aggregate(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, summary)
}

// DailySummary aggregates one calendar day.
// GET /api/v1/stats/daily?date=2026-08-29
func (h *Handler) DailySummary(c *gin.Context) {
	dateStr := c.DefaultQuery("date", time.Now().Format("2006-01-02"))
	date, err := time.ParseInLocation("2006-01-02", dateStr, time.Local)
	if err != nil {
		response.ParamError(c, "date must be yyyy-mm-dd")
		return
	}

	summary, err := h.statsService.DailySummary(c.Request.Context(), date)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, summary)
}

// parseTimeParam accepts RFC3339 or a bare date. Returns ok=false after
// writing a param error response.
func parseTimeParam(c *gin.Context, name string) (time.Time, bool) {
	value := c.Query(name)
	if value == "" {
		return time.Time{}, true
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, true
	}
	if t, err := time.ParseInLocation("2006-01-02", value, time.Local); err == nil {
		return t, true
	}
	response.ParamError(c, name+" must be RFC3339 or yyyy-mm-dd")
	return time.Time{}, false
}
