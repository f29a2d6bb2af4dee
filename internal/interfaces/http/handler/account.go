package handler

import (
	"context"

	ledgerapp "github.com/erp/shopcore/internal/application/ledger"
	"github.com/erp/shopcore/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// LedgerService is the ledger engine the account endpoints drive
type LedgerService interface {
	OpenAccount(ctx context.Context, req ledgerapp.OpenAccountRequest) (*ledgerapp.AccountResponse, error)
	Post(ctx context.Context, req ledgerapp.PostRequest) (*ledgerapp.PostingResponse, error)
	GetAccount(ctx context.Context, id uuid.UUID) (*ledgerapp.AccountResponse, error)
	ListPostings(ctx context.Context, accountID uuid.UUID, limit, offset int) (*shared.Paginated[ledgerapp.PostingResponse], error)
	FreezeAccount(ctx context.Context, id uuid.UUID) (*ledgerapp.AccountResponse, error)
	ActivateAccount(ctx context.Context, id uuid.UUID) (*ledgerapp.AccountResponse, error)
	VerifyBalance(ctx context.Context, id uuid.UUID) (*ledgerapp.BalanceVerification, error)
}

// AccountHandler handles ledger account HTTP requests
type AccountHandler struct {
	BaseHandler
	ledger LedgerService
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(ledger LedgerService) *AccountHandler {
	return &AccountHandler{ledger: ledger}
}

// OpenAccount godoc
// @ID           openAccount
// @Summary      Open a ledger account
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        request body ledgerapp.OpenAccountRequest true "Account"
// @Success      201 {object} APIResponse[ledgerapp.AccountResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /accounts [post]
func (h *AccountHandler) OpenAccount(c *gin.Context) {
	var req ledgerapp.OpenAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	account, err := h.ledger.OpenAccount(h.operation(c, "ledger.open_account"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, account)
}

// GetAccount godoc
// @ID           getAccount
// @Summary      Get an account with its current balance
// @Tags         accounts
// @Produce      json
// @Param        id path string true "Account ID" format(uuid)
// @Success      200 {object} APIResponse[ledgerapp.AccountResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /accounts/{id} [get]
func (h *AccountHandler) GetAccount(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	account, err := h.ledger.GetAccount(h.operation(c, "ledger.get_account"), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, account)
}

// Post godoc
// @ID           postToAccount
// @Summary      Credit or debit an account
// @Description  Applies one posting under the account's row lock. A debit larger than the balance is rejected.
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        id path string true "Account ID" format(uuid)
// @Param        request body ledgerapp.PostRequest true "Posting"
// @Success      201 {object} APIResponse[ledgerapp.PostingResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse "Insufficient funds"
// @Failure      423 {object} ErrorResponse "Account frozen"
// @Router       /accounts/{id}/postings [post]
func (h *AccountHandler) Post(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req ledgerapp.PostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}
	req.AccountID = id

	posting, err := h.ledger.Post(h.operation(c, "ledger.post"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, posting)
}

// ListPostings godoc
// @ID           listAccountPostings
// @Summary      List an account's postings, newest first
// @Tags         accounts
// @Produce      json
// @Param        id path string true "Account ID" format(uuid)
// @Param        limit query int false "Page size" default(20) maximum(100)
// @Param        offset query int false "Offset" default(0)
// @Success      200 {object} APIResponse[[]ledgerapp.PostingResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /accounts/{id}/postings [get]
func (h *AccountHandler) ListPostings(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	page, ok := h.pageQuery(c)
	if !ok {
		return
	}

	postings, err := h.ledger.ListPostings(h.operation(c, "ledger.list_postings"), id, page.Limit, page.Offset)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	SuccessPage(c, postings)
}

// FreezeAccount godoc
// @ID           freezeAccount
// @Summary      Freeze an account so it rejects postings
// @Tags         accounts
// @Produce      json
// @Param        id path string true "Account ID" format(uuid)
// @Success      200 {object} APIResponse[ledgerapp.AccountResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse "Already frozen"
// @Router       /accounts/{id}/freeze [post]
func (h *AccountHandler) FreezeAccount(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	account, err := h.ledger.FreezeAccount(h.operation(c, "ledger.freeze"), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, account)
}

// ActivateAccount godoc
// @ID           activateAccount
// @Summary      Reactivate a frozen account
// @Tags         accounts
// @Produce      json
// @Param        id path string true "Account ID" format(uuid)
// @Success      200 {object} APIResponse[ledgerapp.AccountResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse "Already active"
// @Router       /accounts/{id}/activate [post]
func (h *AccountHandler) ActivateAccount(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	account, err := h.ledger.ActivateAccount(h.operation(c, "ledger.activate"), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, account)
}

// VerifyBalance godoc
// @ID           verifyAccountBalance
// @Summary      Replay an account's postings against its stored balance
// @Tags         accounts
// @Produce      json
// @Param        id path string true "Account ID" format(uuid)
// @Success      200 {object} APIResponse[ledgerapp.BalanceVerification]
// @Failure      404 {object} ErrorResponse
// @Router       /accounts/{id}/verify [get]
func (h *AccountHandler) VerifyBalance(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	result, err := h.ledger.VerifyBalance(h.operation(c, "ledger.verify"), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
