package handler

import (
	"context"
	"net/http"

	"github.com/Temutjin2k/ride-dispatch/internal/adapter/http/handler/dto"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	wrap "github.com/Temutjin2k/ride-dispatch/pkg/logger/wrapper"
	"github.com/google/uuid"
)

type WalletService interface {
	TopUp(ctx context.Context, userID uuid.UUID, amount models.Money) (*models.TopUpIntent, error)
	Statement(ctx context.Context, ownerID uuid.UUID, limit, offset int) (*models.Statement, error)
	Refund(ctx context.Context, paymentID uuid.UUID, amount models.Money) (*models.Refund, error)
	Reconcile(ctx context.Context, walletID uuid.UUID) (*models.Wallet, error)
}

type Wallet struct {
	service WalletService
	l       logger.Logger
}

func NewWallet(service WalletService, l logger.Logger) *Wallet {
	return &Wallet{
		service: service,
		l:       l,
	}
}

// TopUp godoc
// @Summary      Top up a wallet
// @Description  Opens a payment intent. The wallet is credited when the gateway confirms it through the webhook.
// @Tags         Wallets
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        ownerId  path      string            true  "Wallet owner ID"
// @Param        request  body      dto.TopUpRequest  true  "Amount"
// @Success      201      {object}  models.TopUpIntent
// @Failure      400      {object}  map[string]any
// @Failure      502      {object}  map[string]any
// @Router       /wallets/{ownerId}/topup [post]
func (h *Wallet) TopUp(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionTopUp)

	ownerID, err := parseID(r, "ownerId")
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	var req dto.TopUpRequest
	if err := readJSON(w, r, &req); err != nil {
		h.l.Warn(ctx, "failed to read request JSON data", "error", err.Error())
		badRequestResponse(w, err.Error())
		return
	}
	if errs := validateStruct(&req); errs != nil {
		failedValidationResponse(w, errs)
		return
	}

	intent, err := h.service.TopUp(ctx, ownerID, req.Money())
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to start top-up", err)
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, envelope{"top_up": intent}, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
		internalErrorResponse(w)
	}
}

// Statement godoc
// @Summary      Wallet statement
// @Description  Balance and the most recent ledger entries, newest first. The wallet is created on first access.
// @Tags         Wallets
// @Produce      json
// @Security     BearerAuth
// @Param        ownerId  path      string   true   "Wallet owner ID"
// @Param        limit    query     integer  false  "Page size"
// @Param        offset   query     integer  false  "Page offset"
// @Success      200      {object}  models.Statement
// @Router       /wallets/{ownerId}/statement [get]
func (h *Wallet) Statement(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionStatement)

	ownerID, err := parseID(r, "ownerId")
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	st, err := h.service.Statement(ctx, ownerID, min(limit, 100), offset)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to load statement", err)
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"wallet": st.Wallet, "transactions": st.Transactions}, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
		internalErrorResponse(w)
	}
}

// Refund godoc
// @Summary      Refund a payment
// @Description  Refunds a completed payment fully or partially. Ride refunds reverse the driver and platform shares proportionally.
// @Tags         Payments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string             true   "Payment ID"
// @Param        request  body      dto.RefundRequest  false  "Amount, empty for a full refund"
// @Success      200      {object}  models.Refund
// @Failure      404      {object}  map[string]any
// @Failure      409      {object}  map[string]any
// @Router       /payments/{id}/refund [post]
func (h *Wallet) Refund(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionRefund)

	paymentID, err := parseID(r, "id")
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	var req dto.RefundRequest
	if r.ContentLength != 0 {
		if err := readJSON(w, r, &req); err != nil {
			h.l.Warn(ctx, "failed to read request JSON data", "error", err.Error())
			badRequestResponse(w, err.Error())
			return
		}
		if errs := validateStruct(&req); errs != nil {
			failedValidationResponse(w, errs)
			return
		}
	}

	refund, err := h.service.Refund(ctx, paymentID, req.Money())
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to refund payment", err)
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"refund": refund}, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
		internalErrorResponse(w)
	}
}

// Reconcile godoc
// @Summary      Reconcile a wallet
// @Description  Replays the ledger and checks it against the stored balance
// @Tags         Wallets
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Wallet ID"
// @Success      200  {object}  models.Wallet
// @Failure      500  {object}  map[string]any
// @Router       /admin/wallets/{id}/reconcile [post]
func (h *Wallet) Reconcile(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), types.ActionReconcile)

	walletID, err := parseID(r, "id")
	if err != nil {
		badRequestResponse(w, err.Error())
		return
	}

	wallet, err := h.service.Reconcile(ctx, walletID)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "wallet reconciliation failed", err)
		// расхождение в леджере отдаём явно, админ должен видеть причину
		errorResponse(w, GetCode(err), err.Error())
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"wallet": wallet, "consistent": true}, nil); err != nil {
		h.l.Error(ctx, "failed to write response", err)
		internalErrorResponse(w)
	}
}
