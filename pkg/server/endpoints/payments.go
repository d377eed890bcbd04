package endpoints

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/doodlesbykumbi/saasgate/pkg/identity"
	"github.com/doodlesbykumbi/saasgate/pkg/model"
	"github.com/doodlesbykumbi/saasgate/pkg/payment"
	"github.com/doodlesbykumbi/saasgate/pkg/permission"
	"github.com/doodlesbykumbi/saasgate/pkg/server"
	"github.com/doodlesbykumbi/saasgate/pkg/server/store"
)

// PaymentCreateRequest opens a payment. Provider and currency fall back to
// the configured defaults.
type PaymentCreateRequest struct {
	Amount   float64                `json:"amount" validate:"gt=0,lte=1000000000000"`
	Currency string                 `json:"currency" validate:"omitempty,len=3,alpha"`
	Provider string                 `json:"provider" validate:"omitempty,max=50"`
	Metadata map[string]interface{} `json:"metadata"`
}

// PaymentVerifyRequest is the proof returned by the provider's checkout.
type PaymentVerifyRequest struct {
	PaymentID string `json:"payment_id" validate:"required"`
	OrderID   string `json:"order_id" validate:"required"`
	Signature string `json:"signature" validate:"required"`
}

// PaymentCaptureRequest captures a completed payment. A zero amount
// captures the full payment.
type PaymentCaptureRequest struct {
	Amount float64 `json:"amount" validate:"gte=0,lte=1000000000000"`
}

// PaymentRefundRequest refunds a completed payment. A zero amount refunds
// the full payment.
type PaymentRefundRequest struct {
	Amount float64 `json:"amount" validate:"gte=0,lte=1000000000000"`
	Reason string  `json:"reason" validate:"max=255"`
}

const paymentNotOwned = "Payment not found or not authorized"

// RegisterPaymentsEndpoints registers /api/v1/payments.
func RegisterPaymentsEndpoints(s *server.Server) {
	payments := s.Payments
	authz := s.Authorizer
	listMax := s.Config.APIListLimitMax
	logger := s.Logger

	paymentsRouter := s.Router.PathPrefix("/api/v1/payments").Subrouter()
	paymentsRouter.Use(s.Authenticator.Middleware)

	create := authz.Require(permission.PaymentsCreate)(handleCreatePayment(payments, logger))
	paymentsRouter.Handle("", create).Methods("POST")
	paymentsRouter.Handle("/", create).Methods("POST")

	list := handleListPayments(payments, listMax, logger)
	paymentsRouter.Handle("", list).Methods("GET")
	paymentsRouter.Handle("/", list).Methods("GET")

	paymentsRouter.HandleFunc("/{payment_id:[0-9]+}", handleGetPayment(payments, logger)).Methods("GET")
	paymentsRouter.Handle(
		"/{payment_id:[0-9]+}/verify",
		authz.Require(permission.PaymentsCreate)(handleVerifyPayment(payments, logger)),
	).Methods("POST")
	paymentsRouter.Handle(
		"/{payment_id:[0-9]+}/capture",
		authz.Require(permission.PaymentsManage)(handleCapturePayment(payments, logger)),
	).Methods("POST")
	paymentsRouter.Handle(
		"/{payment_id:[0-9]+}/refund",
		authz.Require(permission.PaymentsManage)(handleRefundPayment(payments, logger)),
	).Methods("POST")
}

// ownPayment loads the payment named in the path, answering 404 when it is
// missing or belongs to someone else.
func ownPayment(w http.ResponseWriter, r *http.Request, payments *payment.Service, logger *slog.Logger) (*model.Payment, bool) {
	paymentID, err := pathID(r, "payment_id")
	if err != nil {
		writeError(w, r, logger, err)
		return nil, false
	}
	p, err := payments.GetPayment(r.Context(), paymentID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		writeError(w, r, logger, err)
		return nil, false
	}
	id, _ := identity.Get(r.Context())
	if p == nil || p.UserID != id.UserID() {
		respondWithError(w, http.StatusNotFound, paymentNotOwned)
		return nil, false
	}
	return p, true
}

func handleCreatePayment(payments *payment.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PaymentCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, logger, err)
			return
		}
		id, _ := identity.Get(r.Context())
		p, err := payments.CreatePayment(r.Context(), id.UserID(), req.Amount, req.Currency, req.Provider, req.Metadata)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		respondWithJSON(w, http.StatusCreated, paymentView(p))
	}
}

func handleVerifyPayment(payments *payment.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PaymentVerifyRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, logger, err)
			return
		}
		p, ok := ownPayment(w, r, payments, logger)
		if !ok {
			return
		}

		result, err := payments.VerifyPayment(r.Context(), p.ID, payment.Proof{
			OrderID:   req.OrderID,
			PaymentID: req.PaymentID,
			Signature: req.Signature,
		})
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		if !result.Success {
			detail := result.Error
			if detail == "" {
				detail = "Payment verification failed"
			}
			respondWithError(w, http.StatusBadRequest, detail)
			return
		}

		p, err = payments.GetPayment(r.Context(), p.ID)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		respondWithJSON(w, http.StatusOK, paymentView(p))
	}
}

func handleListPayments(payments *payment.Service, listMax int, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		skip, limit, err := pagination(r, listMax)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		id, _ := identity.Get(r.Context())
		list, err := payments.ListPayments(r.Context(), id.UserID(), skip, limit)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		respondWithJSON(w, http.StatusOK, paymentViews(list))
	}
}

func handleGetPayment(payments *payment.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := ownPayment(w, r, payments, logger)
		if !ok {
			return
		}
		respondWithJSON(w, http.StatusOK, paymentView(p))
	}
}

// respondWithResult answers 200 with the result, or 400 with its error.
func respondWithResult(w http.ResponseWriter, result payment.Result) {
	if !result.Success {
		respondWithError(w, http.StatusBadRequest, result.Error)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

// existingPayment answers 404 for a missing payment. Ownership is not
// checked; capture and refund are operator actions.
func existingPayment(w http.ResponseWriter, r *http.Request, payments *payment.Service, logger *slog.Logger) (uint, bool) {
	paymentID, err := pathID(r, "payment_id")
	if err != nil {
		writeError(w, r, logger, err)
		return 0, false
	}
	_, err = payments.GetPayment(r.Context(), paymentID)
	if errors.Is(err, store.ErrNotFound) {
		respondWithError(w, http.StatusNotFound, "Payment not found")
		return 0, false
	}
	if err != nil {
		writeError(w, r, logger, err)
		return 0, false
	}
	return paymentID, true
}

func handleCapturePayment(payments *payment.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PaymentCaptureRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, logger, err)
			return
		}
		paymentID, ok := existingPayment(w, r, payments, logger)
		if !ok {
			return
		}
		result, err := payments.CapturePayment(r.Context(), paymentID, req.Amount)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		respondWithResult(w, result)
	}
}

func handleRefundPayment(payments *payment.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PaymentRefundRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, logger, err)
			return
		}
		paymentID, ok := existingPayment(w, r, payments, logger)
		if !ok {
			return
		}
		result, err := payments.RefundPayment(r.Context(), paymentID, req.Amount, req.Reason)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		respondWithResult(w, result)
	}
}
