package controllers

import (
	"net/http"

	"github.com/tiffinbox/tiffinbox-backend/api/responses"
	"github.com/tiffinbox/tiffinbox-backend/api/validators"
	"github.com/tiffinbox/tiffinbox-backend/internal/notifier"
	"github.com/tiffinbox/tiffinbox-backend/internal/orders"
	"github.com/tiffinbox/tiffinbox-backend/internal/settlement"
	"github.com/tiffinbox/tiffinbox-backend/pkg/enums"
	pkgerrors "github.com/tiffinbox/tiffinbox-backend/pkg/errors"
	"github.com/tiffinbox/tiffinbox-backend/pkg/logger"
)

// AdminListPendingDeposits pages through deposit requests awaiting a decision.
func AdminListPendingDeposits(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}

		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ListPendingDepositRequests(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

type resolveDepositRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approved rejected"`
}

// AdminResolveDeposit applies the approve/reject decision on a pending request.
func AdminResolveDeposit(svc settlement.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}

		requestID, err := pathUUID(r, "requestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		adminID, err := actorUUID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req resolveDepositRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payload, err := svc.ResolveDepositRequest(r.Context(), settlement.ResolveDepositInput{
			RequestID: requestID,
			AdminID:   adminID,
			Approve:   req.Decision == enums.DepositStatusApproved.String(),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payload)
	}
}

type cancelOrderRequest struct {
	Reason string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

// AdminCancelOrder cancels a received order before delivery.
func AdminCancelOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := pathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		adminID, err := actorUUID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		req := cancelOrderRequest{}
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &req); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		err = svc.CancelOrder(r.Context(), orders.CancelOrderInput{
			OrderID:     orderID,
			ActorUserID: adminID,
			Reason:      req.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "cancelled"})
	}
}

type broadcastRequest struct {
	Title    string  `json:"title" validate:"required,max=120"`
	Message  string  `json:"message" validate:"required,max=1000"`
	ImageURL *string `json:"image_url,omitempty" validate:"omitempty,url"`
	DeepLink *string `json:"deep_link,omitempty" validate:"omitempty,max=500"`
}

// AdminBroadcastPromo sends a promotional notification to every user.
func AdminBroadcastPromo(svc notifier.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notification service unavailable"))
			return
		}

		adminID, err := actorUUID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req broadcastRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		err = svc.NotifyAllUsers(r.Context(), notifier.BroadcastInput{
			Type:     enums.NotificationTypePromo,
			Title:    req.Title,
			Message:  req.Message,
			ImageURL: req.ImageURL,
			DeepLink: req.DeepLink,
			Actor:    actorRef(adminID, enums.UserRoleAdmin),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]string{"status": "queued"})
	}
}
