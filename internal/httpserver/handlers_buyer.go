package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/escrowhq/escrow/pkg/escrow"
)

type bookUnitRequest struct {
	ProjectID string `json:"project_id" binding:"required"`
	UnitCode  string `json:"unit_code" binding:"required"`
	Amount    string `json:"amount" binding:"required"`
	Date      string `json:"date" binding:"required"`
}

type recordPaymentRequest struct {
	ProjectID string `json:"project_id" binding:"required"`
	UnitCode  string `json:"unit_code" binding:"required"`
	Amount    string `json:"amount" binding:"required"`
	Date      string `json:"date" binding:"required"`
	Method    string `json:"method" binding:"required"`
	Metadata  string `json:"metadata"`
}

func (handler *apiHandler) handleBuyerProjects(ctx *gin.Context) {
	projects, err := handler.service.Projects(ctx.Request.Context())
	if err != nil {
		respondDomainError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"projects": projectPayloads(projects)})
}

func (handler *apiHandler) handleBuyerUnits(ctx *gin.Context) {
	units, err := handler.service.UnitsByProject(ctx.Request.Context(), ctx.Param("projectID"))
	if err != nil {
		respondDomainError(ctx, err)
		return
	}
	bookings, err := handler.service.Bookings(ctx.Request.Context())
	if err != nil {
		respondDomainError(ctx, err)
		return
	}
	transactions, err := handler.service.Transactions(ctx.Request.Context())
	if err != nil {
		respondDomainError(ctx, err)
		return
	}
	payloads := make([]gin.H, 0, len(units))
	for _, unit := range units {
		payloads = append(payloads, unitPayload(unit, escrow.UnitStatusOf(unit, bookings, transactions)))
	}
	ctx.JSON(http.StatusOK, gin.H{"units": payloads})
}

func (handler *apiHandler) handleBookUnit(ctx *gin.Context) {
	var request bookUnitRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", err.Error()))
		return
	}
	amount, err := parseAmount(request.Amount)
	if err != nil {
		respondDomainError(ctx, err)
		return
	}
	booking, err := handler.service.BookUnit(ctx.Request.Context(), sessionSubject(ctx), request.ProjectID, request.UnitCode, amount, request.Date)
	if err != nil {
		respondDomainError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, bookingPayload(booking))
}

func (handler *apiHandler) handleBuyerBookings(ctx *gin.Context) {
	bookings, err := handler.service.BookingsByBuyer(ctx.Request.Context(), sessionSubject(ctx))
	if err != nil {
		respondDomainError(ctx, err)
		return
	}
	transactions, err := handler.service.Transactions(ctx.Request.Context())
	if err != nil {
		respondDomainError(ctx, err)
		return
	}
	matchedIDs := escrow.MatchedBookingIDs(transactions)
	payloads := make([]gin.H, 0, len(bookings))
	for _, booking := range bookings {
		payload := bookingPayload(booking)
		status := escrow.UnitStatusUnpaid
		if _, matched := matchedIDs[booking.BookingID]; matched {
			status = escrow.UnitStatusPaid
		}
		payload["status"] = status.String()
		payloads = append(payloads, payload)
	}
	ctx.JSON(http.StatusOK, gin.H{"bookings": payloads})
}

func (handler *apiHandler) handleRecordPayment(ctx *gin.Context) {
	var request recordPaymentRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", err.Error()))
		return
	}
	amount, err := parseAmount(request.Amount)
	if err != nil {
		respondDomainError(ctx, err)
		return
	}
	method, err := escrow.ParsePaymentMethod(request.Method)
	if err != nil {
		respondDomainError(ctx, err)
		return
	}
	transaction, err := handler.service.RecordPayment(ctx.Request.Context(), sessionSubject(ctx), request.ProjectID, request.UnitCode, amount, request.Date, method, request.Metadata)
	if err != nil {
		respondDomainError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, transactionPayload(transaction))
}

func (handler *apiHandler) handleBuyerTransactions(ctx *gin.Context) {
	transactions, err := handler.service.TransactionsByBuyer(ctx.Request.Context(), sessionSubject(ctx))
	if err != nil {
		respondDomainError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"transactions": transactionPayloads(transactions)})
}
