package httpserver

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/escrowhq/escrow/pkg/escrow"
)

type createProjectRequest struct {
	Name         string `json:"name" binding:"required"`
	Location     string `json:"location" binding:"required"`
	PlannedUnits int    `json:"planned_units" binding:"gte=0"`
}

type addUnitRequest struct {
	Code  string `json:"code" binding:"required"`
	Floor int    `json:"floor" binding:"gte=0"`
	Area  string `json:"area" binding:"required"`
	Price string `json:"price" binding:"required"`
}

type addUnitBatchRequest struct {
	Prefix string `json:"prefix" binding:"required"`
	Floor  int    `json:"floor" binding:"gte=0"`
	Count  int    `json:"count" binding:"required,gte=1"`
	Area   string `json:"area" binding:"required"`
	Price  string `json:"price" binding:"required"`
}

type matchRequest struct {
	TransactionID string `json:"transaction_id" binding:"required"`
	BookingID     string `json:"booking_id" binding:"required"`
}

func (handler *apiHandler) handleBuilderDashboard(ctx *gin.Context) {
	summary, err := handler.service.BuilderDashboard(ctx.Request.Context(), sessionSubject(ctx))
	if err != nil {
		respondDomainError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dashboardPayload(summary))
}

func (handler *apiHandler) handleCreateProject(ctx *gin.Context) {
	var request createProjectRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", err.Error()))
		return
	}
	input, err := escrow.NewProjectInput(sessionSubject(ctx), request.Name, request.Location, request.PlannedUnits)
	if err != nil {
		respondDomainError(ctx, err)
		return
	}
	project, err := handler.service.CreateProject(ctx.Request.Context(), input)
	if err != nil {
		respondDomainError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, projectPayload(project))
}

func (handler *apiHandler) handleBuilderProjects(ctx *gin.Context) {
	projects, err := handler.service.ProjectsByBuilder(ctx.Request.Context(), sessionSubject(ctx))
	if err != nil {
		respondDomainError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"projects": projectPayloads(projects)})
}

// ownedProject resolves a path project and enforces builder ownership,
// reporting not-found for foreign projects so ids are not probeable.
func (handler *apiHandler) ownedProject(ctx *gin.Context) (escrow.Project, bool) {
	project, err := handler.service.Project(ctx.Request.Context(), ctx.Param("projectID"))
	if err != nil {
		respondDomainError(ctx, err)
		return escrow.Project{}, false
	}
	if project.BuilderID != sessionSubject(ctx) {
		ctx.JSON(http.StatusNotFound, errorResponse("project_not_found", "project not found"))
		return escrow.Project{}, false
	}
	return project, true
}

func (handler *apiHandler) handleAddUnit(ctx *gin.Context) {
	project, ok := handler.ownedProject(ctx)
	if !ok {
		return
	}
	var request addUnitRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", err.Error()))
		return
	}
	area, err := parseAmount(request.Area)
	if err != nil {
		respondDomainError(ctx, err)
		return
	}
	price, err := parseAmount(request.Price)
	if err != nil {
		respondDomainError(ctx, err)
		return
	}
	input, err := escrow.NewUnitInput(project.ProjectID, request.Code, request.Floor, area.Value(), price.Value())
	if err != nil {
		respondDomainError(ctx, err)
		return
	}
	unit, err := handler.service.AddUnit(ctx.Request.Context(), input)
	if err != nil {
		respondDomainError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, unitPayload(unit, escrow.UnitStatusAvailable))
}

func (handler *apiHandler) handleAddUnitBatch(ctx *gin.Context) {
	project, ok := handler.ownedProject(ctx)
	if !ok {
		return
	}
	var request addUnitBatchRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", err.Error()))
		return
	}
	area, err := parseAmount(request.Area)
	if err != nil {
		respondDomainError(ctx, err)
		return
	}
	price, err := parseAmount(request.Price)
	if err != nil {
		respondDomainError(ctx, err)
		return
	}
	units, err := handler.service.AddUnitBatch(ctx.Request.Context(), project.ProjectID, request.Prefix, request.Floor, request.Count, area, price)
	if err != nil {
		respondDomainError(ctx, err)
		return
	}
	payloads := make([]gin.H, 0, len(units))
	for _, unit := range units {
		payloads = append(payloads, unitPayload(unit, escrow.UnitStatusAvailable))
	}
	ctx.JSON(http.StatusCreated, gin.H{"units": payloads})
}

func (handler *apiHandler) handleBuilderUnits(ctx *gin.Context) {
	project, ok := handler.ownedProject(ctx)
	if !ok {
		return
	}
	units, err := handler.service.UnitsByProject(ctx.Request.Context(), project.ProjectID)
	if err != nil {
		respondDomainError(ctx, err)
		return
	}
	bookings, err := handler.service.BookingsByBuilder(ctx.Request.Context(), sessionSubject(ctx))
	if err != nil {
		respondDomainError(ctx, err)
		return
	}
	transactions, err := handler.service.TransactionsByBuilder(ctx.Request.Context(), sessionSubject(ctx))
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

func (handler *apiHandler) handleBuilderBookings(ctx *gin.Context) {
	bookings, err := handler.service.BookingsByBuilder(ctx.Request.Context(), sessionSubject(ctx))
	if err != nil {
		respondDomainError(ctx, err)
		return
	}
	if ctx.Query("status") == "available" {
		transactions, err := handler.service.TransactionsByBuilder(ctx.Request.Context(), sessionSubject(ctx))
		if err != nil {
			respondDomainError(ctx, err)
			return
		}
		bookings = escrow.AvailableForMatch(bookings, transactions)
	}
	ctx.JSON(http.StatusOK, gin.H{"bookings": bookingPayloads(bookings)})
}

func (handler *apiHandler) handleBuilderTransactions(ctx *gin.Context) {
	transactions, err := handler.service.TransactionsByBuilder(ctx.Request.Context(), sessionSubject(ctx))
	if err != nil {
		respondDomainError(ctx, err)
		return
	}
	if ctx.Query("status") == "unmatched" {
		transactions = escrow.Unmatched(transactions)
	}
	ctx.JSON(http.StatusOK, gin.H{"transactions": transactionPayloads(transactions)})
}

func (handler *apiHandler) handleMatch(ctx *gin.Context) {
	var request matchRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", err.Error()))
		return
	}
	ownsTransaction, err := handler.builderOwnsTransaction(ctx, request.TransactionID)
	if err != nil {
		respondDomainError(ctx, err)
		return
	}
	if !ownsTransaction {
		ctx.JSON(http.StatusNotFound, errorResponse("transaction_not_found", "transaction not found"))
		return
	}
	ownsBooking, err := handler.builderOwnsBooking(ctx, request.BookingID)
	if err != nil {
		respondDomainError(ctx, err)
		return
	}
	if !ownsBooking {
		ctx.JSON(http.StatusNotFound, errorResponse("booking_not_found", "booking not found"))
		return
	}
	if err := handler.service.MatchTransaction(ctx.Request.Context(), request.TransactionID, request.BookingID); err != nil {
		respondDomainError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"status": "matched"})
}

func (handler *apiHandler) builderOwnsTransaction(ctx *gin.Context, transactionID string) (bool, error) {
	transactions, err := handler.service.TransactionsByBuilder(ctx.Request.Context(), sessionSubject(ctx))
	if err != nil {
		return false, err
	}
	for _, transaction := range transactions {
		if transaction.TransactionID == transactionID {
			return true, nil
		}
	}
	return false, nil
}

// builderOwnsBooking keeps a builder from matching against another builder's
// booking; foreign ids read as not-found.
func (handler *apiHandler) builderOwnsBooking(ctx *gin.Context, bookingID string) (bool, error) {
	bookings, err := handler.service.BookingsByBuilder(ctx.Request.Context(), sessionSubject(ctx))
	if err != nil {
		return false, err
	}
	for _, booking := range bookings {
		if booking.BookingID == bookingID {
			return true, nil
		}
	}
	return false, nil
}

func parseAmount(raw string) (escrow.PositiveAmount, error) {
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return escrow.PositiveAmount{}, fmt.Errorf("%w: %v", escrow.ErrInvalidAmount, err)
	}
	return escrow.NewPositiveAmount(value)
}
