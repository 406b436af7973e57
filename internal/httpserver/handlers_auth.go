package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/escrowhq/escrow/pkg/escrow"
)

type staffRegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"required,oneof=builder admin"`
}

type buyerRegisterRequest struct {
	Name        string `json:"name" binding:"required"`
	NationalID  string `json:"national_id" binding:"required,national_id"`
	PhoneNumber string `json:"phone_number"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (handler *apiHandler) handleSession(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"subject": sessionSubject(ctx),
		"role":    ctx.GetString(sessionRoleKey),
		"name":    ctx.GetString(sessionNameKey),
	})
}

func (handler *apiHandler) handleStaffRegister(ctx *gin.Context) {
	var request staffRegisterRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", err.Error()))
		return
	}
	role, err := escrow.ParseRole(request.Role)
	if err != nil {
		respondDomainError(ctx, err)
		return
	}
	passwordHash, err := handler.hashPassword(request.Password)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, errorResponse("internal", "internal error"))
		return
	}
	input, err := escrow.NewUserInput(request.Name, request.Email, passwordHash, role)
	if err != nil {
		respondDomainError(ctx, err)
		return
	}
	user, err := handler.service.RegisterUser(ctx.Request.Context(), input)
	if err != nil {
		respondDomainError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{
		"user_id": user.UserID,
		"name":    user.Name,
		"email":   user.Email,
		"role":    user.Role.String(),
	})
}

func (handler *apiHandler) handleStaffLogin(ctx *gin.Context) {
	var request loginRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", err.Error()))
		return
	}
	user, err := handler.service.AuthenticateUser(ctx.Request.Context(), request.Email)
	if err != nil || !handler.checkPassword(request.Password, user.PasswordHash) {
		ctx.JSON(http.StatusUnauthorized, errorResponse("invalid_credentials", "email or password is wrong"))
		return
	}
	token, err := handler.tokens.Issue(user.UserID, user.Role.String(), user.Name)
	if err != nil {
		handler.logger.Error("token issue failed", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, errorResponse("internal", "internal error"))
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"token":   token,
		"user_id": user.UserID,
		"name":    user.Name,
		"role":    user.Role.String(),
	})
}

func (handler *apiHandler) handleBuyerRegister(ctx *gin.Context) {
	var request buyerRegisterRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", err.Error()))
		return
	}
	passwordHash, err := handler.hashPassword(request.Password)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, errorResponse("internal", "internal error"))
		return
	}
	input, err := escrow.NewBuyerInput(request.Name, request.NationalID, request.PhoneNumber, request.Email, passwordHash)
	if err != nil {
		respondDomainError(ctx, err)
		return
	}
	buyer, err := handler.service.RegisterBuyer(ctx.Request.Context(), input)
	if err != nil {
		respondDomainError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{
		"buyer_id": buyer.BuyerID,
		"name":     buyer.Name,
		"email":    buyer.Email,
	})
}

func (handler *apiHandler) handleBuyerLogin(ctx *gin.Context) {
	var request loginRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, errorResponse("invalid_payload", err.Error()))
		return
	}
	buyer, err := handler.service.AuthenticateBuyer(ctx.Request.Context(), request.Email)
	if err != nil || !handler.checkPassword(request.Password, buyer.PasswordHash) {
		ctx.JSON(http.StatusUnauthorized, errorResponse("invalid_credentials", "email or password is wrong"))
		return
	}
	token, err := handler.tokens.Issue(buyer.BuyerID, roleBuyer, buyer.Name)
	if err != nil {
		handler.logger.Error("token issue failed", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, errorResponse("internal", "internal error"))
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"token":    token,
		"buyer_id": buyer.BuyerID,
		"name":     buyer.Name,
		"role":     roleBuyer,
	})
}
