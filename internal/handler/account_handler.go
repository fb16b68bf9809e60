package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/docscopilot/user-service/shared/cqrs"
	"github.com/docscopilot/user-service/shared/middleware"
	"github.com/docscopilot/user-service/shared/models"
	"github.com/docscopilot/user-service/shared/utils"
)

// AccountCommander defines the write-side operations used by AccountHandler.
type AccountCommander interface {
	Register(context.Context, cqrs.RegisterAccountCommand) (*models.Account, error)
	UpdateProfile(context.Context, cqrs.UpdateProfileCommand) (*models.Account, error)
	ResetPassword(context.Context, cqrs.ResetPasswordCommand) (*models.Account, error)
	Remove(context.Context, cqrs.DeleteAccountCommand) error
}

// AccountQuerier defines the read-side operations used by AccountHandler.
type AccountQuerier interface {
	ListAccounts(context.Context, cqrs.ListAccountsQuery) (*models.AccountPage, error)
	Lookup(context.Context, cqrs.LookupQuery) (*models.Account, error)
	GetByID(context.Context, string) (*models.Account, error)
	GetProfile(context.Context, cqrs.GetProfileQuery) (*models.Account, error)
}

// AccountHandler routes requests to the command or query service as appropriate.
type AccountHandler struct {
	commands AccountCommander
	queries  AccountQuerier
}

type RegisterRequest struct {
	Username    string        `json:"username" validate:"required,min=3,max=64"`
	Email       string        `json:"email" validate:"omitempty,email"`
	Password    string        `json:"password" validate:"omitempty,min=8,max=128"`
	GithubID    string        `json:"githubId" validate:"omitempty,max=64"`
	Gender      models.Gender `json:"gender" validate:"omitempty,oneof=male female other"`
	Address     string        `json:"address" validate:"max=255"`
	Description string        `json:"description" validate:"max=1024"`
	Avatar      string        `json:"avatar" validate:"max=512"`
	Photo       string        `json:"photo" validate:"max=512"`
}

// UpdateRequest fields are all optional; empty values leave the stored
// value unchanged.
type UpdateRequest struct {
	Username    string        `json:"username" validate:"omitempty,min=3,max=64"`
	Email       string        `json:"email" validate:"omitempty,email"`
	Gender      models.Gender `json:"gender" validate:"omitempty,oneof=male female other"`
	Address     string        `json:"address" validate:"max=255"`
	Description string        `json:"description" validate:"max=1024"`
	Avatar      string        `json:"avatar" validate:"max=512"`
	Photo       string        `json:"photo" validate:"max=512"`
}

type ResetPasswordRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Code     string `json:"code" validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type ListRequest struct {
	Page     int    `form:"page,default=1" validate:"gte=1"`
	Limit    int    `form:"limit,default=10" validate:"gte=1,lte=100"`
	Username string `form:"username"`
	Email    string `form:"email"`
	Gender   string `form:"gender" validate:"omitempty,oneof=male female other"`
	Role     *int   `form:"role" validate:"omitempty,gte=0,lte=2"`
}

type LookupRequest struct {
	Username string `form:"username"`
	Email    string `form:"email"`
	GithubID string `form:"githubId"`
}

func NewAccountHandler(commands AccountCommander, queries AccountQuerier) *AccountHandler {
	return &AccountHandler{commands: commands, queries: queries}
}

// Register creates an account with the default user role. Roles are never
// taken from the request body.
func (h *AccountHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	account, err := h.commands.Register(c.Request.Context(), cqrs.RegisterAccountCommand{
		Username:   req.Username,
		Email:      req.Email,
		Password:   req.Password,
		ExternalID: req.GithubID,
		RoleIDs:    []int{models.RoleUser},
		Profile: models.Profile{
			Gender:      req.Gender,
			Address:     req.Address,
			Description: req.Description,
			Avatar:      req.Avatar,
			Photo:       req.Photo,
		},
	})
	if err != nil {
		respondWithServiceError(c, err, "Failed to create user")
		return
	}

	c.JSON(http.StatusCreated, account)
}

func (h *AccountHandler) ListAccounts(c *gin.Context) {
	var req ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid query parameters")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	filter := models.AccountFilter{
		Username: req.Username,
		Email:    req.Email,
		RoleID:   req.Role,
	}
	if req.Gender != "" {
		gender := models.Gender(req.Gender)
		filter.Gender = &gender
	}

	page, err := h.queries.ListAccounts(c.Request.Context(), cqrs.ListAccountsQuery{
		Filter:     filter,
		Pagination: models.Pagination{Page: req.Page, PageSize: req.Limit},
	})
	if err != nil {
		respondWithServiceError(c, err, "Failed to list users")
		return
	}

	c.JSON(http.StatusOK, page)
}

func (h *AccountHandler) Lookup(c *gin.Context) {
	var req LookupRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid query parameters")
		return
	}

	account, err := h.queries.Lookup(c.Request.Context(), cqrs.LookupQuery{
		Username:   req.Username,
		Email:      req.Email,
		ExternalID: req.GithubID,
	})
	if err != nil {
		respondWithServiceError(c, err, "Failed to fetch user")
		return
	}

	c.JSON(http.StatusOK, account)
}

func (h *AccountHandler) GetAccount(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	account, err := h.queries.GetByID(c.Request.Context(), userID)
	if err != nil {
		respondWithServiceError(c, err, "Failed to fetch user")
		return
	}

	c.JSON(http.StatusOK, account)
}

func (h *AccountHandler) GetProfile(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	account, err := h.queries.GetProfile(c.Request.Context(), cqrs.GetProfileQuery{UserID: userID})
	if err != nil {
		respondWithServiceError(c, err, "Failed to fetch profile")
		return
	}

	c.JSON(http.StatusOK, account)
}

func (h *AccountHandler) UpdateProfile(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}
	if !canManage(c, userID) {
		middleware.RespondWithError(c, http.StatusForbidden, "You can only update your own user details")
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	account, err := h.commands.UpdateProfile(c.Request.Context(), cqrs.UpdateProfileCommand{
		UserID:      userID,
		Username:    req.Username,
		Email:       req.Email,
		Gender:      req.Gender,
		Address:     req.Address,
		Description: req.Description,
		Avatar:      req.Avatar,
		Photo:       req.Photo,
	})
	if err != nil {
		respondWithServiceError(c, err, "Failed to update user")
		return
	}

	c.JSON(http.StatusOK, account)
}

func (h *AccountHandler) DeleteAccount(c *gin.Context) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}
	if !canManage(c, userID) {
		middleware.RespondWithError(c, http.StatusForbidden, "You can only delete your own account")
		return
	}

	if err := h.commands.Remove(c.Request.Context(), cqrs.DeleteAccountCommand{UserID: userID}); err != nil {
		respondWithServiceError(c, err, "Failed to delete user")
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *AccountHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	account, err := h.commands.ResetPassword(c.Request.Context(), cqrs.ResetPasswordCommand{
		Email:    req.Email,
		Code:     req.Code,
		Password: req.Password,
	})
	if err != nil {
		respondWithServiceError(c, err, "Failed to reset password")
		return
	}

	c.JSON(http.StatusOK, account)
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// userIDParam returns the :userId path parameter. Ids that are not
// well-formed can match no account and are answered with 404 directly.
func userIDParam(c *gin.Context) (string, bool) {
	userID := c.Param("userId")
	if !utils.ValidateUserID(userID) {
		middleware.RespondWithError(c, http.StatusNotFound, "User not found")
		return "", false
	}
	return userID, true
}

// canManage reports whether the token holder may modify userID's account.
func canManage(c *gin.Context, userID string) bool {
	if requester, ok := middleware.GetUserID(c); ok && requester == userID {
		return true
	}
	return middleware.HasAnyRole(c, models.RoleSuper, models.RoleAdmin)
}

func respondWithServiceError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		middleware.RespondWithError(c, http.StatusNotFound, "User not found")
	case errors.Is(err, models.ErrConflict):
		middleware.RespondWithError(c, http.StatusConflict, "User already exists")
	case errors.Is(err, models.ErrInvalidReset):
		middleware.RespondWithError(c, http.StatusForbidden, "Verification code expired or invalid")
	case errors.Is(err, models.ErrInvalidInput):
		middleware.RespondWithError(c, http.StatusBadRequest, err.Error())
	default:
		_ = c.Error(err)
		middleware.RespondWithError(c, http.StatusInternalServerError, fallback)
	}
}
