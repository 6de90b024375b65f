// internal/handlers/recipe/recipe_handler.go
package recipe

import (
	"net/http"
	"strconv"

	"wellnest-service/internal/middleware"
	xerrors "wellnest-service/internal/pkg/errors"
	"wellnest-service/internal/pkg/response"
	service "wellnest-service/internal/service/recipe"

	"github.com/gin-gonic/gin"
)

type RecipeHandler struct {
	recipeService *service.RecipeService
}

func NewRecipeHandler(recipeService *service.RecipeService) *RecipeHandler {
	return &RecipeHandler{recipeService: recipeService}
}

// RegisterView consumes one of today's free views for the caller.
func (h *RecipeHandler) RegisterView(c *gin.Context) {
	subscriberID := middleware.MustGetIdentityID(c)

	recipeID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ValidationError(c, "invalid recipe ID", err)
		return
	}

	remaining, err := h.recipeService.RegisterView(c.Request.Context(), subscriberID, recipeID)
	if err != nil {
		switch {
		case xerrors.Is(err, xerrors.ErrQuotaExhausted):
			response.Error(c, http.StatusForbidden, "daily free view limit reached", err)
		case xerrors.Is(err, xerrors.ErrStorageUnavailable):
			response.ServiceUnavailable(c, "failed to register view", err)
		default:
			response.Error(c, http.StatusInternalServerError, "failed to register view", err)
		}
		return
	}

	response.Success(c, http.StatusOK, "view registered", gin.H{"remaining_views": remaining})
}

// RemainingViews reports today's remaining free views.
func (h *RecipeHandler) RemainingViews(c *gin.Context) {
	subscriberID := middleware.MustGetIdentityID(c)

	remaining, err := h.recipeService.RemainingViews(c.Request.Context(), subscriberID)
	if err != nil {
		if xerrors.Is(err, xerrors.ErrStorageUnavailable) {
			response.ServiceUnavailable(c, "failed to read remaining views", err)
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to read remaining views", err)
		return
	}

	response.Success(c, http.StatusOK, "remaining views", gin.H{"remaining_views": remaining})
}
