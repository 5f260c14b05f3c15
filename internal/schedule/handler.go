package schedule

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	// スケジュール設定の読み書き
	r.GET("/tenants/:tenant_id/schedule-settings", h.ListSettings)
	r.PUT("/tenants/:tenant_id/schedule-settings", h.PutSettings)
}

// ListSettings godoc
// @Summary  スケジュール設定の一覧
// @Tags     schedule
// @Produce  json
// @Param    tenant_id path int true "tenant id"
// @Success  200 {object} SettingsResponse
// @Router   /tenants/{tenant_id}/schedule-settings [get]
func (h *Handler) ListSettings(c *gin.Context) {
	tenantID, ok := tenantParam(c)
	if !ok {
		return
	}
	settings, err := h.svc.store.ListByPrefix(c.Request.Context(), tenantID, "")
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody(CodeInternal, "failed to list settings"))
		return
	}
	c.JSON(http.StatusOK, SettingsResponse{TenantID: tenantID, Settings: settings})
}

// PutSettings: 設定の一括upsert。値の妥当性は時刻系キーのみ検査する
func (h *Handler) PutSettings(c *gin.Context) {
	tenantID, ok := tenantParam(c)
	if !ok {
		return
	}
	var req PutSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "invalid json"))
		return
	}
	for k, v := range req.Settings {
		if strings.HasSuffix(k, "_entry") || strings.HasSuffix(k, "_exit") {
			if _, err := ParseClock(v); err != nil {
				c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, k+" must be HH:MM"))
				return
			}
		}
	}
	for k, v := range req.Settings {
		if err := h.svc.store.Put(c.Request.Context(), tenantID, k, v); err != nil {
			c.JSON(http.StatusInternalServerError, errorBody(CodeInternal, "failed to save "+k))
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "saved"})
}

// ---------- helpers ----------

func tenantParam(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("tenant_id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "tenant_id must be numeric"))
		return 0, false
	}
	return id, true
}

type errorDTO struct {
	Error struct {
		Code    Code   `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func errorBody(code Code, msg string) errorDTO {
	var e errorDTO
	e.Error.Code = code
	e.Error.Message = msg
	return e
}
