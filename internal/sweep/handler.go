package sweep

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	// 手動トリガ（バックフィル用）と状態参照
	r.POST("/tenants/:tenant_id/sweeps/:date", h.Trigger)
	r.GET("/tenants/:tenant_id/sweeps/:date", h.Status)
}

// Trigger godoc
// @Summary  欠席スイープの手動実行（バックフィル）
// @Tags     sweep
// @Produce  json
// @Param    tenant_id path int true "tenant id"
// @Param    date path string true "YYYY-MM-DD"
// @Success  200 {object} Result
// @Failure  409 {object} errorDTO "already running"
// @Router   /tenants/{tenant_id}/sweeps/{date} [post]
func (h *Handler) Trigger(c *gin.Context) {
	tenantID, ok := tenantParam(c)
	if !ok {
		return
	}
	date, err := time.ParseInLocation(DateLayout, c.Param("date"), time.UTC)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "date must be YYYY-MM-DD"))
		return
	}

	res, err := h.svc.RunForTenant(c.Request.Context(), tenantID, date)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Status(c *gin.Context) {
	tenantID, ok := tenantParam(c)
	if !ok {
		return
	}
	run, err := h.svc.RunStatus(c.Request.Context(), tenantID, c.Param("date"))
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	if run == nil {
		c.JSON(http.StatusNotFound, errorBody(Code("NOT_FOUND"), "no sweep run for this date"))
		return
	}
	c.JSON(http.StatusOK, run)
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

func errorFromErr(err error) errorDTO {
	var msg string
	var code Code = CodeInternal
	if api, ok := err.(*APIError); ok {
		code, msg = api.Code, api.Message
	} else {
		msg = err.Error()
	}
	return errorBody(code, msg)
}
