package justification

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/goncho07/PeeposAsistencia-sub001/internal/platform/auth"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	r.POST("/tenants/:tenant_id/justifications", h.Create)
	r.GET("/tenants/:tenant_id/justifications", h.List)
	r.DELETE("/tenants/:tenant_id/justifications/:ulid", h.Revoke)
}

// Create godoc
// @Summary  事由（欠席・早退・遅刻の承認済み届け）の登録
// @Tags     justifications
// @Accept   json
// @Produce  json
// @Param    tenant_id path int true "tenant id"
// @Param    body body CreateJustificationRequest true "justification"
// @Success  201 {object} JustificationResponse
// @Router   /tenants/{tenant_id}/justifications [post]
func (h *Handler) Create(c *gin.Context) {
	tenantID, ok := tenantParam(c)
	if !ok {
		return
	}
	var req CreateJustificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "invalid json or missing required fields"))
		return
	}

	createdBy := c.GetString(auth.CtxUserIDKey)
	res, err := h.svc.Create(c.Request.Context(), tenantID, createdBy, req)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.Header("Location", "/justifications/"+res.ULID)
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) List(c *gin.Context) {
	tenantID, ok := tenantParam(c)
	if !ok {
		return
	}
	f := ListFilter{}
	if v := c.Query("type"); v != "" {
		f.Type = &v
	}
	if v := c.Query("attendable_type"); v != "" {
		f.AttendableType = &v
	}
	if v := c.Query("attendable_id"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 64); err == nil {
			f.AttendableID = &id
		}
	}
	if v := c.Query("from"); v != "" {
		f.From = &v
	}
	if v := c.Query("to"); v != "" {
		f.To = &v
	}
	if v := c.Query("include_revoked"); v == "true" || v == "1" {
		f.IncludeRevoked = true
	}

	res, err := h.svc.List(c.Request.Context(), tenantID, f)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Revoke(c *gin.Context) {
	tenantID, ok := tenantParam(c)
	if !ok {
		return
	}
	if err := h.svc.Revoke(c.Request.Context(), tenantID, c.Param("ulid")); err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "revoked"})
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
