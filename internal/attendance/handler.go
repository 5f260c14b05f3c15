package attendance

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/goncho07/PeeposAsistencia-sub001/internal/platform/auth"
	"github.com/goncho07/PeeposAsistencia-sub001/internal/roster"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	// スキャン投入（改札・QRリーダーの境界から呼ばれる）
	r.POST("/tenants/:tenant_id/scans", h.CreateScan)

	// 台帳の参照
	r.GET("/tenants/:tenant_id/attendances", h.ListRecords)
	r.GET("/tenants/:tenant_id/attendances/:ulid", h.GetRecord)
}

// CreateScan godoc
// @Summary  入退場スキャン1件の分類・記録
// @Tags     attendance
// @Accept   json
// @Produce  json
// @Param    tenant_id path int true "tenant id"
// @Param    body body ScanRequest true "scan"
// @Success  201 {object} RecordResponse
// @Failure  409 {object} errorDTO "ALREADY_RECORDED"
// @Failure  422 {object} errorDTO "NOT_AN_ATTENDANCE_DAY / CONFIG_MISSING"
// @Failure  503 {object} errorDTO "BUSY"
// @Router   /tenants/{tenant_id}/scans [post]
func (h *Handler) CreateScan(c *gin.Context) {
	tenantID, ok := tenantParam(c)
	if !ok {
		return
	}
	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "invalid json or missing required fields"))
		return
	}

	in := ScanInput{
		TenantID:   tenantID,
		Ref:        roster.AttendableRef{Type: roster.AttendableType(req.AttendableType), ID: req.AttendableID},
		Kind:       req.Kind,
		RecordedBy: c.GetString(auth.CtxUserIDKey),
		DeviceType: req.DeviceType,
	}
	if req.Timestamp != nil && *req.Timestamp != "" {
		t, err := time.Parse(time.RFC3339, *req.Timestamp)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "timestamp must be RFC3339"))
			return
		}
		in.At = t
	}

	rec, err := h.svc.ClassifyScan(c.Request.Context(), in)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.Header("Location", "/attendances/"+rec.ULID)
	c.JSON(http.StatusCreated, toDTO(*rec))
}

func (h *Handler) ListRecords(c *gin.Context) {
	tenantID, ok := tenantParam(c)
	if !ok {
		return
	}
	q := ListQuery{
		Limit:  parseIntDefault(c.Query("limit"), DefaultPageLimit),
		Offset: parseIntDefault(c.Query("offset"), 0),
	}
	if v := c.Query("attendable_type"); v != "" {
		q.AttendableType = &v
	}
	if v := c.Query("attendable_id"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 64); err == nil {
			q.AttendableID = &id
		}
	}
	if v := c.Query("on"); v != "" {
		q.On = &v
	}
	if v := c.Query("from"); v != "" {
		q.From = &v
	}
	if v := c.Query("to"); v != "" {
		q.To = &v
	}
	if v := c.Query("entry_status"); v != "" {
		q.EntryStatus = &v
	}

	rows, total, err := h.svc.List(c.Request.Context(), tenantID, q)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": rows, "total": total})
}

func (h *Handler) GetRecord(c *gin.Context) {
	tenantID, ok := tenantParam(c)
	if !ok {
		return
	}
	res, err := h.svc.GetByULID(c.Request.Context(), tenantID, c.Param("ulid"))
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

// ---------- helpers ----------

func parseIntDefault(s string, d int) int {
	if s == "" {
		return d
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return v
}

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
