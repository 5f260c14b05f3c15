package calendar

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	// 年度セットアップ
	r.POST("/tenants/:tenant_id/academic-years", h.CreateAcademicYear)
	r.GET("/tenants/:tenant_id/academic-years/:year", h.GetAcademicYear)
	r.POST("/tenants/:tenant_id/academic-years/:year/finalize", h.FinalizeAcademicYear)

	// 登校日プローブ（スキャナ側の事前チェック用）
	r.GET("/tenants/:tenant_id/calendar/:date", h.GetWorkingDay)
	r.GET("/tenants/:tenant_id/calendar/:date/events", h.ListEvents)
}

// CreateAcademicYear godoc
// @Summary  年度とビメストレの一括登録
// @Tags     calendar
// @Accept   json
// @Produce  json
// @Param    tenant_id path int true "tenant id"
// @Param    body body CreateAcademicYearRequest true "year with bimesters"
// @Success  201 {object} AcademicYearResponse
// @Router   /tenants/{tenant_id}/academic-years [post]
func (h *Handler) CreateAcademicYear(c *gin.Context) {
	tenantID, ok := tenantParam(c)
	if !ok {
		return
	}
	var req CreateAcademicYearRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "invalid json or missing required fields"))
		return
	}
	res, err := h.svc.CreateAcademicYear(c.Request.Context(), tenantID, req)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) GetAcademicYear(c *gin.Context) {
	tenantID, ok := tenantParam(c)
	if !ok {
		return
	}
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "year must be numeric"))
		return
	}
	res, err := h.svc.GetAcademicYear(c.Request.Context(), tenantID, year)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) FinalizeAcademicYear(c *gin.Context) {
	tenantID, ok := tenantParam(c)
	if !ok {
		return
	}
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "year must be numeric"))
		return
	}
	if err := h.svc.FinalizeAcademicYear(c.Request.Context(), tenantID, year); err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "finalized"})
}

// GetWorkingDay godoc
// @Summary  登校日判定とビメストレ解決
// @Tags     calendar
// @Produce  json
// @Param    tenant_id path int true "tenant id"
// @Param    date path string true "YYYY-MM-DD"
// @Success  200 {object} WorkingDayResponse
// @Router   /tenants/{tenant_id}/calendar/{date} [get]
func (h *Handler) GetWorkingDay(c *gin.Context) {
	tenantID, ok := tenantParam(c)
	if !ok {
		return
	}
	date, err := time.ParseInLocation(DateLayout, c.Param("date"), time.UTC)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "date must be YYYY-MM-DD"))
		return
	}

	working, err := h.svc.IsWorkingDay(c.Request.Context(), tenantID, date)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	resp := WorkingDayResponse{Date: date.Format(DateLayout), Working: working}

	if b, err := h.svc.ResolveBimester(c.Request.Context(), tenantID, date); err == nil && b != nil {
		resp.Bimester = &BimesterResponse{
			BimesterID: b.BimesterID,
			Seq:        b.Seq,
			Name:       b.Name,
			StartDate:  b.StartDate,
			EndDate:    b.EndDate,
		}
	}
	c.JSON(http.StatusOK, resp)
}

// ListEvents godoc
// @Summary  その日を覆うカレンダーイベント一覧
// @Tags     calendar
// @Produce  json
// @Param    tenant_id path int true "tenant id"
// @Param    date path string true "YYYY-MM-DD"
// @Success  200 {array} EventResponse
// @Router   /tenants/{tenant_id}/calendar/{date}/events [get]
func (h *Handler) ListEvents(c *gin.Context) {
	tenantID, ok := tenantParam(c)
	if !ok {
		return
	}
	date, err := time.ParseInLocation(DateLayout, c.Param("date"), time.UTC)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "date must be YYYY-MM-DD"))
		return
	}

	events, err := h.svc.EventsOn(c.Request.Context(), tenantID, date)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	out := make([]EventResponse, 0, len(events))
	for _, ev := range events {
		out = append(out, EventResponse{
			EventID:   ev.EventID,
			Name:      ev.Name,
			StartDate: ev.StartDate,
			EndDate:   ev.EndDate,
			Working:   ev.Working,
			Recurring: ev.Recurring,
			Global:    ev.TenantID == nil,
		})
	}
	c.JSON(http.StatusOK, out)
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
