package report

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/goncho07/PeeposAsistencia-sub001/internal/roster"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	r.GET("/tenants/:tenant_id/reports/attendance", h.GetReport)
	r.GET("/tenants/:tenant_id/reports/attendance/export", h.ExportCSV)
}

// GetReport godoc
// @Summary  期間・絞り込み条件つきの出欠統計
// @Tags     reports
// @Produce  json
// @Param    tenant_id path int true "tenant id"
// @Param    from query string false "YYYY-MM-DD（bimester 指定時は不要）"
// @Param    to query string false "YYYY-MM-DD"
// @Param    bimester query string false "この日付を含むビメストレで集計 YYYY-MM-DD"
// @Success  200 {object} Statistics
// @Router   /tenants/{tenant_id}/reports/attendance [get]
func (h *Handler) GetReport(c *gin.Context) {
	tenantID, from, to, f, ok := h.parseQuery(c)
	if !ok {
		return
	}
	stats, err := h.svc.Aggregate(c.Request.Context(), tenantID, from, to, f)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ExportCSV: 同じ集計を Windows-1252 の CSV で返す
func (h *Handler) ExportCSV(c *gin.Context) {
	tenantID, from, to, f, ok := h.parseQuery(c)
	if !ok {
		return
	}
	stats, err := h.svc.Aggregate(c.Request.Context(), tenantID, from, to, f)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}

	filename := "asistencia_" + stats.From + "_" + stats.To + ".csv"
	c.Header("Content-Type", "text/csv; charset=windows-1252")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	if err := WriteCSV(c.Writer, stats); err != nil {
		c.Status(http.StatusInternalServerError)
	}
}

func (h *Handler) parseQuery(c *gin.Context) (uint64, time.Time, time.Time, Filters, bool) {
	var zero time.Time
	tenantID, err := strconv.ParseUint(c.Param("tenant_id"), 10, 64)
	if err != nil || tenantID == 0 {
		c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "tenant_id must be numeric"))
		return 0, zero, zero, Filters{}, false
	}

	var from, to time.Time
	if v := c.Query("bimester"); v != "" {
		d, err := time.ParseInLocation(DateLayout, v, time.UTC)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "bimester must be YYYY-MM-DD"))
			return 0, zero, zero, Filters{}, false
		}
		from, to, err = h.svc.ResolveBimesterRange(c.Request.Context(), tenantID, d)
		if err != nil {
			c.JSON(toHTTPStatus(err), errorFromErr(err))
			return 0, zero, zero, Filters{}, false
		}
	} else {
		from, err = time.ParseInLocation(DateLayout, c.Query("from"), time.UTC)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "from must be YYYY-MM-DD"))
			return 0, zero, zero, Filters{}, false
		}
		to, err = time.ParseInLocation(DateLayout, c.Query("to"), time.UTC)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "to must be YYYY-MM-DD"))
			return 0, zero, zero, Filters{}, false
		}
	}

	f := Filters{}
	if v := c.Query("type"); v != "" {
		t := roster.AttendableType(v)
		if !t.Valid() {
			c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "type must be STUDENT, TEACHER or STAFF"))
			return 0, zero, zero, Filters{}, false
		}
		f.Type = &t
	}
	if v := c.Query("level"); v != "" {
		f.Level = &v
	}
	if v := c.Query("grade"); v != "" {
		f.Grade = &v
	}
	if v := c.Query("section"); v != "" {
		f.Section = &v
	}
	if v := c.Query("shift"); v != "" {
		f.Shift = &v
	}
	return tenantID, from, to, f, true
}

// ---------- helpers ----------

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
