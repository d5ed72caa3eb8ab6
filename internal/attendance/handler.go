package attendance

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"EMS-backend/internal/platform/auth"
)

type Handler struct{ svc *Service }

// RegisterRoutes: 本人操作のエンドポイント。対象従業員は認証トークンの sub。
func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	r.POST("/attendance/clock-in", h.ClockIn)
	r.POST("/attendance/away", h.GoAway)
	r.POST("/attendance/resume", h.Resume)
	r.POST("/attendance/clock-out", h.ClockOut)
	r.GET("/attendance/today", h.GetToday)
	r.GET("/attendance/history", h.GetHistory)
	r.GET("/attendance/export", h.Export)
}

// RegisterAdminRoutes: 管理者専用（上書き・ロスター）。
func RegisterAdminRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	r.PUT("/attendance/override", h.Override)
	r.GET("/attendance/status", h.RosterStatus)
}

// ---------- handlers ----------

func (h *Handler) ClockIn(c *gin.Context) {
	res, err := h.svc.ClockIn(c.Request.Context(), subjectID(c))
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) GoAway(c *gin.Context) {
	res, err := h.svc.GoAway(c.Request.Context(), subjectID(c))
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Resume(c *gin.Context) {
	res, err := h.svc.Resume(c.Request.Context(), subjectID(c))
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ClockOut(c *gin.Context) {
	var req ClockOutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "report is required"))
		return
	}
	res, err := h.svc.ClockOut(c.Request.Context(), subjectID(c), req.Report)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) GetToday(c *gin.Context) {
	res, err := h.svc.GetToday(c.Request.Context(), subjectID(c))
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) GetHistory(c *gin.Context) {
	month, year, err := monthYearParams(c)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	res, err := h.svc.GetHistory(c.Request.Context(), subjectID(c), month, year)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Export(c *gin.Context) {
	month, year, err := monthYearParams(c)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	employeeID := subjectID(c)
	data, err := h.svc.ExportMonthCSV(c.Request.Context(), employeeID, month, year, c.Query("encoding"))
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	filename := fmt.Sprintf("attendance_%s_%04d-%02d.csv", employeeID, year, month)
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/csv", data)
}

func (h *Handler) Override(c *gin.Context) {
	var req OverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "invalid json or missing required fields"))
		return
	}
	res, err := h.svc.Override(c.Request.Context(), subjectID(c), req)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) RosterStatus(c *gin.Context) {
	res, err := h.svc.RosterStatus(c.Request.Context())
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

// ---------- helpers ----------

func subjectID(c *gin.Context) string {
	return c.GetString(auth.CtxUserIDKey)
}

func monthYearParams(c *gin.Context) (month, year int, err error) {
	month, err = strconv.Atoi(c.Query("month"))
	if err != nil {
		return 0, 0, ErrInvalid("month must be a number")
	}
	year, err = strconv.Atoi(c.Query("year"))
	if err != nil {
		return 0, 0, ErrInvalid("year must be a number")
	}
	return month, year, nil
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
