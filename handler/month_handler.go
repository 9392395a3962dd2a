package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yusuke2309/pdf-estimate-ocr/dto"
	"github.com/yusuke2309/pdf-estimate-ocr/utils"
)

type MonthHandler struct{}

func NewMonthHandler() *MonthHandler {
	return &MonthHandler{}
}

// DetectMonths handles POST /api/detect_months: the browser sends the
// filenames it just received and gets the detected billing month per
// file, or null when no heuristic matched.
func (h *MonthHandler) DetectMonths(c *gin.Context) {
	var req dto.DetectMonthsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "PROCESSING_FAILED",
			Message: "filenames is required",
			Code:    http.StatusBadRequest,
		})
		return
	}

	months := make(map[string]*int, len(req.Filenames))
	for _, filename := range req.Filenames {
		if month, ok := utils.DetectMonth(filename); ok {
			m := month
			months[filename] = &m
		} else {
			months[filename] = nil
		}
	}

	c.JSON(http.StatusOK, dto.DetectMonthsResponse{Months: months})
}
