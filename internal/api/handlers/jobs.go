package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/orrn/printqueue/internal/core"
)

type PrintQueue interface {
	Enqueue(printerName, text string, settings *core.FormatSettings) string
	Status() core.QueueStatus
}

type PrintRequest struct {
	PrinterName string               `json:"printerName"`
	Text        string               `json:"text"`
	Settings    *core.FormatSettings `json:"settings"`
}

type JobHandler struct {
	queue    PrintQueue
	printers PrinterDirectory
}

func NewJobHandler(queue PrintQueue, printers PrinterDirectory) *JobHandler {
	return &JobHandler{
		queue:    queue,
		printers: printers,
	}
}

func (h *JobHandler) SubmitPrintJob(c *gin.Context) {
	h.submit(c, "print job added to queue")
}

func (h *JobHandler) SubmitAdvancedPrintJob(c *gin.Context) {
	h.submit(c, "advanced print job added to queue")
}

// submit checks only that the printer is installed. Reachability is decided
// by the worker when the job runs.
func (h *JobHandler) submit(c *gin.Context, message string) {
	var req PrintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "invalid request body",
			"error":   err.Error(),
		})
		return
	}

	if strings.TrimSpace(req.PrinterName) == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "printer name is required",
		})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "text to print is required",
		})
		return
	}

	if !h.printers.Exists(req.PrinterName) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success":           false,
			"message":           fmt.Sprintf("printer '%s' not found", req.PrinterName),
			"availablePrinters": h.printers.List(),
		})
		return
	}

	jobID := h.queue.Enqueue(req.PrinterName, req.Text, req.Settings)

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"message":     message,
		"jobId":       jobID,
		"printerName": req.PrinterName,
		"settings":    req.Settings,
		"queueStatus": h.queue.Status(),
	})
}

func (h *JobHandler) GetQueueStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"status":  h.queue.Status(),
	})
}
