package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/orrn/printqueue/internal/core"
	"github.com/orrn/printqueue/internal/db"
)

const (
	defaultCounterDays = 30
	maxCounterDays     = 366
)

type PrinterDirectory interface {
	List() []string
	Exists(name string) bool
	GetPrinterInfo(name string) (*core.PrinterInfo, bool)
	ListInfo() []*core.PrinterInfo
}

type CounterReader interface {
	GetCounters(ctx context.Context, printerName string, days int) ([]*db.PrintCounter, error)
	GetTotal(ctx context.Context, printerName string) (int64, error)
}

type PrinterHandler struct {
	printers PrinterDirectory
	counters CounterReader
}

// counters may be nil when the counter store is disabled.
func NewPrinterHandler(printers PrinterDirectory, counters CounterReader) *PrinterHandler {
	return &PrinterHandler{
		printers: printers,
		counters: counters,
	}
}

func (h *PrinterHandler) ListPrinters(c *gin.Context) {
	printers := h.printers.List()
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"count":    len(printers),
		"printers": printers,
	})
}

func (h *PrinterHandler) ListPrintersDetailed(c *gin.Context) {
	printers := h.printers.ListInfo()
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"count":    len(printers),
		"printers": printers,
	})
}

func (h *PrinterHandler) GetPrinterInfo(c *gin.Context) {
	name := c.Param("name")
	info, ok := h.printers.GetPrinterInfo(name)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": fmt.Sprintf("printer '%s' not found", name),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"printer": info,
	})
}

func (h *PrinterHandler) GetCounters(c *gin.Context) {
	name := c.Param("name")
	if !h.printers.Exists(name) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": fmt.Sprintf("printer '%s' not found", name),
		})
		return
	}
	if h.counters == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"message": "print counters are not enabled",
		})
		return
	}

	days := defaultCounterDays
	if v := c.Query("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxCounterDays {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": fmt.Sprintf("days must be between 1 and %d", maxCounterDays),
			})
			return
		}
		days = n
	}

	ctx := c.Request.Context()
	counters, err := h.counters.GetCounters(ctx, name, days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "failed to retrieve counters",
		})
		return
	}
	total, err := h.counters.GetTotal(ctx, name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "failed to retrieve counters",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"printerName": name,
		"days":        days,
		"total":       total,
		"byDate":      counters,
	})
}
