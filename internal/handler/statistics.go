package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// HandleLicenseStatistics serves ledger statistics for a date range.
func (h *Handler) HandleLicenseStatistics(c *fiber.Ctx) error {
	startDate := c.Query("start_date")
	endDate := c.Query("end_date")

	var start, end time.Time
	var err error

	if startDate != "" {
		start, err = time.Parse("2006-01-02", startDate)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"code":    400,
				"message": "Invalid start date",
				"errors": []fiber.Map{
					{"field": "start_date", "message": "date must be YYYY-MM-DD"},
				},
			})
		}
	} else {
		// default to the last 30 days
		start = time.Now().AddDate(0, 0, -30)
	}

	if endDate != "" {
		end, err = time.Parse("2006-01-02", endDate)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"code":    400,
				"message": "Invalid end date",
				"errors": []fiber.Map{
					{"field": "end_date", "message": "date must be YYYY-MM-DD"},
				},
			})
		}
		// include the whole end day
		end = end.Add(24*time.Hour - time.Nanosecond)
	} else {
		end = time.Now()
	}

	stats, err := h.stats.Compute(start, end)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to compute statistics")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"code":    500,
			"message": "Failed to compute statistics",
		})
	}

	return c.JSON(fiber.Map{
		"code":    200,
		"message": "success",
		"data":    stats,
	})
}
