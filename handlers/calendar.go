package handlers

import (
	"net/http"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/gin-gonic/gin"

	"gigcal/models"
	"gigcal/services/availability"
)

// defaultFeedDays is the window served when a subscriber omits from/to.
const defaultFeedDays = 90

// CalendarHandler publishes booked and held days as an iCalendar feed so
// they can be subscribed to from any calendar client.
type CalendarHandler struct {
	Service availability.AvailabilityService
	Name    string
	Clock   func() time.Time
}

func NewCalendarHandler(svc availability.AvailabilityService, name string) *CalendarHandler {
	return &CalendarHandler{Service: svc, Name: name}
}

func (ch *CalendarHandler) now() time.Time {
	if ch.Clock != nil {
		return ch.Clock().UTC()
	}
	return time.Now().UTC()
}

// Feed serves GET /api/availability/calendar.ics?from&to. Free days are
// omitted; notes and hold expiry stay private.
func (ch *CalendarHandler) Feed(c *gin.Context) {
	now := ch.now()
	from, to := c.Query("from"), c.Query("to")
	if from == "" {
		from = now.Format(models.DateLayout)
	}
	if to == "" {
		start, err := availability.ParseDate(from)
		if err != nil {
			respondError(c, err)
			return
		}
		to = start.AddDate(0, 0, defaultFeedDays-1).Format(models.DateLayout)
	}

	days, err := ch.Service.RangeStatus(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", `inline; filename="availability.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(buildCalendar(ch.Name, days, now)))
}

func buildCalendar(name string, days []models.DayStatus, stamp time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//gigcal//availability//EN")
	if name != "" {
		cal.SetName(name)
		cal.SetXWRCalName(name)
	}

	for _, day := range days {
		if day.Status == models.StatusFree {
			continue
		}
		start, err := availability.ParseDate(day.Date)
		if err != nil {
			continue
		}

		event := cal.AddEvent(day.Date + "@gigcal")
		event.SetDtStampTime(stamp)
		event.SetAllDayStartAt(start)
		event.SetAllDayEndAt(start.AddDate(0, 0, 1))
		if day.Status == models.StatusBusy {
			event.SetSummary("Booked")
			event.SetStatus(ical.ObjectStatusConfirmed)
		} else {
			event.SetSummary("On hold")
			event.SetStatus(ical.ObjectStatusTentative)
		}
	}
	return cal.Serialize()
}
