package handler // handler defines the HTTP handlers of the API

import (
	"fmt"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

// dateFormat is the wire format for calendar dates in query and body
// parameters.  Dates are interpreted as UTC calendar days.
const dateFormat = "2006-01-02"

// parseIDParam parses a numeric path parameter into a uint64.  Zero is
// rejected because identifiers start at one.
func parseIDParam(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

// parseDate parses a "YYYY-MM-DD" value into a UTC midnight timestamp.
func parseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(dateFormat, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return t, nil
}
