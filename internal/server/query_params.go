package server

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/fieldbook/pkg/db/pagination"
)

// documentListQuery is shared by every document list endpoint.
type documentListQuery struct {
	pagination.Pagination
	Status      string `form:"status"`
	CustomerRef string `form:"customer_ref"`
	ProjectRef  string `form:"project_ref"`
	CreatedFrom string `form:"created_from"`
	CreatedTo   string `form:"created_to"`
}

type documentFilter struct {
	Pagination  pagination.Pagination
	Status      string
	CustomerRef string
	ProjectRef  string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

func bindDocumentFilter(c *gin.Context) (documentFilter, error) {
	var query documentListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		return documentFilter{}, bindError(err)
	}

	from, to, err := parseTimeRange(timeParam{"created_from", query.CreatedFrom}, timeParam{"created_to", query.CreatedTo})
	if err != nil {
		return documentFilter{}, err
	}

	query.PageToken = strings.TrimSpace(query.PageToken)
	return documentFilter{
		Pagination:  query.Pagination,
		Status:      strings.TrimSpace(query.Status),
		CustomerRef: strings.TrimSpace(query.CustomerRef),
		ProjectRef:  strings.TrimSpace(query.ProjectRef),
		CreatedFrom: from,
		CreatedTo:   to,
	}, nil
}

// timeParam is a raw query value and the parameter it came from.
type timeParam struct {
	name  string
	value string
}

// parseTimeRange reads an inclusive range. Either end may be an RFC 3339
// timestamp or a date; a date as the upper bound covers the whole day.
func parseTimeRange(from, to timeParam) (*time.Time, *time.Time, error) {
	start, ok := parseBound(from.value, false)
	if !ok {
		return nil, nil, invalidTimeParam(from.name)
	}
	end, ok := parseBound(to.value, true)
	if !ok {
		return nil, nil, invalidTimeParam(to.name)
	}
	return start, end, nil
}

func invalidTimeParam(name string) error {
	return newValidationError(name, "invalid_"+name, "invalid "+name)
}

func parseBound(value string, upper bool) (*time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, true
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return &ts, true
	}
	day, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return nil, false
	}
	if upper {
		day = day.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return &day, true
}

func parseOptionalBool(value string) (*bool, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
