package content

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/duet-robotics/drc-backend/internal/collection/domain"
	"github.com/duet-robotics/drc-backend/internal/sanitize"
)

const (
	metaTitleMax       = 60
	metaDescriptionMax = 160
	wordsPerMinute     = 200
)

func str(fields map[string]any, key string) string {
	s, _ := fields[key].(string)
	return strings.TrimSpace(s)
}

// truncate cuts s to max runes, ending in "..." when it had to cut.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

func slugFromTitle(fields map[string]any) {
	if slug := str(fields, "slug"); slug != "" {
		fields["slug"] = domain.Slugify(slug)
		return
	}
	if title := str(fields, "title"); title != "" {
		fields["slug"] = domain.Slugify(title)
	}
}

func normalizeEvent(fields map[string]any, env domain.Env, errs domain.FieldErrors) {
	slugFromTitle(fields)

	date, ok := fields["date"].(map[string]any)
	if !ok {
		return
	}
	day, month := str(date, "day"), str(date, "month")
	if day == "" || month == "" {
		return
	}
	year := str(date, "year")
	if year == "" {
		year = strconv.Itoa(env.Now.Year())
	}

	t, err := parseEventDate(day, month, year)
	if err != nil {
		errs.Add("date", err.Error())
		return
	}
	date["fullDate"] = t.Format(time.RFC3339)
}

func parseEventDate(day, month, year string) (time.Time, error) {
	if m := []rune(month); len(m) > 0 {
		month = strings.ToUpper(string(m[:1])) + strings.ToLower(string(m[1:]))
	}
	value := month + " " + day + " " + year
	for _, layout := range []string{"January 2 2006", "Jan 2 2006", "1 2 2006"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not a valid date", value)
}

func normalizeBlog(fields map[string]any, env domain.Env, _ domain.FieldErrors) {
	slugFromTitle(fields)

	title := str(fields, "title")
	metaTitle := str(fields, "metaTitle")
	if metaTitle == "" {
		metaTitle = title
	}
	if metaTitle != "" {
		fields["metaTitle"] = truncate(metaTitle, metaTitleMax)
	}

	metaDescription := str(fields, "metaDescription")
	if metaDescription == "" {
		metaDescription = str(fields, "excerpt")
	}
	if metaDescription != "" {
		fields["metaDescription"] = truncate(metaDescription, metaDescriptionMax)
	}

	if _, ok := fields["readTime"]; !ok {
		if body := str(fields, "content"); body != "" {
			words := len(strings.Fields(sanitize.Text(body)))
			fields["readTime"] = math.Max(1, math.Ceil(float64(words)/wordsPerMinute))
		}
	}

	if _, ok := fields["publishedAt"]; !ok {
		fields["publishedAt"] = env.Now.UTC().Format(time.RFC3339)
	}

	if str(fields, "authorImage") == "" && env.Placeholder != nil {
		if author := str(fields, "author"); author != "" {
			fields["authorImage"] = env.Placeholder(author)
		}
	}
}
