// Package cleardarksky reads forecast tables from cleardarksky.com clock
// pages and turns them into forecast series.
package cleardarksky

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"darksky-monitor/internal/forecast"
)

var (
	// ErrUnavailable means no series could be produced after every attempt.
	ErrUnavailable = errors.New("forecast unavailable")
	// ErrNoForecastTable means the page has no ckmap image map.
	ErrNoForecastTable = errors.New("forecast table not found")
)

const (
	lastUpdatedCue = "Last updated 20"
	rowStartX      = 134
)

// rowAttributes maps the y coordinate of an image map area to its row.
var rowAttributes = map[int]forecast.Attribute{
	77:  forecast.CloudCover,
	93:  forecast.Transparency,
	109: forecast.Seeing,
	125: forecast.Darkness,
	173: forecast.Smoke,
	189: forecast.Wind,
	205: forecast.Humidity,
	221: forecast.Temperature,
}

var intRe = regexp.MustCompile(`\d+`)

// fallbackDate is used when the page carries no generation date.
var fallbackDate = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

// ParsePage extracts the generation date and the forecast cells, in page
// order, from a clock page.
func ParsePage(r io.Reader) (time.Time, []forecast.Reading, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return time.Time{}, nil, fmt.Errorf("parse page: %w", err)
	}

	start := extractDate(doc)

	table := doc.Find(`map[name="ckmap"]`).First()
	if table.Length() == 0 {
		return start, nil, ErrNoForecastTable
	}

	var (
		readings []forecast.Reading
		day      int
	)
	table.Find("area").Each(func(_ int, area *goquery.Selection) {
		title, hasTitle := area.Attr("title")
		coords, hasCoords := area.Attr("coords")
		if !hasTitle || !hasCoords {
			return
		}

		x, y, ok := parseCoords(coords)
		if !ok {
			return
		}
		if x == rowStartX {
			day = 0
		}
		attr, ok := rowAttributes[y]
		if !ok {
			return
		}

		ints := intRe.FindAllString(title, 2)
		if len(ints) < 2 || !strings.HasPrefix(title, ints[0]) {
			return
		}
		hour, _ := strconv.Atoi(ints[0])
		minute, _ := strconv.Atoi(ints[1])
		if hour == 0 && minute == 0 {
			day++
		}

		readings = append(readings, forecast.Reading{
			Time:      start.AddDate(0, 0, day).Add(time.Duration(hour) * time.Hour),
			Attribute: attr,
			Text:      cellText(title),
		})
	})

	return start, readings, nil
}

func extractDate(doc *goquery.Document) time.Time {
	date := fallbackDate
	doc.Find("font").EachWithBreak(func(_ int, font *goquery.Selection) bool {
		text := font.Text()
		if !strings.Contains(text, lastUpdatedCue) {
			return true
		}
		ints := intRe.FindAllString(text, 3)
		if len(ints) == 3 {
			y, _ := strconv.Atoi(ints[0])
			m, _ := strconv.Atoi(ints[1])
			d, _ := strconv.Atoi(ints[2])
			date = time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
		}
		return false
	})
	return date
}

func parseCoords(coords string) (x, y int, ok bool) {
	parts := strings.Split(coords, ",")
	if len(parts) < 2 {
		return 0, 0, false
	}
	x, errX := strconv.Atoi(strings.TrimSpace(parts[0]))
	y, errY := strconv.Atoi(strings.TrimSpace(parts[1]))
	return x, y, errX == nil && errY == nil
}

// cellText drops the "HH:MM:" prefix of an area title.
func cellText(title string) string {
	parts := strings.Split(title, ":")
	if len(parts) <= 2 {
		return ""
	}
	return strings.TrimSpace(strings.Join(parts[2:], ":"))
}
