// Package analyticsqueries computes the admin dashboard series straight from
// the source collections. Nothing is cached or stored.
package analyticsqueries

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/dalemusser/volunteerhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"
)

// WindowMonths is the length of the rolling window.
const WindowMonths = 12

// Trend labels.
const (
	TrendNoChange    = "No change"
	TrendUnavailable = "Unavailable"
)

// Window is a rolling window of WindowMonths calendar months ending with the
// month containing now, plus the window of equal length before it.
type Window struct {
	PrevStart time.Time // inclusive
	Start     time.Time // inclusive
	End       time.Time // exclusive, first instant of next month
	Months    []models.MonthCount
}

// NewWindow builds the window for now in UTC.
func NewWindow(now time.Time) Window {
	now = now.UTC()
	thisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	start := thisMonth.AddDate(0, -(WindowMonths - 1), 0)

	months := make([]models.MonthCount, 0, WindowMonths)
	for m := start; m.Before(thisMonth.AddDate(0, 1, 0)); m = m.AddDate(0, 1, 0) {
		months = append(months, models.MonthCount{
			Year:  m.Year(),
			Month: int(m.Month()),
			Label: fmt.Sprintf("%s %d", m.Month().String()[:3], m.Year()),
		})
	}
	return Window{
		PrevStart: start.AddDate(0, -WindowMonths, 0),
		Start:     start,
		End:       thisMonth.AddDate(0, 1, 0),
		Months:    months,
	}
}

// index returns the position of (year, month) in the window, -1 when it
// falls before the window.
func (w Window) index(year, month int) int {
	i := (year-w.Start.Year())*12 + month - int(w.Start.Month())
	if i < 0 || i >= len(w.Months) {
		return -1
	}
	return i
}

// Trend compares the window total with the previous window.
func Trend(cur, prev int64) string {
	switch {
	case prev == 0 && cur == 0:
		return TrendNoChange
	case prev == 0:
		return TrendUnavailable
	case cur == prev:
		return TrendNoChange
	}
	delta := float64(cur - prev)
	pct := int64(math.Round(math.Abs(delta) / float64(prev) * 100))
	if delta > 0 {
		return fmt.Sprintf("%d%% Increase", pct)
	}
	return fmt.Sprintf("%d%% Decrease", pct)
}

// source describes one series: which documents count, which date places
// them in a month, and what each contributes.
type source struct {
	name      string
	coll      string
	match     bson.M
	dateField string
	sum       any // 1 to count documents, "$field" to sum a field
}

var approvedOrCompleted = bson.M{"$or": bson.A{
	bson.M{"is_approved": true},
	bson.M{"is_completed": true},
}}

var sources = struct {
	volunteers, organizers, events, registrations source
}{
	volunteers:    source{name: "volunteers", coll: "volunteers", match: bson.M{"is_approved": true}, dateField: "created_at", sum: 1},
	organizers:    source{name: "organizers", coll: "organizers", match: bson.M{"is_approved": true}, dateField: "created_at", sum: 1},
	events:        source{name: "events", coll: "events", match: approvedOrCompleted, dateField: "date", sum: 1},
	registrations: source{name: "registrations", coll: "events", match: approvedOrCompleted, dateField: "date", sum: "$volunteers_registered"},
}

// Dashboard computes the four series concurrently.
func Dashboard(ctx context.Context, db *mongo.Database, now time.Time) (models.Dashboard, error) {
	w := NewWindow(now)
	var d models.Dashboard

	g, gctx := errgroup.WithContext(ctx)
	run := func(src source, dst *models.Series) {
		g.Go(func() error {
			s, err := series(gctx, db, w, src)
			if err != nil {
				return fmt.Errorf("%s series: %w", src.name, err)
			}
			*dst = s
			return nil
		})
	}
	run(sources.volunteers, &d.Volunteers)
	run(sources.organizers, &d.Organizers)
	run(sources.events, &d.Events)
	run(sources.registrations, &d.Registrations)

	if err := g.Wait(); err != nil {
		return models.Dashboard{}, err
	}
	return d, nil
}

func series(ctx context.Context, db *mongo.Database, w Window, src source) (models.Series, error) {
	match := bson.M{src.dateField: bson.M{"$gte": w.PrevStart, "$lt": w.End}}
	for k, v := range src.match {
		match[k] = v
	}
	field := "$" + src.dateField

	pipeline := []bson.M{
		{"$match": match},
		{"$group": bson.M{
			"_id": bson.M{"y": bson.M{"$year": field}, "m": bson.M{"$month": field}},
			"n":   bson.M{"$sum": src.sum},
		}},
	}

	cur, err := db.Collection(src.coll).Aggregate(ctx, pipeline)
	if err != nil {
		return models.Series{}, err
	}
	defer cur.Close(ctx)

	out := models.Series{Name: src.name, Months: append([]models.MonthCount(nil), w.Months...)}
	for cur.Next(ctx) {
		var row struct {
			ID struct {
				Y int `bson:"y"`
				M int `bson:"m"`
			} `bson:"_id"`
			N int64 `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return models.Series{}, err
		}
		if i := w.index(row.ID.Y, row.ID.M); i >= 0 {
			out.Months[i].Count += row.N
			out.Total += row.N
		} else {
			out.PreviousTotal += row.N
		}
	}
	if err := cur.Err(); err != nil {
		return models.Series{}, err
	}
	out.Trend = Trend(out.Total, out.PreviousTotal)
	return out, nil
}
