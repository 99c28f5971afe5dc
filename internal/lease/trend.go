package lease

import (
	"context"
	"time"

	"tortoise-backend/internal/model"
)

// TrendPoint is one calendar day of rental activity for the dashboard
// chart. Days without orders are present with zero values, not omitted.
type TrendPoint struct {
	Date    string `json:"date"` // yyyy-mm-dd
	Name    string `json:"name"` // short weekday label for the chart axis
	Value   int    `json:"value"`
	Rentals int    `json:"rentals"`
}

// Trend buckets the order log by calendar day over the trailing window
// ending at now, oldest day first, summing each day's employee-net
// prices and counting its leases.
func (r *Recorder) Trend(ctx context.Context, now time.Time, days int) ([]TrendPoint, error) {
	orders, err := r.Orders(ctx)
	if err != nil {
		return nil, err
	}
	return bucketByDay(orders, now, days), nil
}

func bucketByDay(orders []model.LeaseOrder, now time.Time, days int) []TrendPoint {
	if days <= 0 {
		return []TrendPoint{}
	}

	byDate := make(map[string]*TrendPoint, days)
	points := make([]TrendPoint, days)
	for i := 0; i < days; i++ {
		day := now.AddDate(0, 0, i-days+1)
		points[i] = TrendPoint{
			Date: day.Format("2006-01-02"),
			Name: day.Format("Mon"),
		}
		byDate[points[i].Date] = &points[i]
	}

	for _, o := range orders {
		if p, ok := byDate[o.CreatedAt.Format("2006-01-02")]; ok {
			p.Value += o.EffectivePrice
			p.Rentals++
		}
	}
	return points
}
