package stats

import (
	"time"

	domstats "github.com/kailas-cloud/voicegate/internal/domain/stats"
)

type recordDTO struct {
	TS       string `json:"ts"`
	Query    string `json:"query"`
	TopK     int    `json:"top_k"`
	HitCount int    `json:"hit_count"`
	UA       string `json:"ua"`
}

func recordToDTO(r domstats.Record) recordDTO {
	return recordDTO{
		TS:       r.Timestamp.UTC().Format(time.RFC3339Nano),
		Query:    r.Query,
		TopK:     r.TopK,
		HitCount: r.HitCount,
		UA:       r.ClientAgent,
	}
}

func (d recordDTO) toDomain() domstats.Record {
	ts, _ := time.Parse(time.RFC3339Nano, d.TS)
	return domstats.Record{
		Timestamp:   ts,
		Query:       d.Query,
		TopK:        d.TopK,
		HitCount:    d.HitCount,
		ClientAgent: d.UA,
	}
}
