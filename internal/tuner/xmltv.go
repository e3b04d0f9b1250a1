package tuner

import (
	"encoding/xml"
	"time"

	"github.com/tunerd/tunerd/internal/channel"
)

// xmltvTime is the XMLTV timestamp layout.
const xmltvTime = "20060102150405 -0700"

// guideSlot is how far ahead a live programme is announced; live streams
// have no real end time, so the guide shows a rolling block.
const guideSlot = 6 * time.Hour

type xmltvTV struct {
	XMLName    xml.Name         `xml:"tv"`
	Generator  string           `xml:"generator-info-name,attr"`
	Channels   []xmltvChannel   `xml:"channel"`
	Programmes []xmltvProgramme `xml:"programme"`
}

type xmltvChannel struct {
	ID          string     `xml:"id,attr"`
	DisplayName string     `xml:"display-name"`
	Icon        *xmltvIcon `xml:"icon,omitempty"`
}

type xmltvIcon struct {
	Src string `xml:"src,attr"`
}

type xmltvProgramme struct {
	Start    string `xml:"start,attr"`
	Stop     string `xml:"stop,attr"`
	Channel  string `xml:"channel,attr"`
	Title    string `xml:"title"`
	Category string `xml:"category,omitempty"`
}

// Guide renders an XMLTV document: one <channel> per configured channel and
// one <programme> per currently live channel.
func (r *Renderer) Guide(recs []channel.Record, now time.Time) ([]byte, error) {
	tv := xmltvTV{Generator: "tunerd"}
	for _, rec := range recs {
		ch := xmltvChannel{ID: rec.Login, DisplayName: rec.DisplayName}
		if rec.ArtURL != "" {
			ch.Icon = &xmltvIcon{Src: rec.ArtURL}
		}
		tv.Channels = append(tv.Channels, ch)
		if !rec.Live {
			continue
		}
		start := rec.StartedAt
		if start.IsZero() {
			start = now
		}
		title := rec.Title
		if title == "" {
			title = rec.DisplayName + " live"
		}
		tv.Programmes = append(tv.Programmes, xmltvProgramme{
			Start:    start.Format(xmltvTime),
			Stop:     now.Add(guideSlot).Format(xmltvTime),
			Channel:  rec.Login,
			Title:    title,
			Category: rec.Category,
		})
	}
	out, err := xml.MarshalIndent(tv, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}
