// Package tuner renders the fixed-channel tuner documents: HDHomeRun
// discovery/lineup JSON, an M3U playlist, and an XMLTV guide. All of them
// are pure formatters over the channel snapshot.
package tuner

import (
	"fmt"

	"github.com/tunerd/tunerd/internal/channel"
	"github.com/tunerd/tunerd/internal/config"
)

// Discover is the HDHomeRun discover.json document.
type Discover struct {
	FriendlyName    string `json:"FriendlyName"`
	Manufacturer    string `json:"Manufacturer"`
	ModelNumber     string `json:"ModelNumber"`
	FirmwareName    string `json:"FirmwareName"`
	FirmwareVersion string `json:"FirmwareVersion"`
	DeviceID        string `json:"DeviceID"`
	DeviceAuth      string `json:"DeviceAuth"`
	TunerCount      int    `json:"TunerCount"`
	BaseURL         string `json:"BaseURL"`
	LineupURL       string `json:"LineupURL"`
}

// LineupItem is one channel in lineup.json.
type LineupItem struct {
	GuideNumber string `json:"GuideNumber"`
	GuideName   string `json:"GuideName"`
	URL         string `json:"URL"`
}

// LineupStatus is the static lineup_status.json document.
type LineupStatus struct {
	ScanInProgress int      `json:"ScanInProgress"`
	ScanPossible   int      `json:"ScanPossible"`
	Source         string   `json:"Source"`
	SourceList     []string `json:"SourceList"`
}

// Renderer formats tuner documents for a fixed base URL.
type Renderer struct {
	cfg config.TunerConfig
}

func NewRenderer(cfg config.TunerConfig) *Renderer {
	return &Renderer{cfg: cfg}
}

func (r *Renderer) Discover() Discover {
	return Discover{
		FriendlyName:    r.cfg.FriendlyName,
		Manufacturer:    "Silicondust",
		ModelNumber:     "HDTC-2US",
		FirmwareName:    "hdhomeruntc_atsc",
		FirmwareVersion: "20150826",
		DeviceID:        r.cfg.DeviceID,
		DeviceAuth:      "tunerd",
		TunerCount:      r.cfg.TunerCount,
		BaseURL:         r.cfg.BaseURL,
		LineupURL:       r.cfg.BaseURL + "/lineup.json",
	}
}

// Lineup lists every configured channel; guide numbers are assigned from
// the snapshot order, starting at 1.
func (r *Renderer) Lineup(recs []channel.Record) []LineupItem {
	items := make([]LineupItem, 0, len(recs))
	for i, rec := range recs {
		items = append(items, LineupItem{
			GuideNumber: fmt.Sprintf("%d", i+1),
			GuideName:   rec.DisplayName,
			URL:         fmt.Sprintf("%s/stream/%s", r.cfg.BaseURL, rec.Login),
		})
	}
	return items
}

func (r *Renderer) LineupStatus() LineupStatus {
	return LineupStatus{
		ScanPossible: 1,
		Source:       "Cable",
		SourceList:   []string{"Cable"},
	}
}
