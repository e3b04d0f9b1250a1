package tuner

import (
	"strings"
	"testing"
	"time"

	"github.com/tunerd/tunerd/internal/channel"
	"github.com/tunerd/tunerd/internal/config"
)

func testRenderer() *Renderer {
	return NewRenderer(config.TunerConfig{
		FriendlyName: "tunerd",
		DeviceID:     "ABCD1234",
		BaseURL:      "http://10.0.0.2:6077",
		TunerCount:   4,
	})
}

func testRecords() []channel.Record {
	return []channel.Record{
		{Login: "alice", DisplayName: "Alice", ArtURL: "http://img/alice.png", Live: true,
			Title: "speedrun", Category: "Games", StartedAt: time.Date(2026, 8, 29, 18, 0, 0, 0, time.UTC)},
		{Login: "bob", DisplayName: "Bob", Live: false},
	}
}

func TestDiscoverDocument(t *testing.T) {
	d := testRenderer().Discover()
	if d.DeviceID != "ABCD1234" || d.TunerCount != 4 {
		t.Fatalf("discover = %+v", d)
	}
	if d.LineupURL != "http://10.0.0.2:6077/lineup.json" {
		t.Fatalf("lineup url = %q", d.LineupURL)
	}
}

func TestLineupListsAllChannels(t *testing.T) {
	items := testRenderer().Lineup(testRecords())
	if len(items) != 2 {
		t.Fatalf("lineup = %+v", items)
	}
	if items[0].GuideNumber != "1" || items[0].GuideName != "Alice" {
		t.Fatalf("first item = %+v", items[0])
	}
	if items[1].URL != "http://10.0.0.2:6077/stream/bob" {
		t.Fatalf("stream url = %q", items[1].URL)
	}
}

func TestPlaylistFormat(t *testing.T) {
	m3u := testRenderer().Playlist(testRecords())
	if !strings.HasPrefix(m3u, "#EXTM3U\n") {
		t.Fatalf("playlist missing header: %q", m3u)
	}
	if !strings.Contains(m3u, `tvg-id="alice"`) || !strings.Contains(m3u, `tvg-logo="http://img/alice.png"`) {
		t.Fatalf("playlist attrs missing: %q", m3u)
	}
	if !strings.Contains(m3u, "http://10.0.0.2:6077/stream/alice\n") {
		t.Fatalf("playlist missing stream url: %q", m3u)
	}
}

func TestGuideOnlyLiveChannelsGetProgrammes(t *testing.T) {
	now := time.Date(2026, 8, 29, 20, 0, 0, 0, time.UTC)
	out, err := testRenderer().Guide(testRecords(), now)
	if err != nil {
		t.Fatalf("Guide: %v", err)
	}
	doc := string(out)
	if !strings.Contains(doc, `<channel id="alice">`) || !strings.Contains(doc, `<channel id="bob">`) {
		t.Fatalf("guide missing channels: %s", doc)
	}
	if !strings.Contains(doc, `channel="alice"`) {
		t.Fatalf("guide missing alice programme: %s", doc)
	}
	if strings.Contains(doc, `channel="bob"`) {
		t.Fatalf("offline channel got a programme: %s", doc)
	}
	if !strings.Contains(doc, "<title>speedrun</title>") || !strings.Contains(doc, "<category>Games</category>") {
		t.Fatalf("programme fields missing: %s", doc)
	}
	if !strings.Contains(doc, `start="20260829180000 +0000"`) {
		t.Fatalf("programme start missing: %s", doc)
	}
}
